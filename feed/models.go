package feed

import (
	"strings"
	"time"
)

const (
	DefaultPageSize = 100
	// MediaPageSize bounds the media rows requested for one listing.
	MediaPageSize = 200

	ListingKeyField   = "ListingKey"
	ModificationField = "ModificationTimestamp"
	MediaURLField     = "MediaURL"
	MediaRecordField  = "ResourceRecordKey"
)

// RawListing is one untyped listing as the feed sent it. Field presence and
// types vary by feed version, so every read reports whether it succeeded.
type RawListing map[string]any

// Lookup returns the value stored under key. JSON null counts as absent.
func (r RawListing) Lookup(key string) (any, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String returns the value under key when it is a string.
func (r RawListing) String(key string) (string, bool) {
	v, ok := r.Lookup(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Key is the feed's stable listing identifier, or "" when missing.
func (r RawListing) Key() string {
	s, _ := r.String(ListingKeyField)
	return strings.TrimSpace(s)
}

// ModifiedAt parses the change timestamp; ok is false when absent or unparseable.
func (r RawListing) ModifiedAt() (time.Time, bool) {
	s, ok := r.String(ModificationField)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MediaAsset is one untyped row of the Media resource.
type MediaAsset map[string]any

func (m MediaAsset) URL() (string, bool) {
	s, ok := m[MediaURLField].(string)
	s = strings.TrimSpace(s)
	return s, ok && s != ""
}

func (m MediaAsset) ResourceRecordKey() string {
	s, _ := m[MediaRecordField].(string)
	return strings.TrimSpace(s)
}

// PageWindow is one bounded fetch: 1-based page number and page size.
type PageWindow struct {
	Page int
	Size int
}

func (w PageWindow) Top() int  { return w.Size }
func (w PageWindow) Skip() int { return (w.Page - 1) * w.Size }

// Page is one fetched window of listings.
type Page struct {
	Window PageWindow
	Items  []RawListing
}

// Short reports whether the feed returned fewer items than requested.
func (p Page) Short() bool { return len(p.Items) < p.Window.Size }

type envelope[T any] struct {
	Value []T `json:"value"`
}
