package normalize

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yourorg/feed-sync/feed"
	"github.com/yourorg/feed-sync/internal/canon"
)

// Input is everything one record may be derived from: a single listing and
// the media rows fetched for it.
type Input struct {
	Listing feed.RawListing
	Media   []feed.MediaAsset
}

var sourceFields = map[string]struct{}{}

// source records the feed fields a rule reads.
func source(keys ...string) {
	for _, k := range keys {
		sourceFields[k] = struct{}{}
	}
}

// SourceFields lists every feed field some rule reads, sorted.
func SourceFields() []string {
	out := make([]string, 0, len(sourceFields))
	for k := range sourceFields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Rule derives one column value. Rules never fail; missing or wrong-typed
// input yields nil, false, or an empty slice depending on the column kind.
type Rule func(in Input) any

// Text passes a string through, trimmed. Blank or non-string is nil.
func Text(key string) Rule {
	source(key)
	return func(in Input) any {
		s, ok := in.Listing.String(key)
		if !ok || strings.TrimSpace(s) == "" {
			return nil
		}
		return strings.TrimSpace(s)
	}
}

// Title applies TitleCase to a string field.
func Title(key string) Rule {
	source(key)
	return func(in Input) any {
		s, ok := in.Listing.String(key)
		if !ok || strings.TrimSpace(s) == "" {
			return nil
		}
		return titleCase(strings.TrimSpace(s))
	}
}

// Number passes JSON numbers through and parses numeric strings.
func Number(key string) Rule {
	source(key)
	return func(in Input) any {
		v, ok := in.Listing.Lookup(key)
		if !ok {
			return nil
		}
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				return nil
			}
			return f
		}
		return nil
	}
}

// Array reads a multi-value field through BuildArray.
func Array(key string) Rule {
	source(key)
	return func(in Input) any {
		v, _ := in.Listing.Lookup(key)
		return BuildArray(v)
	}
}

// Flag is true only when the raw value is exactly sentinel.
func Flag(key, sentinel string) Rule {
	source(key)
	return func(in Input) any {
		s, ok := in.Listing.String(key)
		return ok && s == sentinel
	}
}

// Timestamp parses an RFC 3339 timestamp or a bare date.
func Timestamp(key string) Rule {
	source(key)
	return func(in Input) any {
		s, ok := in.Listing.String(key)
		if !ok {
			return nil
		}
		s = strings.TrimSpace(s)
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
		return nil
	}
}

// Joined title-cases the non-blank string fields joined by single spaces.
func Joined(keys ...string) Rule {
	source(keys...)
	return func(in Input) any {
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s, ok := in.Listing.String(k); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		if len(parts) == 0 {
			return nil
		}
		return titleCase(strings.Join(parts, " "))
	}
}

// FirstOf returns the first rule result that is not empty.
func FirstOf(rules ...Rule) Rule {
	return func(in Input) any {
		for _, r := range rules {
			if v := r(in); !isEmpty(v) {
				return v
			}
		}
		return nil
	}
}

// When populates the column only if gate holds; otherwise nil.
func When(gate func(Input) bool, r Rule) Rule {
	return func(in Input) any {
		if !gate(in) {
			return nil
		}
		return r(in)
	}
}

// Append is one conditional token of a feature list.
type Append struct {
	Token string
	If    func(Input) bool
}

// Features starts from a multi-value field and appends each token whose
// condition holds, in the order given. Tokens already present are skipped.
func Features(base string, appends ...Append) Rule {
	source(base)
	return func(in Input) any {
		v, _ := in.Listing.Lookup(base)
		out := BuildArray(v)
		for _, a := range appends {
			if !a.If(in) || contains(out, a.Token) {
				continue
			}
			out = append(out, a.Token)
		}
		return out
	}
}

// ImageURLs lists the media URLs associated with the listing, in feed order.
func ImageURLs() Rule {
	return func(in Input) any {
		key := in.Listing.Key()
		out := []string{}
		if key == "" {
			return out
		}
		for _, m := range in.Media {
			// rows are already selected by listing key; some feeds omit the back-reference
			if rk := m.ResourceRecordKey(); rk != "" && rk != key {
				continue
			}
			if u, ok := m.URL(); ok {
				out = append(out, u)
			}
		}
		return out
	}
}

// AddressKey is the canonical identity of the street address, used to match
// the same parcel across listings.
func AddressKey(line1 Rule, city, province, postal string) Rule {
	source(city, province, postal)
	return func(in Input) any {
		l1, _ := line1(in).(string)
		c, _ := in.Listing.String(city)
		st, _ := in.Listing.String(province)
		z, _ := in.Listing.String(postal)
		if l1 == "" || c == "" || st == "" || z == "" {
			return nil
		}
		_, _, _, _, key := canon.Canonicalize(l1, c, st, z)
		return key
	}
}

// Equals is a gate on the exact raw value of key.
func Equals(key, want string) func(Input) bool {
	source(key)
	return func(in Input) bool {
		s, ok := in.Listing.String(key)
		return ok && s == want
	}
}

// HasToken is a gate that holds when the field's words include token, ignoring case.
func HasToken(key, token string) func(Input) bool {
	source(key)
	return func(in Input) bool {
		s, ok := in.Listing.String(key)
		if !ok {
			return false
		}
		for _, f := range strings.Fields(s) {
			if strings.EqualFold(f, token) {
				return true
			}
		}
		return false
	}
}

// Present is a gate that holds when the field yields a non-empty value.
func Present(r Rule) func(Input) bool {
	return func(in Input) bool { return !isEmpty(r(in)) }
}

// NotIn is a gate that holds when the field is set to anything outside values.
func NotIn(key string, values ...string) func(Input) bool {
	source(key)
	return func(in Input) bool {
		s, ok := in.Listing.String(key)
		if !ok || strings.TrimSpace(s) == "" {
			return false
		}
		for _, v := range values {
			if strings.EqualFold(strings.TrimSpace(s), v) {
				return false
			}
		}
		return true
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	}
	return false
}

func contains(list []string, tok string) bool {
	for _, s := range list {
		if strings.EqualFold(s, tok) {
			return true
		}
	}
	return false
}
