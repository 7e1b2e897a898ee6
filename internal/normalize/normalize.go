// Package normalize turns one raw feed listing plus its media into the flat
// record stored in the listings table. Mapping is driven by the Fields table;
// normalization is total and never returns an error.
package normalize

import (
	"time"

	"github.com/yourorg/feed-sync/feed"
)

// Record is one normalized listing keyed by column name.
type Record map[string]any

func (r Record) Key() string {
	s, _ := r[ColumnListingKey].(string)
	return s
}

func (r Record) ModifiedAt() (time.Time, bool) {
	t, ok := r[ColumnModifiedAt].(time.Time)
	return t, ok
}

// Normalize applies every rule of Fields to the listing.
func Normalize(raw feed.RawListing, media []feed.MediaAsset) Record {
	in := Input{Listing: raw, Media: media}
	rec := make(Record, len(Fields))
	for _, f := range Fields {
		rec[f.Column] = f.Rule(in)
	}
	return rec
}

// Columns returns the table's column names in order.
func Columns() []string {
	out := make([]string, len(Fields))
	for i, f := range Fields {
		out[i] = f.Column
	}
	return out
}

// Values returns rec's values in Columns order.
func (r Record) Values() []any {
	out := make([]any, len(Fields))
	for i, f := range Fields {
		out[i] = r[f.Column]
	}
	return out
}
