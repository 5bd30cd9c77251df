package storage

import (
	"errors"

	"github.com/jszwec/csvutil"
)

// Record is one persisted row. The URL is the dedupe key; nil location
// fields are written as empty cells.
type Record struct {
	URL       string  `csv:"url"`
	Caption   string  `csv:"caption"`
	PlaceName *string `csv:"place_name,omitempty"`
	City      *string `csv:"city,omitempty"`
	State     *string `csv:"state,omitempty"`
	Country   *string `csv:"country,omitempty"`
}

// ErrSchemaMismatch is returned when an existing table's header is not the
// canonical one and cannot be migrated
var ErrSchemaMismatch = errors.New("table header does not match schema")

// Columns is the canonical header, derived from Record's tags
var Columns = mustHeader()

func mustHeader() []string {
	h, err := csvutil.Header(Record{}, "csv")
	if err != nil {
		panic(err)
	}
	return h
}

// legacyColumns maps header names used by older exports to canonical names
var legacyColumns = map[string]string{
	"reel url":   "url",
	"url":        "url",
	"caption":    "caption",
	"place name": "place_name",
	"place_name": "place_name",
	"location":   "place_name",
	"city":       "city",
	"state":      "state",
	"country":    "country",
}
