package report

import "errors"

var (
	// ErrUnknownFormat is returned by ParseFormat for unsupported names.
	ErrUnknownFormat = errors.New("unknown report format")

	// ErrMalformedCSV is returned by ReadCSV when the input does not follow
	// the flattened record schema.
	ErrMalformedCSV = errors.New("malformed report CSV")
)
