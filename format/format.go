// Package format encodes response envelopes. The format is chosen from the
// suffix of a list URL: ".json" or ".csv". Any other suffix, including none,
// falls back to JSON.
package format

import (
	"bytes"
	"encoding/json"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeCSV  = "text/csv"
)

//Encoder serializes a response envelope
type Encoder func(v interface{}) ([]byte, error)

//Format is one of the supported output formats
type Format int

const (
	JSON Format = iota
	CSV
)

type entry struct {
	encode      Encoder
	contentType string
}

var formats = map[Format]entry{
	JSON: {encode: EncodeJSON, contentType: ContentTypeJSON},
	CSV:  {encode: EncodeCSV, contentType: ContentTypeCSV},
}

//Parse maps a URL suffix to a Format. Unknown suffixes give JSON.
func Parse(token string) Format {
	switch token {
	case ".csv":
		return CSV
	}
	return JSON
}

func (f Format) String() string {
	if f == CSV {
		return "csv"
	}
	return "json"
}

//Resolve returns the encoder and the content type to use for a URL suffix
func Resolve(token string) (Encoder, string) {
	e := formats[Parse(token)]
	return e.encode, e.contentType
}

//EncodeJSON encodes v as a single line of JSON followed by a newline
func EncodeJSON(v interface{}) ([]byte, error) {
	var b bytes.Buffer
	if err := json.NewEncoder(&b).Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

//EncodeIndentedJSON is the human friendly variant of EncodeJSON
func EncodeIndentedJSON(v interface{}) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
