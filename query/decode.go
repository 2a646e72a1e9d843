// Package query turns client supplied request parameters into store queries.
package query

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/xdbsoft/docrest/api"
)

const (
	DefaultLimit  = 20
	DefaultOffset = 0
)

//MalformedQuery is returned when a filter, a projection or an operator cannot be understood
type MalformedQuery string

func (err MalformedQuery) Error() string {
	return string(err)
}

func (err MalformedQuery) IsBadRequest() bool {
	return true
}

//DecodeFilter parses an extended JSON filter. An empty string matches everything.
func DecodeFilter(raw string) (api.Filter, error) {
	if len(strings.TrimSpace(raw)) == 0 {
		return api.Filter{}, nil
	}

	var m bson.M
	if err := bson.UnmarshalExtJSON([]byte(raw), false, &m); err != nil {
		return nil, MalformedQuery("Invalid query: " + err.Error())
	}
	if m == nil {
		return api.Filter{}, nil
	}
	return api.Filter(m), nil
}

//DecodeFields parses a JSON array of field names. An empty string means no projection.
func DecodeFields(raw string) ([]string, error) {
	if len(strings.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	fields := []string{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, MalformedQuery("Invalid fields: " + err.Error())
	}
	return fields, nil
}

func intOrDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return def
	}
	return v
}

//DecodePagination never fails: missing, non numeric or negative values fall back to the defaults
func DecodePagination(limitRaw, offsetRaw string) (limit, offset int) {
	return intOrDefault(limitRaw, DefaultLimit), intOrDefault(offsetRaw, DefaultOffset)
}

//Decode reads the query, fields, limit and offset parameters
func Decode(values url.Values) (api.Query, error) {

	filter, err := DecodeFilter(values.Get("query"))
	if err != nil {
		return api.Query{}, err
	}

	fields, err := DecodeFields(values.Get("fields"))
	if err != nil {
		return api.Query{}, err
	}

	limit, offset := DecodePagination(values.Get("limit"), values.Get("offset"))

	return api.Query{
		Filter: filter,
		Fields: fields,
		Limit:  limit,
		Offset: offset,
	}, nil
}
