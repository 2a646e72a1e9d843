package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xdbsoft/docrest/api"
)

func mustDecode(t *testing.T, raw string) api.Filter {
	f, err := DecodeFilter(raw)
	require.NoError(t, err)
	return f
}

func TestMatch(t *testing.T) {

	doc := api.Document{
		"name":    "alice",
		"age":     float64(31),
		"tags":    []interface{}{"admin", "ops"},
		"address": map[string]interface{}{"city": "Paris", "zip": "75001"},
		"note":    nil,
	}

	cases := []struct {
		filter   string
		expected bool
	}{
		{`{}`, true},
		{`{"name": "alice"}`, true},
		{`{"name": "bob"}`, false},
		{`{"age": 31}`, true},
		{`{"age": {"$gt": 30}}`, true},
		{`{"age": {"$gte": 31, "$lt": 32}}`, true},
		{`{"age": {"$lte": 30}}`, false},
		{`{"tags": "ops"}`, true},
		{`{"tags": "dev"}`, false},
		{`{"address.city": "Paris"}`, true},
		{`{"address.city": {"$ne": "Paris"}}`, false},
		{`{"name": {"$in": ["bob", "alice"]}}`, true},
		{`{"name": {"$nin": ["bob", "alice"]}}`, false},
		{`{"missing": {"$exists": false}}`, true},
		{`{"name": {"$exists": true}}`, true},
		{`{"missing": null}`, true},
		{`{"note": null}`, true},
		{`{"$or": [{"name": "bob"}, {"age": 31}]}`, true},
		{`{"$and": [{"name": "alice"}, {"age": 30}]}`, false},
		{`{"$nor": [{"name": "bob"}]}`, true},
	}

	for _, c := range cases {
		ok, err := Match(doc, mustDecode(t, c.filter))
		require.NoError(t, err, c.filter)
		assert.Equal(t, c.expected, ok, c.filter)
	}
}

func TestMatch_Malformed(t *testing.T) {

	doc := api.Document{"name": "alice"}

	for _, raw := range []string{
		`{"name": {"$regex": "^a"}}`,
		`{"$where": "true"}`,
		`{"name": {"$in": "alice"}}`,
		`{"$or": []}`,
	} {
		_, err := Match(doc, mustDecode(t, raw))
		assert.True(t, isBadRequest(err), raw)
	}
}

func TestProject(t *testing.T) {

	doc := api.Document{
		"_id":     "x",
		"name":    "alice",
		"age":     31,
		"address": map[string]interface{}{"city": "Paris", "zip": "75001"},
	}

	assert.Equal(t, doc, Project(doc, nil))
	assert.Equal(t, api.Document{"_id": "x"}, Project(doc, []string{}))
	assert.Equal(t, api.Document{"_id": "x", "name": "alice"}, Project(doc, []string{"name", "unknown"}))
	assert.Equal(t, api.Document{
		"_id":     "x",
		"address": map[string]interface{}{"city": "Paris"},
	}, Project(doc, []string{"address.city"}))
}

func TestSet(t *testing.T) {
	doc := api.Document{
		"a": map[string]interface{}{"b": 0, "c": 1},
		"s": "scalar",
		"d": primitive.D{{Key: "e", Value: 1}},
	}

	Set(doc, "a.b", 5)
	Set(doc, "x.y.z", true)
	Set(doc, "s.t", "replaced")
	Set(doc, "top", 1)
	Set(doc, "d.f", 2)

	assert.Equal(t, api.Document{
		"a":   map[string]interface{}{"b": 5, "c": 1},
		"x":   map[string]interface{}{"y": map[string]interface{}{"z": true}},
		"s":   map[string]interface{}{"t": "replaced"},
		"top": 1,
		"d":   map[string]interface{}{"e": 1, "f": 2},
	}, doc)
}
