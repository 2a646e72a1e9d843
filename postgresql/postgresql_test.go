package postgresql

import (
	"context"
	"os"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xdbsoft/docrest/api"
)

func connectionString(t *testing.T) string {
	s := os.Getenv("DOCREST_POSTGRES_DSN")
	if len(s) == 0 {
		t.Skip("DOCREST_POSTGRES_DSN not set")
	}
	return s
}

func newRepository(t *testing.T) api.Repository {
	r, err := New(connectionString(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestContainment(t *testing.T) {

	clause, args, ok := containment(api.Filter{"n": 1.0, "k": "v"}, 2)
	if !ok {
		t.Fatal("plain equalities should use containment")
	}
	expected := "(content @> $2::jsonb OR content @> $3::jsonb) AND (content @> $4::jsonb OR content @> $5::jsonb)"
	if clause != expected {
		t.Errorf("Invalid clause: got '%s', expected '%s'", clause, expected)
	}
	expectedArgs := []interface{}{`{"k":"v"}`, `{"k":["v"]}`, `{"n":1}`, `{"n":[1]}`}
	if !reflect.DeepEqual(args, expectedArgs) {
		t.Errorf("Invalid containment documents: got %v, expected %v", args, expectedArgs)
	}

	for _, f := range []api.Filter{
		{},
		{"_id": api.NextID()},
		{"a.b": "v"},
		{"$or": []interface{}{}},
		{"n": map[string]interface{}{"$gt": 1}},
		{"n": nil},
	} {
		if _, _, ok := containment(f, 2); ok {
			t.Errorf("Filter %v should be evaluated in process", f)
		}
	}
}

func TestPutPatchGetDeleteDocument(t *testing.T) {

	ctx := context.Background()
	r := newRepository(t)

	payload := make(api.Document)
	payload["k"] = "v"
	payload["n"] = 123

	id, err := r.Insert(ctx, "test", payload)
	if err != nil {
		t.Error(err)
	}

	res, err := r.FindOne(ctx, "test", id)
	if err != nil {
		t.Fatal(err)
	}

	if res["_id"] != id {
		t.Errorf("Invalid ID: got '%v', expected '%s'", res["_id"], id.Hex())
	}

	v, ok := res["k"]
	if !ok {
		t.Errorf("Missing field 'k'")
	}
	if v != "v" {
		t.Errorf("Invalid field 'k': got '%s', expected 'v'", v)
	}

	v2, ok := res["n"]
	if !ok {
		t.Errorf("Missing field 'n'")
	}
	if v2 != 123. {
		t.Errorf("Invalid field 'n': got %v, expected 123", v2)
	}

	payload = make(api.Document)
	payload["k2"] = "v2"
	payload["n"] = 125
	if err := r.Patch(ctx, "test", id, payload); err != nil {
		t.Error(err)
	}

	res, err = r.FindOne(ctx, "test", id)
	if err != nil {
		t.Fatal(err)
	}

	v, ok = res["k"]
	if !ok {
		t.Errorf("Missing field 'k'")
	}
	if v != "v" {
		t.Errorf("Invalid field 'k': got '%s', expected 'v'", v)
	}
	v, ok = res["k2"]
	if !ok {
		t.Errorf("Missing field 'k2'")
	}
	if v != "v2" {
		t.Errorf("Invalid field 'k2': got '%s', expected 'v2'", v)
	}

	v2, ok = res["n"]
	if !ok {
		t.Errorf("Missing field 'n'")
	}
	if v2 != 125. {
		t.Errorf("Invalid field 'n': got %v, expected 125", v2)
	}

	if err := r.Patch(ctx, "test", id, api.Document{"sub.a": 1, "sub.b": "x"}); err != nil {
		t.Error(err)
	}

	res, err = r.FindOne(ctx, "test", id)
	if err != nil {
		t.Fatal(err)
	}
	sub, ok := res["sub"].(map[string]interface{})
	if !ok || sub["a"] != 1. || sub["b"] != "x" {
		t.Errorf("Dotted fields should be set in the embedded document, got %v", res)
	}
	if _, ok := res["sub.a"]; ok {
		t.Errorf("Dotted field should not be stored as is, got %v", res)
	}

	if err := r.Replace(ctx, "test", id, api.Document{"k": "w"}); err != nil {
		t.Error(err)
	}

	res, err = r.FindOne(ctx, "test", id)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 || res["k"] != "w" {
		t.Errorf("Invalid replaced document: got %v", res)
	}

	if err := r.Remove(ctx, "test", id); err != nil {
		t.Error(err)
	}

	_, err = r.FindOne(ctx, "test", id)
	if err == nil {
		t.Error("Document should not be found")
	}
}

func TestInsertFindCount(t *testing.T) {

	ctx := context.Background()
	r := newRepository(t)

	c := "test_" + api.EncodeID(api.NextID())

	var ids []primitive.ObjectID
	for _, k := range []string{"v", "v", "w"} {
		id, err := r.Insert(ctx, c, api.Document{"k": k, "n": 1})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	n, err := r.Count(ctx, c, api.Filter{"k": "v"})
	if err != nil {
		t.Error(err)
	}
	if n != 2 {
		t.Errorf("Invalid count, got %v, expected 2", n)
	}

	all, err := r.Find(ctx, c, api.Query{Filter: api.Filter{}, Limit: 2, Offset: 1})
	if err != nil {
		t.Error(err)
	}
	if len(all) != 2 {
		t.Errorf("Invalid list length, got %v, expected 2", len(all))
	}

	all, err = r.Find(ctx, c, api.Query{Filter: api.Filter{"k": map[string]interface{}{"$ne": "v"}}, Fields: []string{"k"}, Limit: 20})
	if err != nil {
		t.Error(err)
	}
	if len(all) != 1 || len(all[0]) != 2 || all[0]["k"] != "w" {
		t.Errorf("Invalid list, got %v", all)
	}

	tagged, err := r.Insert(ctx, c, api.Document{"tags": []interface{}{"red", "blue"}})
	if err != nil {
		t.Fatal(err)
	}
	ids = append(ids, tagged)

	n, err = r.Count(ctx, c, api.Filter{"tags": "red"})
	if err != nil {
		t.Error(err)
	}
	if n != 1 {
		t.Errorf("A value inside an array should match, got count %v, expected 1", n)
	}

	all, err = r.Find(ctx, c, api.Query{Filter: api.Filter{"tags": "red"}, Limit: 20})
	if err != nil {
		t.Error(err)
	}
	if len(all) != 1 || all[0]["_id"] != tagged {
		t.Errorf("Invalid list, got %v", all)
	}

	for _, id := range ids {
		if err := r.Remove(ctx, c, id); err != nil {
			t.Error(err)
		}
	}
}
