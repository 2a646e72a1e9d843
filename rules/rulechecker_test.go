package rules

import (
	"testing"

	"github.com/xdbsoft/docrest/api"
)

func TestVerify_FieldCount(t *testing.T) {

	c := NewChecker(nil)

	cases := []struct {
		payload  api.Document
		expected bool
	}{
		{api.Document{}, false},
		{api.Document{"a": 1, "b": 2, "c": 3}, false},
		{api.Document{"a": 1, "b": 2, "c": 3, "d": 4}, true},
	}

	for i, tc := range cases {
		ok, err := c.Verify("test", tc.payload)
		if err != nil {
			t.Errorf("Case %d: unexpected error %v", i, err)
		}
		if ok != tc.expected {
			t.Errorf("Case %d: expected %v, got %v", i, tc.expected, ok)
		}
	}
}

func TestVerify_Rule(t *testing.T) {

	c := NewChecker([]Rule{
		{Collection: "orders", If: `doc.kind == 'order'`},
		{Collection: "broken", If: `doc.kind == 'order`},
		{Collection: "string", If: `'abc'`},
		{Collection: "empty"},
	})

	ok, err := c.Verify("orders", api.Document{"kind": "order"})
	if err != nil {
		t.Error(err)
	}
	if !ok {
		t.Error("Payload should be accepted by the rule")
	}

	ok, err = c.Verify("orders", api.Document{"kind": "invoice", "a": 1, "b": 2, "c": 3})
	if err != nil {
		t.Error(err)
	}
	if ok {
		t.Error("Payload should be rejected by the rule")
	}

	if _, err := c.Verify("broken", api.Document{"kind": "order"}); err == nil {
		t.Error("Invalid rule should fail")
	}

	if _, err := c.Verify("string", api.Document{"kind": "order"}); err == nil {
		t.Error("Non boolean rule should fail")
	}

	// a rule without condition falls back to the field count
	ok, _ = c.Verify("empty", api.Document{"kind": "order"})
	if ok {
		t.Error("Payload should be rejected by the field count")
	}
}
