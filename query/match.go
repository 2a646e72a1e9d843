package query

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xdbsoft/docrest/api"
)

// Match reports whether doc satisfies filter. It understands the subset of the
// MongoDB query language needed by stores without a native engine.
func Match(doc api.Document, filter api.Filter) (bool, error) {
	return matchDocument(map[string]interface{}(doc), map[string]interface{}(filter))
}

// Project keeps the identifier and the listed fields. Dotted names select
// embedded fields. A nil list keeps everything.
func Project(doc api.Document, fields []string) api.Document {
	if fields == nil {
		return doc
	}

	res := make(api.Document, len(fields)+1)
	if id, ok := doc[api.IDField]; ok {
		res[api.IDField] = id
	}
	for _, f := range fields {
		if v, ok := lookup(doc, f); ok {
			setPath(res, strings.Split(f, "."), v)
		}
	}
	return res
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func matchDocument(doc map[string]interface{}, filter map[string]interface{}) (bool, error) {

	for _, key := range sortedKeys(filter) {
		cond := filter[key]

		var ok bool
		var err error
		switch key {
		case "$and", "$or", "$nor":
			ok, err = matchLogical(doc, key, cond)
		default:
			if strings.HasPrefix(key, "$") {
				return false, MalformedQuery(fmt.Sprintf("Unsupported top level operator: %s", key))
			}
			ok, err = matchField(doc, key, cond)
		}
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchLogical(doc map[string]interface{}, op string, cond interface{}) (bool, error) {

	items, ok := asArray(cond)
	if !ok || len(items) == 0 {
		return false, MalformedQuery(op + " expects a non empty array")
	}

	for _, item := range items {
		sub, ok := asMap(item)
		if !ok {
			return false, MalformedQuery(op + " expects an array of documents")
		}
		res, err := matchDocument(doc, sub)
		if err != nil {
			return false, err
		}
		switch {
		case op == "$and" && !res:
			return false, nil
		case op == "$or" && res:
			return true, nil
		case op == "$nor" && res:
			return false, nil
		}
	}
	return op != "$or", nil
}

func isOperatorMap(m map[string]interface{}) bool {
	for k := range m {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

func matchField(doc map[string]interface{}, path string, cond interface{}) (bool, error) {

	v, found := lookup(doc, path)

	ops, ok := asMap(cond)
	if !ok || !isOperatorMap(ops) {
		return matchEq(v, found, cond), nil
	}

	for _, op := range sortedKeys(ops) {
		res, err := matchOperator(v, found, op, ops[op])
		if err != nil || !res {
			return false, err
		}
	}
	return true, nil
}

func matchOperator(v interface{}, found bool, op string, arg interface{}) (bool, error) {

	switch op {
	case "$eq":
		return matchEq(v, found, arg), nil
	case "$ne":
		return !matchEq(v, found, arg), nil
	case "$gt", "$gte", "$lt", "$lte":
		if !found {
			return false, nil
		}
		return anyValue(v, func(x interface{}) bool {
			c, ok := compare(x, arg)
			if !ok {
				return false
			}
			switch op {
			case "$gt":
				return c > 0
			case "$gte":
				return c >= 0
			case "$lt":
				return c < 0
			}
			return c <= 0
		}), nil
	case "$in", "$nin":
		items, ok := asArray(arg)
		if !ok {
			return false, MalformedQuery(op + " expects an array")
		}
		in := false
		for _, item := range items {
			if matchEq(v, found, item) {
				in = true
				break
			}
		}
		return in == (op == "$in"), nil
	case "$exists":
		return truthy(arg) == found, nil
	}
	return false, MalformedQuery(fmt.Sprintf("Unsupported operator: %s", op))
}

// matchEq follows MongoDB: null matches missing fields, and an array field
// matches when one of its elements does.
func matchEq(v interface{}, found bool, expected interface{}) bool {
	if expected == nil {
		return !found || v == nil
	}
	if !found {
		return false
	}
	if equal(v, expected) {
		return true
	}
	if items, ok := asArray(v); ok {
		for _, item := range items {
			if equal(item, expected) {
				return true
			}
		}
	}
	return false
}

func anyValue(v interface{}, f func(interface{}) bool) bool {
	if items, ok := asArray(v); ok {
		for _, item := range items {
			if f(item) {
				return true
			}
		}
		return false
	}
	return f(v)
}

func truthy(v interface{}) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return v != nil
}

func lookup(doc map[string]interface{}, path string) (interface{}, bool) {

	var cur interface{} = doc
	for _, part := range strings.Split(path, ".") {
		if m, ok := asMap(cur); ok {
			v, found := m[part]
			if !found {
				return nil, false
			}
			cur = v
			continue
		}
		if items, ok := asArray(cur); ok {
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(items) {
				return nil, false
			}
			cur = items[idx]
			continue
		}
		return nil, false
	}
	return cur, true
}

// Set assigns v at a dotted path, creating the embedded documents on the way
// as MongoDB $set does.
func Set(doc api.Document, path string, v interface{}) {
	setPath(map[string]interface{}(doc), strings.Split(path, "."), v)
}

func setPath(doc map[string]interface{}, path []string, v interface{}) {
	if len(path) == 1 {
		doc[path[0]] = v
		return
	}
	sub, ok := asMap(doc[path[0]])
	if !ok {
		sub = make(map[string]interface{})
	}
	// primitive.D is converted to a copy, store it back
	doc[path[0]] = sub
	setPath(sub, path[1:], v)
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case primitive.M:
		return m, true
	case api.Document:
		return m, true
	case api.Filter:
		return m, true
	case primitive.D:
		return m.Map(), true
	}
	return nil, false
}

func asArray(v interface{}) ([]interface{}, bool) {
	switch a := v.(type) {
	case []interface{}:
		return a, true
	case primitive.A:
		return a, true
	case []string:
		res := make([]interface{}, len(a))
		for i := range a {
			res[i] = a[i]
		}
		return res, true
	}
	return nil, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	}
	return time.Time{}, false
}

// compare orders two values of the same kind. ok is false when they cannot be ordered.
func compare(a, b interface{}) (c int, ok bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	if ta, ok := toTime(a); ok {
		tb, ok := toTime(b)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case primitive.ObjectID:
		y, ok := b.(primitive.ObjectID)
		if !ok {
			return 0, false
		}
		return bytes.Compare(x[:], y[:]), true
	}
	return 0, false
}

func equal(a, b interface{}) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	if ma, ok := asMap(a); ok {
		mb, ok := asMap(b)
		if !ok || len(ma) != len(mb) {
			return false
		}
		for k, va := range ma {
			vb, found := mb[k]
			if !found || !equal(va, vb) {
				return false
			}
		}
		return true
	}
	if aa, ok := asArray(a); ok {
		ab, ok := asArray(b)
		if !ok || len(aa) != len(ab) {
			return false
		}
		for i := range aa {
			if !equal(aa[i], ab[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
