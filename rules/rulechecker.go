package rules

import (
	"github.com/pkg/errors"
	"github.com/xdbsoft/gript"

	"github.com/xdbsoft/docrest/api"
)

type Checker struct {
	rules map[string]Rule
}

func NewChecker(rules []Rule) Checker {
	c := Checker{rules: make(map[string]Rule)}
	for _, r := range rules {
		if len(r.If) > 0 {
			c.rules[r.Collection] = r
		}
	}
	return c
}

func checkCondition(condition string, variables map[string]interface{}) (bool, error) {
	if len(condition) == 0 {
		return true, nil
	}
	r, err := gript.Eval(condition, variables)
	if err != nil {
		return false, err
	}
	result, ok := r.(bool)
	if !ok {
		return false, errors.New("Invalid condition: result is not boolean")
	}
	return result, nil
}

// Verify reports whether payload may be created in collection. Without a
// rule the payload needs more than MinFields top level fields.
func (c Checker) Verify(collection string, payload api.Document) (bool, error) {

	rule, ok := c.rules[collection]
	if !ok {
		return len(payload) > MinFields, nil
	}

	variables := map[string]interface{}{
		"doc":    map[string]interface{}(payload),
		"fields": len(payload),
	}

	res, err := checkCondition(rule.If, variables)
	if err != nil {
		return false, errors.Wrapf(err, "rule of collection '%s'", collection)
	}
	return res, nil
}
