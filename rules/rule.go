package rules

// Rule is the condition a payload must satisfy to be created in a collection.
// If is a gript expression over the variables "doc" (the payload) and
// "fields" (its number of top level fields).
type Rule struct {
	Collection string `json:"collection"`
	If         string `json:"if"`
}

// MinFields is the field count a payload must exceed when its collection has no rule
const MinFields = 3
