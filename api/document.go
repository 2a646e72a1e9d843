package api

//IDField is the name of the field holding the store-assigned identifier
const IDField = "_id"

//Document represents a document in a collection
type Document map[string]interface{}

//Without returns a shallow copy of the document minus the given fields
func (d Document) Without(fields ...string) Document {
	res := make(Document, len(d))
	for k, v := range d {
		res[k] = v
	}
	for _, f := range fields {
		delete(res, f)
	}
	return res
}

//Filter is a store query expressed as a MongoDB filter document
type Filter map[string]interface{}

//Query groups what is needed to list documents of a collection
type Query struct {
	Filter Filter
	// Fields is the projection. nil means every field.
	Fields []string
	Limit  int
	Offset int
}

//Meta describes the pagination of a Page
type Meta struct {
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	TotalCount int64 `json:"total_count"`
}

//Page represents a paginated list of documents
type Page struct {
	Meta    Meta       `json:"meta"`
	Objects []Document `json:"objects"`
}
