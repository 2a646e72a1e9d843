package api

//ObjectRef points at a collection, or at a document when ID is set.
//Format is the URL suffix of a list request, e.g. ".csv".
type ObjectRef struct {
	Collection string
	ID         string
	Format     string
}

func (o ObjectRef) String() string {
	if o.IsDocument() {
		return o.Collection + "/" + o.ID
	}
	return o.Collection + o.Format
}

func (o ObjectRef) IsDocument() bool {
	return len(o.ID) > 0
}
