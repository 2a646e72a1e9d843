// Package memory keeps collections in process memory. Data is lost on restart.
// Documents keep their insertion order, which is the natural order of Find.
package memory

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xdbsoft/docrest/api"
	"github.com/xdbsoft/docrest/query"
)

type notFound string

func (err notFound) IsNotFound() bool {
	return true
}
func (err notFound) Error() string {
	return string(err)
}

//Repository is an api.Repository safe for concurrent use
type Repository struct {
	mu          sync.RWMutex
	collections map[string][]api.Document

	// NextID generates identifiers of inserted documents
	NextID func() primitive.ObjectID
}

func New() *Repository {
	return &Repository{
		collections: make(map[string][]api.Document),
		NextID:      api.NextID,
	}
}

func (r *Repository) Init(ctx context.Context) error {
	return nil
}

func (r *Repository) Close(ctx context.Context) error {
	return nil
}

//Load appends documents to a collection as they are. Each must carry an identifier.
func (r *Repository) Load(collection string, docs ...api.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range docs {
		if _, ok := d[api.IDField].(primitive.ObjectID); !ok {
			return errors.Errorf("document without identifier in '%s'", collection)
		}
		r.collections[collection] = append(r.collections[collection], deepCopy(d))
	}
	return nil
}

func (r *Repository) index(collection string, id primitive.ObjectID) int {
	for i, d := range r.collections[collection] {
		if d[api.IDField] == id {
			return i
		}
	}
	return -1
}

func (r *Repository) matching(collection string, filter api.Filter) ([]api.Document, error) {
	var res []api.Document
	for _, d := range r.collections[collection] {
		ok, err := query.Match(d, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			res = append(res, d)
		}
	}
	return res, nil
}

func (r *Repository) Find(ctx context.Context, collection string, q api.Query) ([]api.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs, err := r.matching(collection, q.Filter)
	if err != nil {
		return nil, err
	}

	res := []api.Document{}
	for i := q.Offset; i < len(docs) && len(res) < q.Limit; i++ {
		res = append(res, query.Project(deepCopy(docs[i]), q.Fields))
	}
	return res, nil
}

func (r *Repository) Count(ctx context.Context, collection string, filter api.Filter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs, err := r.matching(collection, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (r *Repository) FindOne(ctx context.Context, collection string, id primitive.ObjectID) (api.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.index(collection, id)
	if i < 0 {
		return nil, notFound("document not found")
	}
	return deepCopy(r.collections[collection][i]), nil
}

func (r *Repository) Insert(ctx context.Context, collection string, doc api.Document) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.NextID()
	d := deepCopy(doc)
	d[api.IDField] = id
	r.collections[collection] = append(r.collections[collection], d)
	return id, nil
}

func (r *Repository) Replace(ctx context.Context, collection string, id primitive.ObjectID, doc api.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(collection, id)
	if i < 0 {
		return nil
	}
	d := deepCopy(doc)
	d[api.IDField] = id
	r.collections[collection][i] = d
	return nil
}

func (r *Repository) Patch(ctx context.Context, collection string, id primitive.ObjectID, fields api.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(collection, id)
	if i < 0 {
		return nil
	}
	d := r.collections[collection][i]
	for k, v := range deepCopy(fields) {
		if k == api.IDField {
			continue
		}
		query.Set(d, k, v)
	}
	return nil
}

func (r *Repository) Remove(ctx context.Context, collection string, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(collection, id)
	if i < 0 {
		return nil
	}
	docs := r.collections[collection]
	r.collections[collection] = append(docs[:i:i], docs[i+1:]...)
	return nil
}

func deepCopy(d api.Document) api.Document {
	if d == nil {
		return nil
	}
	res := make(api.Document, len(d))
	for k, v := range d {
		res[k] = copyValue(v)
	}
	return res
}

func copyValue(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		return map[string]interface{}(deepCopy(x))
	case api.Document:
		return deepCopy(x)
	case []interface{}:
		res := make([]interface{}, len(x))
		for i := range x {
			res[i] = copyValue(x[i])
		}
		return res
	}
	return v
}
