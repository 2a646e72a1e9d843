package docrest

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xdbsoft/docrest/api"
	"github.com/xdbsoft/docrest/query"
	"github.com/xdbsoft/docrest/rules"
)

// Gateway exposes the document and list operations of every collection.
// It keeps no state between calls; documents live in the repository.
type Gateway struct {
	repository api.Repository
	allowed    map[string]bool
	bundlers   *Bundlers
	checker    rules.Checker
	maxLimit   int
}

func (g *Gateway) checkCollection(collection string) error {
	if g.allowed != nil && !g.allowed[collection] {
		return forbiddenError{collection}
	}
	return nil
}

func (g *Gateway) target(collection, idRaw string) (primitive.ObjectID, error) {
	if err := g.checkCollection(collection); err != nil {
		return primitive.NilObjectID, err
	}
	return api.DecodeID(idRaw)
}

// GetDetail returns the bundled document
func (g *Gateway) GetDetail(ctx context.Context, collection, idRaw string) (api.Document, error) {

	id, err := g.target(collection, idRaw)
	if err != nil {
		return nil, err
	}

	doc, err := g.repository.FindOne(ctx, collection, id)
	if IsNotFound(err) {
		return nil, notFoundError{collection + "/" + idRaw}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to get %s/%s", collection, idRaw)
	}

	return g.bundlers.Resolve(collection)(doc), nil
}

// PutDetail replaces the whole document. Nothing is created when the
// identifier is unknown.
func (g *Gateway) PutDetail(ctx context.Context, collection, idRaw string, payload api.Document) (api.Document, error) {

	id, err := g.target(collection, idRaw)
	if err != nil {
		return nil, err
	}

	// _id is immutable
	doc := payload.Without(api.IDField)
	if err := g.repository.Replace(ctx, collection, id, doc); err != nil {
		return nil, errors.Wrapf(err, "unable to replace %s/%s", collection, idRaw)
	}

	return g.bundlers.Resolve(collection)(doc), nil
}

// PatchDetail updates the given fields only and returns the refreshed document
func (g *Gateway) PatchDetail(ctx context.Context, collection, idRaw string, payload api.Document) (api.Document, error) {

	id, err := g.target(collection, idRaw)
	if err != nil {
		return nil, err
	}

	if err := g.repository.Patch(ctx, collection, id, payload.Without(api.IDField)); err != nil {
		return nil, errors.Wrapf(err, "unable to update %s/%s", collection, idRaw)
	}

	return g.GetDetail(ctx, collection, idRaw)
}

// DeleteDetail succeeds whether or not a document was removed
func (g *Gateway) DeleteDetail(ctx context.Context, collection, idRaw string) error {

	id, err := g.target(collection, idRaw)
	if err != nil {
		return err
	}

	if err := g.repository.Remove(ctx, collection, id); err != nil {
		return errors.Wrapf(err, "unable to delete %s/%s", collection, idRaw)
	}
	return nil
}

// PostList creates a document once the payload passes verification
func (g *Gateway) PostList(ctx context.Context, collection string, payload api.Document) (primitive.ObjectID, error) {

	if err := g.checkCollection(collection); err != nil {
		return primitive.NilObjectID, err
	}

	doc := payload.Without(api.IDField)

	ok, err := g.checker.Verify(collection, doc)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if !ok {
		return primitive.NilObjectID, verificationFailed{collection}
	}

	id, err := g.repository.Insert(ctx, collection, doc)
	if err != nil {
		return primitive.NilObjectID, errors.Wrapf(err, "unable to insert in %s", collection)
	}
	return id, nil
}

// GetList returns a page of the documents matching the query parameters.
// total_count is computed on the filtered set before pagination.
func (g *Gateway) GetList(ctx context.Context, collection string, values url.Values) (api.Page, error) {

	if err := g.checkCollection(collection); err != nil {
		return api.Page{}, err
	}

	q, err := query.Decode(values)
	if err != nil {
		return api.Page{}, err
	}
	if g.maxLimit > 0 && q.Limit > g.maxLimit {
		q.Limit = g.maxLimit
	}

	total, err := g.repository.Count(ctx, collection, q.Filter)
	if err != nil {
		return api.Page{}, errors.Wrapf(err, "unable to count %s", collection)
	}

	docs, err := g.repository.Find(ctx, collection, q)
	if err != nil {
		return api.Page{}, errors.Wrapf(err, "unable to list %s", collection)
	}

	bundle := g.bundlers.Resolve(collection)
	objects := make([]api.Document, 0, len(docs))
	for _, d := range docs {
		objects = append(objects, bundle(d))
	}

	return api.Page{
		Meta: api.Meta{
			Limit:      q.Limit,
			Offset:     q.Offset,
			TotalCount: total,
		},
		Objects: objects,
	}, nil
}
