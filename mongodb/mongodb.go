// Package mongodb implements api.Repository on top of a MongoDB database.
package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/xdbsoft/docrest/api"
)

// codeBadValue is the server error code of a filter it cannot parse
const codeBadValue = 2

func New(ctx context.Context, uri, database string) (api.Repository, error) {

	if len(database) == 0 {
		return nil, errors.New("mongodb database name is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect")
	}

	return &repository{
		client: client,
		db:     client.Database(database),
	}, nil
}

type repository struct {
	client *mongo.Client
	db     *mongo.Database
}

type notFound string

func (err notFound) IsNotFound() bool {
	return true
}
func (err notFound) Error() string {
	return string(err)
}

type badQuery string

func (err badQuery) IsBadRequest() bool {
	return true
}
func (err badQuery) Error() string {
	return string(err)
}

// classify turns a server side rejection of the filter into a client error
func classify(err error, msg string) error {
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(codeBadValue) {
		return badQuery("Invalid query: " + err.Error())
	}
	return errors.Wrap(err, msg)
}

func filterOrEmpty(f api.Filter) interface{} {
	if f == nil {
		return bson.M{}
	}
	return f
}

func byID(id primitive.ObjectID) bson.M {
	return bson.M{api.IDField: id}
}

func (r *repository) Init(ctx context.Context) error {
	if err := r.client.Ping(ctx, readpref.Primary()); err != nil {
		return errors.Wrap(err, "mongodb ping failed")
	}
	return nil
}

func (r *repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *repository) Find(ctx context.Context, collection string, q api.Query) ([]api.Document, error) {

	res := []api.Document{}
	// a zero limit means "no limit" to MongoDB
	if q.Limit == 0 {
		return res, nil
	}

	opts := options.Find().SetSkip(int64(q.Offset)).SetLimit(int64(q.Limit))
	if q.Fields != nil {
		projection := bson.M{api.IDField: 1}
		for _, f := range q.Fields {
			projection[f] = 1
		}
		opts.SetProjection(projection)
	}

	cur, err := r.db.Collection(collection).Find(ctx, filterOrEmpty(q.Filter), opts)
	if err != nil {
		return nil, classify(err, "find failed")
	}
	defer cur.Close(ctx)

	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err, "cursor retrieval failed")
	}

	for _, d := range docs {
		res = append(res, normalize(d))
	}
	return res, nil
}

func (r *repository) Count(ctx context.Context, collection string, filter api.Filter) (int64, error) {
	n, err := r.db.Collection(collection).CountDocuments(ctx, filterOrEmpty(filter))
	if err != nil {
		return 0, classify(err, "count failed")
	}
	return n, nil
}

func (r *repository) FindOne(ctx context.Context, collection string, id primitive.ObjectID) (api.Document, error) {

	var d bson.M
	err := r.db.Collection(collection).FindOne(ctx, byID(id)).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return nil, notFound("document not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "find one failed")
	}
	return normalize(d), nil
}

func (r *repository) Insert(ctx context.Context, collection string, doc api.Document) (primitive.ObjectID, error) {

	d := doc.Without(api.IDField)
	d[api.IDField] = api.NextID()

	res, err := r.db.Collection(collection).InsertOne(ctx, d)
	if err != nil {
		return primitive.NilObjectID, errors.Wrap(err, "unable to insert document")
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.Errorf("unexpected identifier type %T", res.InsertedID)
	}
	return id, nil
}

func (r *repository) Replace(ctx context.Context, collection string, id primitive.ObjectID, doc api.Document) error {
	if _, err := r.db.Collection(collection).ReplaceOne(ctx, byID(id), doc.Without(api.IDField)); err != nil {
		return errors.Wrap(err, "unable to replace document")
	}
	return nil
}

func (r *repository) Patch(ctx context.Context, collection string, id primitive.ObjectID, fields api.Document) error {
	set := fields.Without(api.IDField)
	if len(set) == 0 {
		return nil
	}
	if _, err := r.db.Collection(collection).UpdateOne(ctx, byID(id), bson.M{"$set": set}); err != nil {
		return errors.Wrap(err, "unable to update document")
	}
	return nil
}

func (r *repository) Remove(ctx context.Context, collection string, id primitive.ObjectID) error {
	if _, err := r.db.Collection(collection).DeleteOne(ctx, byID(id)); err != nil {
		return errors.Wrap(err, "unable to delete document")
	}
	return nil
}

// normalize replaces the driver specific container types by plain maps and
// slices so that documents encode the same way whatever the store.
func normalize(m bson.M) api.Document {
	res := make(api.Document, len(m))
	for k, v := range m {
		res[k] = normalizeValue(v)
	}
	return res
}

func normalizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case bson.M:
		return map[string]interface{}(normalize(x))
	case bson.D:
		return map[string]interface{}(normalize(x.Map()))
	case bson.A:
		res := make([]interface{}, len(x))
		for i := range x {
			res[i] = normalizeValue(x[i])
		}
		return res
	}
	return v
}
