package docrest

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xdbsoft/docrest/api"
)

var errStore = errors.New("store unreachable")

// failingRepository answers every operation with an infrastructure error
type failingRepository struct {
	initErr error
	closed  bool
}

func (r *failingRepository) Init(ctx context.Context) error {
	return r.initErr
}

func (r *failingRepository) Close(ctx context.Context) error {
	r.closed = true
	return nil
}

func (r *failingRepository) Find(ctx context.Context, collection string, q api.Query) ([]api.Document, error) {
	return nil, errStore
}

func (r *failingRepository) Count(ctx context.Context, collection string, filter api.Filter) (int64, error) {
	return 0, errStore
}

func (r *failingRepository) FindOne(ctx context.Context, collection string, id primitive.ObjectID) (api.Document, error) {
	return nil, errStore
}

func (r *failingRepository) Insert(ctx context.Context, collection string, doc api.Document) (primitive.ObjectID, error) {
	return primitive.NilObjectID, errStore
}

func (r *failingRepository) Replace(ctx context.Context, collection string, id primitive.ObjectID, doc api.Document) error {
	return errStore
}

func (r *failingRepository) Patch(ctx context.Context, collection string, id primitive.ObjectID, fields api.Document) error {
	return errStore
}

func (r *failingRepository) Remove(ctx context.Context, collection string, id primitive.ObjectID) error {
	return errStore
}

// badQueryError is what a store reports for a filter it cannot run
type badQueryError string

func (err badQueryError) Error() string {
	return string(err)
}

func (err badQueryError) IsBadRequest() bool {
	return true
}

// rejectingRepository refuses every list query as malformed
type rejectingRepository struct {
	failingRepository
}

func (r *rejectingRepository) Count(ctx context.Context, collection string, filter api.Filter) (int64, error) {
	return 0, badQueryError("unknown operator: $foo")
}
