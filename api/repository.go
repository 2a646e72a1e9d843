package api

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

//Repository describes the interface that a datastore should implement.
//
//FindOne returns an error implementing IsNotFound when no document matches.
//Replace, Patch and Remove on a missing identifier are no-ops.
type Repository interface {
	Init(ctx context.Context) error
	Close(ctx context.Context) error

	Find(ctx context.Context, collection string, q Query) ([]Document, error)
	Count(ctx context.Context, collection string, filter Filter) (int64, error)
	FindOne(ctx context.Context, collection string, id primitive.ObjectID) (Document, error)
	Insert(ctx context.Context, collection string, doc Document) (primitive.ObjectID, error)
	Replace(ctx context.Context, collection string, id primitive.ObjectID, doc Document) error
	Patch(ctx context.Context, collection string, id primitive.ObjectID, fields Document) error
	Remove(ctx context.Context, collection string, id primitive.ObjectID) error
}
