package api

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

//DecodeID parses the external representation of a document identifier
func DecodeID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, InvalidIdentifier(raw)
	}
	return id, nil
}

//EncodeID returns the external representation of a document identifier
func EncodeID(id primitive.ObjectID) string {
	return id.Hex()
}

//NextID generates a new identifier that could be used when creating a document
func NextID() primitive.ObjectID {
	return primitive.NewObjectID()
}

//InvalidIdentifier is returned when a string is not a valid document identifier
type InvalidIdentifier string

func (err InvalidIdentifier) Error() string {
	return fmt.Sprintf("Invalid identifier: '%s'", string(err))
}

func (err InvalidIdentifier) IsBadRequest() bool {
	return true
}
