package consultation

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewID returns a fresh 24-character hex identifier. ObjectIDs are used for
// every storage driver so file names stay compatible across backends.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ParseID validates s and returns its canonical lower-case form.
func ParseID(s string) (string, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	if err != nil {
		return "", ErrInvalidID
	}
	return oid.Hex(), nil
}
