package uid

import "github.com/google/uuid"

// UUID yields time-ordered v7 ids. Use it where ordering helps and guessing
// does not matter, such as correlation and token ids.
type UUID struct{}

func NewUUID() *UUID { return &UUID{} }

func (*UUID) Generate() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// RandomUUID yields v4 ids with 122 bits from crypto/rand. Challenge ids use it.
type RandomUUID struct{}

func NewRandomUUID() *RandomUUID { return &RandomUUID{} }

// Generate panics if the system CSPRNG fails.
func (*RandomUUID) Generate() string {
	return uuid.Must(uuid.NewRandom()).String()
}
