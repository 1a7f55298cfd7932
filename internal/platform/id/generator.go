package id

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates row and run identifiers.
type Generator interface {
	NewID() (string, error)
}

// UUIDGenerator issues random (v4) UUIDs, matching the gen_random_uuid()
// default of the postgres schema.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	v, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return v.String(), nil
}

// IsUUID reports whether raw parses as a UUID in any of the accepted forms.
func IsUUID(raw string) bool {
	_, err := uuid.Parse(raw)
	return err == nil
}
