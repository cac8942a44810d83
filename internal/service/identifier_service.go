package service

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// referenceAlphabet avoids ambiguous characters so reference numbers survive
// being read over the phone.
const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RequestIdentifiers is the triple of unique identifiers minted per request.
type RequestIdentifiers struct {
	ID              string
	RequestNo       string
	ReferenceNumber string
}

// IdentifierGenerator mints the three request identifiers. Uniqueness is
// ultimately enforced by database constraints; randomness keeps concurrent
// callers from colliding without a global lock, and the caller retries on
// the rare constraint violation.
type IdentifierGenerator struct {
	now func() time.Time
}

// NewIdentifierGenerator constructs a generator using the wall clock.
func NewIdentifierGenerator() *IdentifierGenerator {
	return &IdentifierGenerator{now: func() time.Time { return time.Now().UTC() }}
}

// Mint produces a fresh identifier triple.
func (g *IdentifierGenerator) Mint() (RequestIdentifiers, error) {
	suffix, err := randomToken(6)
	if err != nil {
		return RequestIdentifiers{}, fmt.Errorf("mint request number: %w", err)
	}
	reference, err := randomToken(10)
	if err != nil {
		return RequestIdentifiers{}, fmt.Errorf("mint reference number: %w", err)
	}
	return RequestIdentifiers{
		ID:              uuid.NewString(),
		RequestNo:       fmt.Sprintf("DR-%s-%s", g.now().Format("20060102"), suffix),
		ReferenceNumber: reference,
	}, nil
}

func randomToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return string(buf), nil
}
