// Package history persists completed conversation turns.
//
// Writes are best effort: the session logs a failed Save and moves on.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrPersistence wraps every storage failure.
var ErrPersistence = errors.New("history: persistence failed")

// Record is one completed turn.
type Record struct {
	ID               string    `json:"id,omitempty"`
	UserInput        string    `json:"user_input"`
	AIResponse       string    `json:"ai_response"`
	ProcessingTimeMs float64   `json:"processing_time"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewRecord stamps a record with a fresh id and the current time.
func NewRecord(userInput, aiResponse string, processingTimeMs float64) Record {
	return Record{
		ID:               uuid.NewString(),
		UserInput:        userInput,
		AIResponse:       aiResponse,
		ProcessingTimeMs: processingTimeMs,
		CreatedAt:        time.Now().UTC(),
	}
}

// Sink stores records.
type Sink interface {
	Save(ctx context.Context, rec Record) error
	Close() error
}

// Reader lists stored records, newest first.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// Nop discards records.
type Nop struct{}

func (Nop) Save(ctx context.Context, rec Record) error { return nil }
func (Nop) Close() error                              { return nil }

func wrap(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

var _ Sink = Nop{}
