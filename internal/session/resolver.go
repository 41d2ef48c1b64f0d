package session

import (
	"context"
	"errors"

	"github.com/rbright/vocode/internal/resolve"
)

var (
	// ErrBusy rejects an utterance submitted while another is still resolving.
	ErrBusy = errors.New("a resolution is already in progress")
	// ErrEmptyUtterance marks input that normalized to nothing (silence, fillers, recognizer artifacts).
	ErrEmptyUtterance = errors.New("utterance is empty after normalization")
)

// Resolver decides and runs one utterance. resolve.Pipeline satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, utterance string) (resolve.Outcome, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(context.Context, string) (resolve.Outcome, error)

func (f ResolverFunc) Resolve(ctx context.Context, utterance string) (resolve.Outcome, error) {
	return f(ctx, utterance)
}
