package session

import (
	"context"

	"github.com/rbright/vocode/internal/editor"
)

// Committer delivers literal text for utterances that are not commands, or whose matched
// pattern leaves default insertion on. snap is the context captured when resolution began.
type Committer interface {
	Commit(ctx context.Context, text string, snap editor.Snapshot) error
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc func(context.Context, string, editor.Snapshot) error

func (f CommitFunc) Commit(ctx context.Context, text string, snap editor.Snapshot) error {
	return f(ctx, text, snap)
}
