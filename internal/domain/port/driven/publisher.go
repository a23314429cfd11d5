package driven

import "context"

// Publisher defines the driven port for publishing result files (history,
// execution log) to an external repository. Publishing is best-effort; the
// monitor logs failures but never aborts a run because of them.
type Publisher interface {
	// PublishFile commits content to path with the given commit message.
	// Returns false when the remote content is already byte-identical and no
	// commit was created.
	PublishFile(ctx context.Context, path string, content []byte, message string) (bool, error)
}
