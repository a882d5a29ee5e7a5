package sessions

import "context"

// Repo defines the interface for persisting session snapshots between processes.
// Keys are caller chosen, typically one per site profile.
type Repo interface {
	// Save creates or replaces the snapshot stored under key
	Save(ctx context.Context, key string, state State) error

	// Load returns the snapshot stored under key, or ErrSessionNotFound
	Load(ctx context.Context, key string) (State, error)

	// Delete removes the snapshot; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}
