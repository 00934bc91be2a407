package session

import "context"

// Factory creates configured sessions. Implementations decide how resources
// are fetched and which host modules are registered with.
type Factory interface {
	NewSession(ctx context.Context, cfg Config) (*Session, error)
}
