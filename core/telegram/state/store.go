package state

import "context"

// Store keeps one session value per Telegram user.
type Store[T any] interface {
	// Load returns the stored session and whether it existed.
	Load(ctx context.Context, userID int64) (T, bool, error)
	Save(ctx context.Context, userID int64, session T) error
	Delete(ctx context.Context, userID int64) error
}
