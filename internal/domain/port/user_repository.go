package port

import (
	"context"

	"leaf-doctor/internal/domain/entity"
)

// UserRepository stores bot dialog state.
type UserRepository interface {
	// Get returns the user, creating one on first contact.
	Get(ctx context.Context, userID, chatID int64) (*entity.User, error)

	Save(ctx context.Context, user *entity.User) error

	UpdateState(ctx context.Context, userID int64, state entity.UserState) error
}
