package storage

import (
	"context"
	"sync"

	"leaf-doctor/internal/domain/entity"
	"leaf-doctor/internal/domain/port"
)

// MemoryUserRepository keeps bot dialog state in process memory. Callers
// get copies; changes are visible only after Save or UpdateState.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[int64]entity.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[int64]entity.User),
	}
}

// Get returns the user, registering a new one in the main menu on first contact.
func (r *MemoryUserRepository) Get(_ context.Context, userID, chatID int64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		user = *entity.NewUser(userID, chatID)
		r.users[userID] = user
	}
	return &user, nil
}

func (r *MemoryUserRepository) Save(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	r.users[user.ID] = *user
	r.mu.Unlock()
	return nil
}

// UpdateState changes the state of a known user; unknown IDs are ignored.
func (r *MemoryUserRepository) UpdateState(_ context.Context, userID int64, state entity.UserState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.users[userID]; ok {
		user.SetState(state)
		r.users[userID] = user
	}
	return nil
}

var _ port.UserRepository = (*MemoryUserRepository)(nil)
