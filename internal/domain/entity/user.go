package entity

// UserState is the dialog state of a bot user.
type UserState string

const (
	StateMainMenu      UserState = "main_menu"      // idle
	StateAwaitingPhoto UserState = "awaiting_photo" // waiting for a leaf photo
	StateProcessing    UserState = "processing"     // diagnosis in flight
)

// User is a bot user.
type User struct {
	ID     int64     // Telegram user ID
	ChatID int64     // Telegram chat ID
	State  UserState // current dialog state
}

// NewUser creates a user in the main menu state.
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateMainMenu,
	}
}

// SetState updates the dialog state.
func (u *User) SetState(state UserState) {
	u.State = state
}

// Busy reports whether a diagnosis is already running for the user.
func (u *User) Busy() bool {
	return u.State == StateProcessing
}
