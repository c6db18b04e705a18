package models

// User is a store account. TelegramID is the external channel identity (chat id), empty until bound.
type User struct {
	ID         int64
	Username   string
	TelegramID string
	IsStaff    bool
}
