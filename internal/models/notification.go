package models

import "time"

// Notification is a stored message with a read flag. Nothing is delivered out of band.
type Notification struct {
	ID          string     `db:"id" json:"id"`
	SenderID    *string    `db:"sender_id" json:"sender_id,omitempty"`
	RecipientID string     `db:"recipient_id" json:"recipient_id"`
	Title       string     `db:"title" json:"title"`
	Message     string     `db:"message" json:"message"`
	IsRead      bool       `db:"is_read" json:"is_read"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ReadAt      *time.Time `db:"read_at" json:"read_at,omitempty"`
}

// NotificationFilter filters a recipient's inbox.
type NotificationFilter struct {
	RecipientID string
	UnreadOnly  bool
	Page        int
	PageSize    int
}
