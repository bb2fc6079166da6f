package models

import "time"

// ChatMessage stores a single message in a booking's chat.
// Immutable once created; ordered by id (creation order).
type ChatMessage struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	BookingID uint `json:"bookingID" gorm:"not null;index"`

	SenderID uint `json:"senderID" gorm:"not null;index"`
	Sender   User `json:"sender" gorm:"foreignKey:SenderID"`

	Content string `json:"content" gorm:"type:text;not null"`

	CreatedAt time.Time `json:"createdAt"`
}
