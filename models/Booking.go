package models

import (
	"time"

	"gorm.io/gorm"
)

// BookingStatus is the closed set of booking states.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingApproved  BookingStatus = "approved"
	BookingRejected  BookingStatus = "rejected"
	BookingCompleted BookingStatus = "completed"
)

// CanTransition reports whether a status change is allowed. Only pending has
// outgoing transitions; setting a status to itself is a benign double-write
// (two concurrent approvals must not corrupt anything).
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	if s == to {
		return true
	}
	return s == BookingPending && (to == BookingApproved || to == BookingRejected)
}

// Booking links a requester account to a companion profile for a fixed-duration
// paid session. ChatEnabled records that the booking was approved at least once;
// effective chat permission is always computed via ChatOpen, never read from the
// stored flag alone.
type Booking struct {
	gorm.Model
	UserID          uint          `json:"userID" gorm:"not null;index"`
	User            User          `json:"user" gorm:"foreignKey:UserID"`
	CompanionID     uint          `json:"companionID" gorm:"not null;index"`
	Companion       Companion     `json:"companion" gorm:"foreignKey:CompanionID"`
	Date            time.Time     `json:"date" gorm:"not null"`
	DurationMinutes int           `json:"durationMinutes" gorm:"not null"`
	Price           int           `json:"price" gorm:"not null"`
	Status          BookingStatus `json:"status" gorm:"type:varchar(20);default:pending;index"`
	ChatEnabled     bool          `json:"chatEnabled" gorm:"default:false"`
}

// ChatWindowEnd is the instant the chat window closes.
func (b *Booking) ChatWindowEnd() time.Time {
	return b.Date.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// ChatOpen reports whether messaging is permitted at the given instant. The
// window is inclusive of its end: open at exactly Date+Duration, closed after.
func (b *Booking) ChatOpen(now time.Time) bool {
	return b.ChatEnabled && b.Status == BookingApproved && !now.After(b.ChatWindowEnd())
}

// TimeRemaining returns whole seconds until the window closes, floored, never
// negative.
func (b *Booking) TimeRemaining(now time.Time) int {
	remaining := int(b.ChatWindowEnd().Sub(now) / time.Second)
	if remaining < 0 {
		return 0
	}
	return remaining
}
