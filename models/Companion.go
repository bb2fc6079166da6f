package models

import "gorm.io/gorm"

// Companion is the 1:1 profile extension of an account with role companion.
// Exactly one profile per account, created only by the account holder.
type Companion struct {
	gorm.Model
	UserID       uint    `json:"userID" gorm:"not null;uniqueIndex"`
	User         User    `json:"user" gorm:"foreignKey:UserID"`
	Bio          string  `json:"bio" gorm:"type:text"`
	PricePerHour float64 `json:"pricePerHour" gorm:"not null"`
	Rating       float64 `json:"rating" gorm:"default:0"`
	ImageURL     string  `json:"imageURL" gorm:"size:512"`
	Availability *bool   `json:"availability" gorm:"default:true"`
}

// Available reports whether the companion currently accepts bookings.
func (c *Companion) Available() bool {
	return c.Availability == nil || *c.Availability
}
