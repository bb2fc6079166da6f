package models

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Role is the closed set of account roles. It is fixed at registration and
// decoded from token claims; never treat an arbitrary string as a Role.
type Role string

const (
	RoleUser      Role = "user"
	RoleCompanion Role = "companion"
	RoleAdmin     Role = "admin"
)

// ParseRole maps free-form input onto a known role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleCompanion, RoleAdmin:
		return r, true
	}
	return "", false
}

type User struct {
	gorm.Model
	Name      string         `json:"name" gorm:"size:100;not null"`
	Email     string         `json:"email" gorm:"size:120;uniqueIndex;not null"`
	Password  string         `json:"-"`
	Role      Role           `json:"role" gorm:"type:varchar(20);default:user;index"`
	State     string         `json:"state" gorm:"size:100"`
	District  string         `json:"district" gorm:"size:100"`
	Age       int            `json:"age"`
	Interests datatypes.JSON `json:"interests"`
}

// InterestTags decodes the stored interest set; a missing or malformed column
// reads as no tags.
func (u *User) InterestTags() []string {
	if u.Interests == nil {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(u.Interests, &tags); err != nil {
		return nil
	}
	return tags
}

// Custom JSON marshaling so Interests renders as a string array, never raw bytes
func (u *User) MarshalJSON() ([]byte, error) {
	type Alias User
	aux := &struct {
		Interests []string `json:"interests"`
		*Alias
	}{
		Interests: []string{},
		Alias:     (*Alias)(u),
	}

	if tags := u.InterestTags(); tags != nil {
		aux.Interests = tags
	}

	return json.Marshal(aux)
}
