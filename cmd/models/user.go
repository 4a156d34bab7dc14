package models

import (
	"gorm.io/gorm"
)

// User is the login identity for every person in the system. Role is not
// stored here; it is derived from the Superuser flag and from which profile
// table references the user.
type User struct {
	gorm.Model
	Username     string `gorm:"column:username;size:255;not null;uniqueIndex" json:"username"`
	Email        string `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null" json:"-"`
	FirstName    string `gorm:"column:first_name;size:255;not null" json:"first_name"`
	LastName     string `gorm:"column:last_name;size:255;not null" json:"last_name"`
	Superuser    bool   `gorm:"column:is_superuser;default:false" json:"is_superuser"`

	Patient *Patient `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"patient,omitempty"`
	Doctor  *Doctor  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"doctor,omitempty"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
