package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	GenderMale   = "M"
	GenderFemale = "F"
	GenderOther  = "O"
)

// Patient holds the demographic profile for an identity. Exactly one Patient
// may reference a given User.
type Patient struct {
	gorm.Model
	UserID      uint      `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
	Age         int       `gorm:"column:age;not null" json:"age"`
	Gender      string    `gorm:"column:gender;size:1;not null" json:"gender"`
	Contact     string    `gorm:"column:contact;size:15;not null" json:"contact"`
	Address     string    `gorm:"column:address;type:text" json:"address"`
	DateOfBirth time.Time `gorm:"column:date_of_birth;not null" json:"date_of_birth"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Patient) TableName() string {
	return "patients"
}

func ValidGender(g string) bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}
