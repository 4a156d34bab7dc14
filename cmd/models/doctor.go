package models

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Specialty is a flat lookup table of medical specialties. Mutated only by
// administrative seeding.
type Specialty struct {
	gorm.Model
	Name string `gorm:"column:name;size:255;not null;uniqueIndex" json:"name"`
}

func (Specialty) TableName() string {
	return "specialties"
}

// Doctor links an identity to a specialty. Exactly one Doctor may reference a
// given User.
type Doctor struct {
	gorm.Model
	UserID      uint   `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
	SpecialtyID uint   `gorm:"column:specialty_id;not null" json:"specialty_id"`
	Contact     string `gorm:"column:contact;size:15;not null" json:"contact"`

	Qualifications pq.StringArray `gorm:"type:text[];column:qualifications" json:"qualifications,omitempty"`

	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Specialty *Specialty `gorm:"foreignKey:SpecialtyID" json:"specialty,omitempty"`
}

func (Doctor) TableName() string {
	return "doctors"
}
