package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	StatusBooked    = "BOOKED"
	StatusCancelled = "CANCELLED"
	StatusCompleted = "COMPLETED"
)

// Appointment is a ledger entry linking a patient and a doctor at a date and
// time. Rows are never deleted directly; only the status field is mutated.
// There is deliberately no uniqueness over (doctor, date, time) — the system
// accepts conflicting bookings.
type Appointment struct {
	gorm.Model
	PatientID uint      `gorm:"column:patient_id;not null" json:"patient_id"`
	DoctorID  uint      `gorm:"column:doctor_id;not null" json:"doctor_id"`
	Date      time.Time `gorm:"column:date;not null" json:"date"`
	Time      string    `gorm:"column:time;size:5;not null" json:"time"`
	Status    string    `gorm:"column:status;size:10;not null;default:BOOKED" json:"status"`

	Patient *Patient `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE" json:"patient,omitempty"`
	Doctor  *Doctor  `gorm:"foreignKey:DoctorID;constraint:OnDelete:CASCADE" json:"doctor,omitempty"`
}

func ValidStatus(s string) bool {
	return s == StatusBooked || s == StatusCancelled || s == StatusCompleted
}
