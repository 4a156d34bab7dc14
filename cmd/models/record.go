package models

import (
	"time"

	"gorm.io/gorm"
)

// MedicalRecord is an append-only clinical note. Date is stamped at insert
// time and never changes; no handler exposes an update or delete path.
type MedicalRecord struct {
	gorm.Model
	RecordNumber string    `gorm:"column:record_number;size:36;not null;uniqueIndex" json:"record_number"`
	PatientID    uint      `gorm:"column:patient_id;not null" json:"patient_id"`
	DoctorID     uint      `gorm:"column:doctor_id;not null" json:"doctor_id"`
	Diagnosis    string    `gorm:"column:diagnosis;type:text;not null" json:"diagnosis"`
	Treatment    string    `gorm:"column:treatment;type:text;not null" json:"treatment"`
	Date         time.Time `gorm:"column:date;not null" json:"date"`

	Patient *Patient `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE" json:"patient,omitempty"`
	Doctor  *Doctor  `gorm:"foreignKey:DoctorID;constraint:OnDelete:CASCADE" json:"doctor,omitempty"`
}

func (MedicalRecord) TableName() string {
	return "medical_records"
}
