package record

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/medigo/hms-server/cmd/models"
	"github.com/medigo/hms-server/cmd/utils"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// The ledger is append-only: no update or delete route is registered.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/records", utils.AuthMiddleware(h.db, h.AddRecord)).Methods("POST")
	router.HandleFunc("/records/patient/{patientId}", utils.AuthMiddleware(h.db, h.GetPatientRecords)).Methods("GET")
	router.HandleFunc("/records/doctor/{doctorId}", utils.AuthMiddleware(h.db, h.GetDoctorRecords)).Methods("GET")
}

// AddRecord creates a clinical note attributed to the calling doctor. The
// record date is stamped server-side; a client-supplied date is ignored.
func (h *Handler) AddRecord(w http.ResponseWriter, r *http.Request) {
	session, err := utils.GetSession(r)
	if err != nil || session.Role != utils.RoleDoctor {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var recordRequest struct {
		PatientID uint   `json:"patient_id"`
		Diagnosis string `json:"diagnosis"`
		Treatment string `json:"treatment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&recordRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if recordRequest.Diagnosis == "" || recordRequest.Treatment == "" {
		http.Error(w, "Diagnosis and treatment are required", http.StatusBadRequest)
		return
	}

	var patient models.Patient
	if err := h.db.First(&patient, recordRequest.PatientID).Error; err != nil {
		http.Error(w, "Patient not found", http.StatusNotFound)
		return
	}

	record := models.MedicalRecord{
		RecordNumber: uuid.New().String(),
		PatientID:    patient.ID,
		DoctorID:     session.DoctorID,
		Diagnosis:    recordRequest.Diagnosis,
		Treatment:    recordRequest.Treatment,
		Date:         time.Now(),
	}

	if err := h.db.Create(&record).Error; err != nil {
		http.Error(w, "Error creating medical record", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// GetPatientRecords lists records for one patient. Visible to that patient,
// to doctors, and to admins.
func (h *Handler) GetPatientRecords(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	patientID, err := strconv.ParseUint(vars["patientId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid patient ID", http.StatusBadRequest)
		return
	}

	session, err := utils.GetSession(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	switch session.Role {
	case utils.RoleAdmin, utils.RoleDoctor:
	case utils.RolePatient:
		if session.PatientID != uint(patientID) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	default:
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var records []models.MedicalRecord
	if err := h.db.Where("patient_id = ?", uint(patientID)).
		Preload("Doctor").Order("id").Find(&records).Error; err != nil {
		http.Error(w, "Error retrieving medical records", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// GetDoctorRecords lists records written by one doctor, visible to that doctor
// and to admins.
func (h *Handler) GetDoctorRecords(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	doctorID, err := strconv.ParseUint(vars["doctorId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid doctor ID", http.StatusBadRequest)
		return
	}

	session, err := utils.GetSession(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if session.Role != utils.RoleAdmin && !(session.Role == utils.RoleDoctor && session.DoctorID == uint(doctorID)) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var records []models.MedicalRecord
	if err := h.db.Where("doctor_id = ?", uint(doctorID)).
		Preload("Patient").Order("id").Find(&records).Error; err != nil {
		http.Error(w, "Error retrieving medical records", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
