package patient

import (
	"encoding/json"
	"net/http"
	"strconv"

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

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/patients", utils.AuthMiddleware(h.db, h.GetPatients)).Methods("GET")
	router.HandleFunc("/patients/{id}", utils.AuthMiddleware(h.db, h.GetPatient)).Methods("GET")
	router.HandleFunc("/patients/{id}", utils.AuthMiddleware(h.db, h.DeletePatient)).Methods("DELETE")
}

// GetPatients lists all patients. Doctors need the full list to attach
// medical records; admins get it for the console.
func (h *Handler) GetPatients(w http.ResponseWriter, r *http.Request) {
	session, err := utils.GetSession(r)
	if err != nil || (session.Role != utils.RoleAdmin && session.Role != utils.RoleDoctor) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var patients []models.Patient
	if err := h.db.Preload("User").Order("id").Find(&patients).Error; err != nil {
		http.Error(w, "Error retrieving patients", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(patients)
}

// GetPatient returns one patient. A patient may only read its own profile.
func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	patientID, err := strconv.ParseUint(vars["id"], 10, 64)
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

	var patient models.Patient
	if err := h.db.Preload("User").First(&patient, uint(patientID)).Error; err != nil {
		http.Error(w, "Patient not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(patient)
}

// DeletePatient removes a patient together with every appointment and medical
// record that references it, plus the login identity, in one transaction.
// Doctor and specialty rows are untouched.
func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	session, err := utils.GetSession(r)
	if err != nil || session.Role != utils.RoleAdmin {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	vars := mux.Vars(r)
	patientID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid patient ID", http.StatusBadRequest)
		return
	}

	var patient models.Patient
	if err := h.db.First(&patient, uint(patientID)).Error; err != nil {
		http.Error(w, "Patient not found", http.StatusNotFound)
		return
	}

	tx := h.db.Begin()

	if err := tx.Where("patient_id = ?", patient.ID).Delete(&models.Appointment{}).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting patient", http.StatusInternalServerError)
		return
	}
	if err := tx.Where("patient_id = ?", patient.ID).Delete(&models.MedicalRecord{}).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting patient", http.StatusInternalServerError)
		return
	}
	if err := tx.Delete(&patient).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting patient", http.StatusInternalServerError)
		return
	}
	if err := tx.Delete(&models.User{}, patient.UserID).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting patient", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error deleting patient", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Patient deleted successfully",
	})
}
