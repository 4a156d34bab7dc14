package doctor

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/medigo/hms-server/cmd/models"
	"github.com/medigo/hms-server/cmd/utils"
	"github.com/medigo/hms-server/service/specialty"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/doctors", utils.AuthMiddleware(h.db, h.AddDoctor)).Methods("POST")
	router.HandleFunc("/doctors", utils.AuthMiddleware(h.db, h.GetDoctors)).Methods("GET")
	router.HandleFunc("/doctors/{id}", utils.AuthMiddleware(h.db, h.GetDoctor)).Methods("GET")
	router.HandleFunc("/doctors/{id}", utils.AuthMiddleware(h.db, h.DeleteDoctor)).Methods("DELETE")
}

// AddDoctor creates the identity and the doctor profile in one transaction.
// Admin only.
func (h *Handler) AddDoctor(w http.ResponseWriter, r *http.Request) {
	session, err := utils.GetSession(r)
	if err != nil || session.Role != utils.RoleAdmin {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var addRequest struct {
		FirstName      string   `json:"first_name"`
		LastName       string   `json:"last_name"`
		Email          string   `json:"email"`
		Password       string   `json:"password"`
		Specialty      string   `json:"specialty"`
		Contact        string   `json:"contact"`
		Qualifications []string `json:"qualifications"`
	}
	if err := json.NewDecoder(r.Body).Decode(&addRequest); err != nil {
		http.Error(w, "Invalid JSON input", http.StatusBadRequest)
		return
	}

	if addRequest.FirstName == "" || addRequest.LastName == "" ||
		addRequest.Email == "" || addRequest.Password == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	spec, err := specialty.GetByName(h.db, addRequest.Specialty)
	if err != nil {
		http.Error(w, "Specialty not found", http.StatusNotFound)
		return
	}

	var existingUser models.User
	if result := h.db.Where("email = ? OR username = ?", addRequest.Email, addRequest.Email).First(&existingUser); !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		if result.Error != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		log.Printf("Doctor creation attempt with duplicate email %s", addRequest.Email)
		http.Error(w, "Email is already in use", http.StatusConflict)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(addRequest.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	tx := h.db.Begin()

	user := models.User{
		Username:     addRequest.Email,
		Email:        addRequest.Email,
		PasswordHash: string(passwordHash),
		FirstName:    addRequest.FirstName,
		LastName:     addRequest.LastName,
	}
	if err := tx.Create(&user).Error; err != nil {
		tx.Rollback()
		if strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "duplicate key") {
			http.Error(w, "Email is already in use", http.StatusConflict)
			return
		}
		http.Error(w, "Error creating doctor", http.StatusInternalServerError)
		return
	}

	doctor := models.Doctor{
		UserID:         user.ID,
		SpecialtyID:    spec.ID,
		Contact:        addRequest.Contact,
		Qualifications: addRequest.Qualifications,
	}
	if err := tx.Create(&doctor).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error creating doctor profile", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error committing transaction", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "Doctor added successfully",
		"user_id":   user.ID,
		"doctor_id": doctor.ID,
	})
}

// GetDoctors lists doctors, optionally filtered by specialty name. The booking
// flow uses the filter to offer doctors for a chosen specialty.
func (h *Handler) GetDoctors(w http.ResponseWriter, r *http.Request) {
	session, err := utils.GetSession(r)
	if err != nil || session.Role == utils.RoleAnonymous {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	query := h.db.Model(&models.Doctor{}).Preload("User").Preload("Specialty").Order("doctors.id")

	if name := r.URL.Query().Get("specialty"); name != "" {
		query = query.Joins("JOIN specialties ON specialties.id = doctors.specialty_id").
			Where("specialties.name = ?", name)
	}

	var doctors []models.Doctor
	if err := query.Find(&doctors).Error; err != nil {
		http.Error(w, "Error retrieving doctors", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doctors)
}

func (h *Handler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	doctorID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid doctor ID", http.StatusBadRequest)
		return
	}

	session, err := utils.GetSession(r)
	if err != nil || session.Role == utils.RoleAnonymous {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var doctor models.Doctor
	if err := h.db.Preload("User").Preload("Specialty").First(&doctor, uint(doctorID)).Error; err != nil {
		http.Error(w, "Doctor not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doctor)
}

// DeleteDoctor removes a doctor with its dependent appointments and records,
// plus the identity, in one transaction. Admin only.
func (h *Handler) DeleteDoctor(w http.ResponseWriter, r *http.Request) {
	session, err := utils.GetSession(r)
	if err != nil || session.Role != utils.RoleAdmin {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	vars := mux.Vars(r)
	doctorID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid doctor ID", http.StatusBadRequest)
		return
	}

	var doctor models.Doctor
	if err := h.db.First(&doctor, uint(doctorID)).Error; err != nil {
		http.Error(w, "Doctor not found", http.StatusNotFound)
		return
	}

	tx := h.db.Begin()

	if err := tx.Where("doctor_id = ?", doctor.ID).Delete(&models.Appointment{}).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting doctor", http.StatusInternalServerError)
		return
	}
	if err := tx.Where("doctor_id = ?", doctor.ID).Delete(&models.MedicalRecord{}).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting doctor", http.StatusInternalServerError)
		return
	}
	if err := tx.Delete(&doctor).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting doctor", http.StatusInternalServerError)
		return
	}
	if err := tx.Delete(&models.User{}, doctor.UserID).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting doctor", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error deleting doctor", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Doctor deleted successfully",
	})
}
