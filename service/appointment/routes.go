package appointment

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/medigo/hms-server/cmd/models"
	"github.com/medigo/hms-server/cmd/utils"
	"gorm.io/gorm"
)

type AppointmentHandler struct {
	db *gorm.DB
}

func NewAppointmentHandler(db *gorm.DB) *AppointmentHandler {
	return &AppointmentHandler{db: db}
}

func (h *AppointmentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/appointments/book", utils.AuthMiddleware(h.db, h.BookAppointment)).Methods("POST")
	router.HandleFunc("/appointments", utils.AuthMiddleware(h.db, h.GetAllAppointments)).Methods("GET")
	router.HandleFunc("/appointments/{id}", utils.AuthMiddleware(h.db, h.GetAppointment)).Methods("GET")
	router.HandleFunc("/appointments/{id}/cancel", utils.AuthMiddleware(h.db, h.CancelAppointment)).Methods("PATCH")
	router.HandleFunc("/appointments/{id}/status", utils.AuthMiddleware(h.db, h.UpdateStatus)).Methods("PATCH")
	router.HandleFunc("/appointments/patient/{patientId}", utils.AuthMiddleware(h.db, h.GetPatientAppointments)).Methods("GET")
	router.HandleFunc("/appointments/doctor/{doctorId}", utils.AuthMiddleware(h.db, h.GetDoctorAppointments)).Methods("GET")
}

// BookAppointment creates a BOOKED appointment for the calling patient.
// There is no conflict check: two bookings for the same doctor at the same
// date and time both succeed.
func (h *AppointmentHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	session, err := utils.GetSession(r)
	if err != nil || session.Role != utils.RolePatient {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var bookingRequest struct {
		DoctorID uint   `json:"doctor_id"`
		Date     string `json:"date"`
		Time     string `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&bookingRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	date, err := time.Parse("2006-01-02", bookingRequest.Date)
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("15:04", bookingRequest.Time); err != nil {
		http.Error(w, "Invalid time, expected HH:MM", http.StatusBadRequest)
		return
	}

	var doctor models.Doctor
	if err := h.db.First(&doctor, bookingRequest.DoctorID).Error; err != nil {
		http.Error(w, "Doctor not found", http.StatusNotFound)
		return
	}

	appointment := models.Appointment{
		PatientID: session.PatientID,
		DoctorID:  doctor.ID,
		Date:      date,
		Time:      bookingRequest.Time,
		Status:    models.StatusBooked,
	}

	if err := h.db.Create(&appointment).Error; err != nil {
		http.Error(w, "Error creating appointment", http.StatusInternalServerError)
		return
	}

	h.db.Preload("Patient").Preload("Doctor").First(&appointment, appointment.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(appointment)
}

// CancelAppointment sets the status to CANCELLED. Only the referenced patient
// or an admin may cancel. Cancelling an already cancelled appointment is a
// no-op, not an error.
func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
		return
	}

	session, err := utils.GetSession(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var appointment models.Appointment
	if err := h.db.First(&appointment, uint(appointmentID)).Error; err != nil {
		http.Error(w, "Appointment not found", http.StatusNotFound)
		return
	}

	switch session.Role {
	case utils.RoleAdmin:
	case utils.RolePatient:
		if appointment.PatientID != session.PatientID {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	default:
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if appointment.Status != models.StatusCancelled {
		if err := h.db.Model(&appointment).Update("status", models.StatusCancelled).Error; err != nil {
			http.Error(w, "Error cancelling appointment", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Appointment cancelled",
		"status":  models.StatusCancelled,
	})
}

// UpdateStatus overwrites the appointment status. A doctor may update its own
// appointments (marking them COMPLETED in practice); an admin may update any.
// No transition rule is enforced: any of the three states may replace any
// other.
func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
		return
	}

	var statusUpdate struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&statusUpdate); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !models.ValidStatus(statusUpdate.Status) {
		http.Error(w, "Status must be one of BOOKED, CANCELLED, COMPLETED", http.StatusBadRequest)
		return
	}

	session, err := utils.GetSession(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var appointment models.Appointment
	if err := h.db.First(&appointment, uint(appointmentID)).Error; err != nil {
		http.Error(w, "Appointment not found", http.StatusNotFound)
		return
	}

	switch session.Role {
	case utils.RoleAdmin:
	case utils.RoleDoctor:
		if appointment.DoctorID != session.DoctorID {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	default:
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := h.db.Model(&appointment).Update("status", statusUpdate.Status).Error; err != nil {
		http.Error(w, "Error updating appointment status", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Appointment status updated",
		"status":  statusUpdate.Status,
	})
}

// GetAllAppointments lists every appointment, admin only, in insertion order.
func (h *AppointmentHandler) GetAllAppointments(w http.ResponseWriter, r *http.Request) {
	session, err := utils.GetSession(r)
	if err != nil || session.Role != utils.RoleAdmin {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	query := h.db.Model(&models.Appointment{}).Preload("Patient").Preload("Doctor")

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if date := r.URL.Query().Get("date"); date != "" {
		query = query.Where("date = ?", date)
	}

	var appointments []models.Appointment
	if err := query.Order("id").Find(&appointments).Error; err != nil {
		http.Error(w, "Error retrieving appointments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(appointments)
}

func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
		return
	}

	session, err := utils.GetSession(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var appointment models.Appointment
	if err := h.db.Preload("Patient").Preload("Doctor").First(&appointment, uint(appointmentID)).Error; err != nil {
		http.Error(w, "Appointment not found", http.StatusNotFound)
		return
	}

	switch session.Role {
	case utils.RoleAdmin:
	case utils.RolePatient:
		if appointment.PatientID != session.PatientID {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	case utils.RoleDoctor:
		if appointment.DoctorID != session.DoctorID {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	default:
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(appointment)
}

// GetPatientAppointments lists appointments for one patient, visible to that
// patient and to admins.
func (h *AppointmentHandler) GetPatientAppointments(w http.ResponseWriter, r *http.Request) {
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
	if session.Role != utils.RoleAdmin && !(session.Role == utils.RolePatient && session.PatientID == uint(patientID)) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var appointments []models.Appointment
	if err := h.db.Where("patient_id = ?", uint(patientID)).
		Preload("Doctor").Order("id").Find(&appointments).Error; err != nil {
		http.Error(w, "Error retrieving appointments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(appointments)
}

// GetDoctorAppointments lists appointments for one doctor, visible to that
// doctor and to admins.
func (h *AppointmentHandler) GetDoctorAppointments(w http.ResponseWriter, r *http.Request) {
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

	var appointments []models.Appointment
	if err := h.db.Where("doctor_id = ?", uint(doctorID)).
		Preload("Patient").Order("id").Find(&appointments).Error; err != nil {
		http.Error(w, "Error retrieving appointments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(appointments)
}
