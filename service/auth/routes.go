package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/medigo/hms-server/cmd/models"
	"github.com/medigo/hms-server/cmd/utils"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/login", h.HandleLogin).Methods("POST")
	router.HandleFunc("/register", h.HandleRegister).Methods("POST")
	router.HandleFunc("/me", utils.AuthMiddleware(h.db, h.HandleWhoAmI)).Methods("GET")
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&loginRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Unknown email and wrong password produce the same response so callers
	// cannot enumerate registered addresses.
	var user models.User
	if err := h.db.Where("email = ?", loginRequest.Email).First(&user).Error; err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(loginRequest.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	session := utils.ResolveSession(h.db, &user)
	if session.Role == utils.RoleAnonymous {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	accessToken, err := utils.GenerateJWT(user.ID, 24*time.Hour)
	if err != nil {
		http.Error(w, "Error generating access token", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"message":      "Login successful",
		"access_token": accessToken,
		"user_id":      user.ID,
		"role":         session.Role,
	}
	if session.PatientID != 0 {
		response["patient_id"] = session.PatientID
	}
	if session.DoctorID != 0 {
		response["doctor_id"] = session.DoctorID
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// HandleRegister creates the identity and the patient profile in one
// transaction: either both rows exist afterwards or neither does.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var registerRequest struct {
		FirstName   string `json:"first_name"`
		LastName    string `json:"last_name"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		Age         int    `json:"age"`
		Gender      string `json:"gender"`
		Contact     string `json:"contact"`
		Address     string `json:"address"`
		DateOfBirth string `json:"date_of_birth"`
	}
	if err := json.NewDecoder(r.Body).Decode(&registerRequest); err != nil {
		http.Error(w, "Invalid JSON input", http.StatusBadRequest)
		return
	}

	if registerRequest.FirstName == "" || registerRequest.LastName == "" ||
		registerRequest.Email == "" || registerRequest.Password == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}
	if registerRequest.Age < 1 || registerRequest.Age > 120 {
		http.Error(w, "Age must be between 1 and 120", http.StatusBadRequest)
		return
	}
	if !models.ValidGender(registerRequest.Gender) {
		http.Error(w, "Gender must be one of M, F, O", http.StatusBadRequest)
		return
	}
	dob, err := time.Parse("2006-01-02", registerRequest.DateOfBirth)
	if err != nil {
		http.Error(w, "Invalid date of birth, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	var existingUser models.User
	if result := h.db.Where("email = ? OR username = ?", registerRequest.Email, registerRequest.Email).First(&existingUser); !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		if result.Error != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		log.Printf("Registration attempt with duplicate email %s", registerRequest.Email)
		http.Error(w, "Registration failed. Email may already exist.", http.StatusConflict)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(registerRequest.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	tx := h.db.Begin()

	user := models.User{
		Username:     registerRequest.Email,
		Email:        registerRequest.Email,
		PasswordHash: string(passwordHash),
		FirstName:    registerRequest.FirstName,
		LastName:     registerRequest.LastName,
	}

	if err := tx.Create(&user).Error; err != nil {
		tx.Rollback()
		if strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "duplicate key") {
			http.Error(w, "Registration failed. Email may already exist.", http.StatusConflict)
			return
		}
		http.Error(w, "Error registering user", http.StatusInternalServerError)
		return
	}

	patient := models.Patient{
		UserID:      user.ID,
		Age:         registerRequest.Age,
		Gender:      registerRequest.Gender,
		Contact:     registerRequest.Contact,
		Address:     registerRequest.Address,
		DateOfBirth: dob,
	}

	if err := tx.Create(&patient).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error creating patient profile", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error committing transaction", http.StatusInternalServerError)
		return
	}

	go func() {
		if err := sendWelcomeEmail(user.Email, user.FirstName); err != nil {
			log.Printf("Error sending welcome email: %v", err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":    "Registration successful! Please login.",
		"user_id":    user.ID,
		"patient_id": patient.ID,
	})
}

// HandleWhoAmI returns the resolved session for the caller's token.
func (h *Handler) HandleWhoAmI(w http.ResponseWriter, r *http.Request) {
	session, err := utils.GetSession(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	response := map[string]interface{}{
		"user_id": session.UserID,
		"role":    session.Role,
	}
	if session.PatientID != 0 {
		response["patient_id"] = session.PatientID
	}
	if session.DoctorID != 0 {
		response["doctor_id"] = session.DoctorID
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func sendWelcomeEmail(email, firstName string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	if smtpHost == "" {
		return nil
	}
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Welcome to the hospital portal")
	m.SetBody("text/plain", fmt.Sprintf("Hello %s, your patient account has been created. You can now log in and book appointments.", firstName))

	port, err := strconv.Atoi(smtpPort)
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %v", err)
	}
	d := gomail.NewDialer(smtpHost, port, smtpUser, smtpPass)

	return d.DialAndSend(m)
}
