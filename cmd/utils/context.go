package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/medigo/hms-server/cmd/models"
	"gorm.io/gorm"
)

type contextKey string

const SessionKey contextKey = "session"

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDoctor    Role = "doctor"
	RolePatient   Role = "patient"
	RoleAnonymous Role = "anonymous"
)

// Session identifies the caller of one request. It is built per request from
// the bearer token and passed through the request context; there is no global
// login state.
type Session struct {
	Role      Role
	UserID    uint
	PatientID uint // set when Role == RolePatient
	DoctorID  uint // set when Role == RoleDoctor
}

// ResolveSession classifies an authenticated user into a role. Precedence is
// admin, then doctor, then patient: a superuser that also has a doctor profile
// resolves to admin.
func ResolveSession(db *gorm.DB, user *models.User) Session {
	session := Session{Role: RoleAnonymous, UserID: user.ID}

	if user.Superuser {
		session.Role = RoleAdmin
		return session
	}

	var doctor models.Doctor
	if err := db.Where("user_id = ?", user.ID).First(&doctor).Error; err == nil {
		session.Role = RoleDoctor
		session.DoctorID = doctor.ID
		return session
	}

	var patient models.Patient
	if err := db.Where("user_id = ?", user.ID).First(&patient).Error; err == nil {
		session.Role = RolePatient
		session.PatientID = patient.ID
		return session
	}

	return session
}

func GetSession(r *http.Request) (Session, error) {
	session, ok := r.Context().Value(SessionKey).(Session)
	if !ok {
		return Session{Role: RoleAnonymous}, errors.New("session not found in context")
	}
	return session, nil
}

func GenerateJWT(userID uint, ttl time.Duration) (string, error) {
	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(userID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("SECRET_KEY")))
}

// AuthMiddleware parses the bearer token, loads the identity and resolves its
// role, storing the resulting Session in the request context. Handlers decide
// for themselves which roles may reach them.
func AuthMiddleware(db *gorm.DB, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.Replace(authHeader, "Bearer ", "", 1)

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(os.Getenv("SECRET_KEY")), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		userID, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil {
			http.Error(w, "Invalid user ID in token", http.StatusUnauthorized)
			return
		}

		var user models.User
		if err := db.First(&user, uint(userID)).Error; err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		session := ResolveSession(db, &user)
		ctx := context.WithValue(r.Context(), SessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}
