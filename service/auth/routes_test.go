package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/medigo/hms-server/cmd/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupTest(t *testing.T) (*gorm.DB, *mux.Router) {
	t.Helper()
	t.Setenv("SECRET_KEY", "test-secret")

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Specialty{}, &models.Patient{},
		&models.Doctor{}, &models.Appointment{}, &models.MedicalRecord{},
	))

	router := mux.NewRouter()
	NewHandler(db).RegisterRoutes(router)
	return db, router
}

func createUser(t *testing.T, db *gorm.DB, email, password string, superuser bool) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	user := models.User{
		Username:     email,
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    "Test",
		LastName:     "User",
		Superuser:    superuser,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegisterCreatesIdentityAndPatient(t *testing.T) {
	db, router := setupTest(t)

	w := doJSON(t, router, "POST", "/register", map[string]interface{}{
		"first_name":    "John",
		"last_name":     "Doe",
		"email":         "john.doe@example.com",
		"password":      "secret123",
		"age":           30,
		"gender":        "M",
		"contact":       "0241234567",
		"address":       "12 High Street",
		"date_of_birth": "1994-05-20",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var userCount, patientCount int64
	db.Model(&models.User{}).Count(&userCount)
	db.Model(&models.Patient{}).Count(&patientCount)
	assert.Equal(t, int64(1), userCount)
	assert.Equal(t, int64(1), patientCount)

	// The same credential must authenticate and resolve to the patient role.
	w = doJSON(t, router, "POST", "/login", map[string]string{
		"email":    "john.doe@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var loginResult map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&loginResult))
	assert.Equal(t, "patient", loginResult["role"])
	assert.NotEmpty(t, loginResult["access_token"])
	assert.NotEmpty(t, loginResult["patient_id"])
}

func TestRegisterDuplicateEmailIsAtomic(t *testing.T) {
	db, router := setupTest(t)
	createUser(t, db, "taken@example.com", "pw", false)

	w := doJSON(t, router, "POST", "/register", map[string]interface{}{
		"first_name":    "Jane",
		"last_name":     "Doe",
		"email":         "taken@example.com",
		"password":      "secret123",
		"age":           25,
		"gender":        "F",
		"contact":       "0207654321",
		"address":       "34 Low Street",
		"date_of_birth": "1999-01-01",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Neither a second identity nor a dangling patient may exist.
	var userCount, patientCount int64
	db.Model(&models.User{}).Count(&userCount)
	db.Model(&models.Patient{}).Count(&patientCount)
	assert.Equal(t, int64(1), userCount)
	assert.Equal(t, int64(0), patientCount)
}

func TestRegisterValidation(t *testing.T) {
	_, router := setupTest(t)

	base := map[string]interface{}{
		"first_name":    "Jane",
		"last_name":     "Doe",
		"email":         "jane@example.com",
		"password":      "secret123",
		"age":           25,
		"gender":        "F",
		"contact":       "0207654321",
		"address":       "34 Low Street",
		"date_of_birth": "1999-01-01",
	}

	for name, patch := range map[string]map[string]interface{}{
		"AgeTooLow":     {"age": 0},
		"AgeTooHigh":    {"age": 121},
		"BadGender":     {"gender": "X"},
		"BadDateFormat": {"date_of_birth": "01/01/1999"},
	} {
		t.Run(name, func(t *testing.T) {
			body := map[string]interface{}{}
			for k, v := range base {
				body[k] = v
			}
			for k, v := range patch {
				body[k] = v
			}
			w := doJSON(t, router, "POST", "/register", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestLoginFailureIsGeneric(t *testing.T) {
	db, router := setupTest(t)
	user := createUser(t, db, "known@example.com", "rightpw", false)
	require.NoError(t, db.Create(&models.Patient{UserID: user.ID, Age: 30, Gender: "M", Contact: "x"}).Error)

	unknown := doJSON(t, router, "POST", "/login", map[string]string{
		"email": "nobody@example.com", "password": "whatever",
	})
	wrongPassword := doJSON(t, router, "POST", "/login", map[string]string{
		"email": "known@example.com", "password": "wrongpw",
	})

	// Identical status and message for unknown identity and bad credential,
	// so the endpoint cannot be used to enumerate accounts.
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, unknown.Body.String(), wrongPassword.Body.String())
}

func TestRolePrecedenceAdminOverDoctor(t *testing.T) {
	db, router := setupTest(t)

	specialty := models.Specialty{Name: "Cardiology"}
	require.NoError(t, db.Create(&specialty).Error)

	// Superuser that is also linked to a doctor profile.
	user := createUser(t, db, "chief@example.com", "secret123", true)
	require.NoError(t, db.Create(&models.Doctor{
		UserID: user.ID, SpecialtyID: specialty.ID, Contact: "0301112222",
	}).Error)

	w := doJSON(t, router, "POST", "/login", map[string]string{
		"email": "chief@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, "admin", result["role"])
	assert.NotContains(t, result, "doctor_id")
}

func TestLoginWithoutProfileFails(t *testing.T) {
	db, router := setupTest(t)
	// Identity with neither superuser flag nor any profile row resolves to
	// anonymous and cannot log in.
	createUser(t, db, "orphan@example.com", "secret123", false)

	w := doJSON(t, router, "POST", "/login", map[string]string{
		"email": "orphan@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
