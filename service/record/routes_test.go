package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/medigo/hms-server/cmd/models"
	"github.com/medigo/hms-server/cmd/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTest(t *testing.T) (*gorm.DB, *mux.Router, models.Doctor, models.Patient, models.User) {
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

	admin := models.User{Username: "admin@example.com", Email: "admin@example.com", PasswordHash: "x", FirstName: "A", LastName: "Dmin", Superuser: true}
	require.NoError(t, db.Create(&admin).Error)

	specialty := models.Specialty{Name: "Neurology"}
	require.NoError(t, db.Create(&specialty).Error)

	doctorUser := models.User{Username: "dr@example.com", Email: "dr@example.com", PasswordHash: "x", FirstName: "Dee", LastName: "Octor"}
	require.NoError(t, db.Create(&doctorUser).Error)
	doctor := models.Doctor{UserID: doctorUser.ID, SpecialtyID: specialty.ID, Contact: "0301112222"}
	require.NoError(t, db.Create(&doctor).Error)

	patientUser := models.User{Username: "pat@example.com", Email: "pat@example.com", PasswordHash: "x", FirstName: "Pat", LastName: "Ient"}
	require.NoError(t, db.Create(&patientUser).Error)
	patient := models.Patient{UserID: patientUser.ID, Age: 40, Gender: "F", Contact: "0241234567"}
	require.NoError(t, db.Create(&patient).Error)

	return db, router, doctor, patient, admin
}

func doAs(t *testing.T, router *mux.Router, userID uint, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	token, err := utils.GenerateJWT(userID, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAddRecordStampsDateServerSide(t *testing.T) {
	db, router, doctor, patient, _ := setupTest(t)

	before := time.Now()
	w := doAs(t, router, doctor.UserID, "POST", "/records", map[string]interface{}{
		"patient_id": patient.ID,
		"diagnosis":  "Migraine",
		"treatment":  "Sumatriptan 50mg as needed",
		// A client-supplied date must be ignored.
		"date": "1970-01-01",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var record models.MedicalRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&record))
	assert.NotEmpty(t, record.RecordNumber)
	assert.Equal(t, doctor.ID, record.DoctorID)
	assert.WithinRange(t, record.Date, before.Add(-time.Second), time.Now().Add(time.Second))

	var stored models.MedicalRecord
	require.NoError(t, db.First(&stored, record.ID).Error)
	assert.WithinRange(t, stored.Date, before.Add(-time.Second), time.Now().Add(time.Second))
}

func TestOnlyDoctorsCreateRecords(t *testing.T) {
	_, router, _, patient, admin := setupTest(t)

	body := map[string]interface{}{
		"patient_id": patient.ID, "diagnosis": "D", "treatment": "T",
	}
	w := doAs(t, router, patient.UserID, "POST", "/records", body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doAs(t, router, admin.ID, "POST", "/records", body)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRecordsAreAppendOnly(t *testing.T) {
	db, router, doctor, patient, _ := setupTest(t)

	w := doAs(t, router, doctor.UserID, "POST", "/records", map[string]interface{}{
		"patient_id": patient.ID, "diagnosis": "Migraine", "treatment": "Rest",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var record models.MedicalRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&record))

	// No update or delete route exists for the ledger.
	for _, method := range []string{"PUT", "PATCH", "DELETE"} {
		w := doAs(t, router, doctor.UserID, method, fmt.Sprintf("/records/%d", record.ID),
			map[string]string{"diagnosis": "Changed"})
		assert.NotEqual(t, http.StatusOK, w.Code, method)
	}

	var stored models.MedicalRecord
	require.NoError(t, db.First(&stored, record.ID).Error)
	assert.Equal(t, "Migraine", stored.Diagnosis)
	assert.Equal(t, "Rest", stored.Treatment)
}

func TestRecordListAccess(t *testing.T) {
	db, router, doctor, patient, admin := setupTest(t)

	w := doAs(t, router, doctor.UserID, "POST", "/records", map[string]interface{}{
		"patient_id": patient.ID, "diagnosis": "Migraine", "treatment": "Rest",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// The patient reads its own records.
	w = doAs(t, router, patient.UserID, "GET", fmt.Sprintf("/records/patient/%d", patient.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var records []models.MedicalRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&records))
	assert.Len(t, records, 1)

	// Another patient cannot.
	otherUser := models.User{Username: "other@example.com", Email: "other@example.com", PasswordHash: "x", FirstName: "O", LastName: "Ther"}
	require.NoError(t, db.Create(&otherUser).Error)
	other := models.Patient{UserID: otherUser.ID, Age: 22, Gender: "O", Contact: "x"}
	require.NoError(t, db.Create(&other).Error)
	w = doAs(t, router, otherUser.ID, "GET", fmt.Sprintf("/records/patient/%d", patient.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The authoring doctor and the admin read the doctor-scoped list.
	w = doAs(t, router, doctor.UserID, "GET", fmt.Sprintf("/records/doctor/%d", doctor.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doAs(t, router, admin.ID, "GET", fmt.Sprintf("/records/doctor/%d", doctor.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
