package admin

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/medigo/hms-server/cmd/models"
	"github.com/medigo/hms-server/cmd/utils"
	"gorm.io/gorm"
)

type AdminHandler struct {
	db *gorm.DB
}

func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

type DashboardStats struct {
	TotalPatients     int64 `json:"total_patients"`
	TotalDoctors      int64 `json:"total_doctors"`
	TotalAppointments int64 `json:"total_appointments"`
	TotalSpecialties  int64 `json:"total_specialties"`
}

// tableSpec describes one admin panel: the model behind it, which columns may
// be filtered on (and how), and which associations to preload. All panels
// share a single handler.
type tableSpec struct {
	newSlice func() interface{}
	filters  map[string]string // column -> "eq" | "like"
	preloads []string
}

var tables = map[string]tableSpec{
	"users": {
		newSlice: func() interface{} { return &[]models.User{} },
		filters:  map[string]string{"email": "like", "username": "like", "first_name": "like", "last_name": "like", "is_superuser": "eq"},
	},
	"patients": {
		newSlice: func() interface{} { return &[]models.Patient{} },
		filters:  map[string]string{"gender": "eq", "age": "eq", "contact": "like"},
		preloads: []string{"User"},
	},
	"doctors": {
		newSlice: func() interface{} { return &[]models.Doctor{} },
		filters:  map[string]string{"specialty_id": "eq", "contact": "like"},
		preloads: []string{"User", "Specialty"},
	},
	"appointments": {
		newSlice: func() interface{} { return &[]models.Appointment{} },
		filters:  map[string]string{"status": "eq", "patient_id": "eq", "doctor_id": "eq", "date": "eq"},
		preloads: []string{"Patient", "Doctor"},
	},
	"records": {
		newSlice: func() interface{} { return &[]models.MedicalRecord{} },
		filters:  map[string]string{"patient_id": "eq", "doctor_id": "eq", "record_number": "eq"},
		preloads: []string{"Patient", "Doctor"},
	},
	"specialties": {
		newSlice: func() interface{} { return &[]models.Specialty{} },
		filters:  map[string]string{"name": "like"},
	},
}

func (h *AdminHandler) RegisterRoutes(router *mux.Router) {
	adminRouter := router.PathPrefix("/admin").Subrouter()
	adminRouter.HandleFunc("/stats", utils.AuthMiddleware(h.db, h.GetDashboardStats)).Methods("GET")
	adminRouter.HandleFunc("/tables/{entity}", utils.AuthMiddleware(h.db, h.GetTable)).Methods("GET")
}

func (h *AdminHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	session, err := utils.GetSession(r)
	if err != nil || session.Role != utils.RoleAdmin {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var stats DashboardStats
	h.db.Model(&models.Patient{}).Count(&stats.TotalPatients)
	h.db.Model(&models.Doctor{}).Count(&stats.TotalDoctors)
	h.db.Model(&models.Appointment{}).Count(&stats.TotalAppointments)
	h.db.Model(&models.Specialty{}).Count(&stats.TotalSpecialties)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// GetTable serves every admin list/search panel through one filtered-table
// query. Query parameters matching the entity's whitelist become predicates;
// anything else is ignored.
func (h *AdminHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	session, err := utils.GetSession(r)
	if err != nil || session.Role != utils.RoleAdmin {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	vars := mux.Vars(r)
	spec, ok := tables[vars["entity"]]
	if !ok {
		http.Error(w, "Unknown table", http.StatusNotFound)
		return
	}

	query := h.db.Order("id")
	for _, preload := range spec.preloads {
		query = query.Preload(preload)
	}

	for param, values := range r.URL.Query() {
		kind, allowed := spec.filters[param]
		if !allowed || len(values) == 0 || values[0] == "" {
			continue
		}
		switch kind {
		case "like":
			query = query.Where(param+" LIKE ?", "%"+values[0]+"%")
		default:
			query = query.Where(param+" = ?", values[0])
		}
	}

	rows := spec.newSlice()
	if err := query.Find(rows).Error; err != nil {
		http.Error(w, "Error retrieving table", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}
