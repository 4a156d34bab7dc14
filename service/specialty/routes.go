package specialty

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/medigo/hms-server/cmd/models"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/specialties", h.GetSpecialties).Methods("GET")
}

func (h *Handler) GetSpecialties(w http.ResponseWriter, r *http.Request) {
	var specialties []models.Specialty
	if err := h.db.Order("id").Find(&specialties).Error; err != nil {
		http.Error(w, "Error retrieving specialties", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(specialties)
}

// GetByName resolves a specialty by its unique name. Used by doctor creation.
func GetByName(db *gorm.DB, name string) (*models.Specialty, error) {
	var specialty models.Specialty
	if err := db.Where("name = ?", name).First(&specialty).Error; err != nil {
		return nil, err
	}
	return &specialty, nil
}
