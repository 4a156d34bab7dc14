package api

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/medigo/hms-server/service/admin"
	"github.com/medigo/hms-server/service/appointment"
	"github.com/medigo/hms-server/service/auth"
	"github.com/medigo/hms-server/service/doctor"
	"github.com/medigo/hms-server/service/patient"
	"github.com/medigo/hms-server/service/record"
	"github.com/medigo/hms-server/service/specialty"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	authHandler := auth.NewHandler(s.db)
	authHandler.RegisterRoutes(subrouter)

	specialtyHandler := specialty.NewHandler(s.db)
	specialtyHandler.RegisterRoutes(subrouter)

	patientHandler := patient.NewHandler(s.db)
	patientHandler.RegisterRoutes(subrouter)

	doctorHandler := doctor.NewHandler(s.db)
	doctorHandler.RegisterRoutes(subrouter)

	appointmentHandler := appointment.NewAppointmentHandler(s.db)
	appointmentHandler.RegisterRoutes(subrouter)

	recordHandler := record.NewHandler(s.db)
	recordHandler.RegisterRoutes(subrouter)

	adminHandler := admin.NewAdminHandler(s.db)
	adminHandler.RegisterRoutes(subrouter)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, handlers.LoggingHandler(os.Stdout, cors(router)))
}
