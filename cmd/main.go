package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/medigo/hms-server/cmd/api"
	"github.com/medigo/hms-server/cmd/models"
	"github.com/medigo/hms-server/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations()
			return
		case "seed":
			runSeed()
			return
		case "clear-db":
			runDatabaseClear()
			return
		default:
			log.Fatalf("Unknown command: %s", os.Args[1])
		}
	}

	startServer()
}

func runMigrations() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database for migrations")

	if err := performMigrations(DB); err != nil {
		log.Fatalf("Migration error: %v", err)
	}
	log.Println("Migrations completed successfully")
}

func performMigrations(DB *gorm.DB) error {

	migrations := []struct {
		model interface{}
		name  string
	}{
		{&models.User{}, "User"},
		{&models.Specialty{}, "Specialty"},
		{&models.Patient{}, "Patient"},
		{&models.Doctor{}, "Doctor"},
		{&models.Appointment{}, "Appointment"},
		{&models.MedicalRecord{}, "MedicalRecord"},
	}

	log.Println("Starting database migrations...")
	for _, m := range migrations {
		log.Printf("Migrating %s table...", m.name)
		if err := DB.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", m.name, err)
		}
		log.Printf("%s migration successful", m.name)
	}

	log.Println("All migrations completed successfully")
	return nil
}

// runSeed inserts the standard specialty set and, when ADMIN_EMAIL and
// ADMIN_PASSWORD are set, an initial superuser. Safe to run repeatedly.
func runSeed() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()

	if err := seedSpecialties(DB); err != nil {
		log.Fatalf("Seeding error: %v", err)
	}
	if err := seedAdmin(DB); err != nil {
		log.Fatalf("Seeding error: %v", err)
	}
	log.Println("Seeding completed successfully")
}

func seedSpecialties(DB *gorm.DB) error {
	names := []string{
		"Cardiology",
		"Dermatology",
		"Neurology",
		"Orthopedics",
		"Pediatrics",
		"General Medicine",
	}

	for _, name := range names {
		specialty := models.Specialty{Name: name}
		if err := DB.Where("name = ?", name).FirstOrCreate(&specialty).Error; err != nil {
			return fmt.Errorf("error seeding specialty %s: %w", name, err)
		}
		log.Printf("Specialty %s present", name)
	}
	return nil
}

func seedAdmin(DB *gorm.DB) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	var existing models.User
	if err := DB.Where("email = ?", email).First(&existing).Error; err == nil {
		log.Printf("Admin %s already exists", email)
		return nil
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("error hashing admin password: %w", err)
	}

	admin := models.User{
		Username:     email,
		Email:        email,
		PasswordHash: string(passwordHash),
		FirstName:    "System",
		LastName:     "Administrator",
		Superuser:    true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return fmt.Errorf("error creating admin: %w", err)
	}
	log.Printf("Admin %s created", email)
	return nil
}

func startServer() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	server := api.NewApiServer(":"+port, DB)

	go func() {
		if err := server.Run(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()
	log.Printf("Server running on port %s", port)

	<-quit
	log.Println("Shutting down server...")
}

func runDatabaseClear() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()

	log.Println("Preparing to clear database...")

	var confirmation string
	fmt.Print("Are you sure you want to clear the database? (yes/no): ")
	fmt.Scanln(&confirmation)

	if confirmation != "yes" {
		log.Println("Database clearing cancelled.")
		return
	}

	tables := []interface{}{
		&models.MedicalRecord{},
		&models.Appointment{},
		&models.Doctor{},
		&models.Patient{},
		&models.Specialty{},
		&models.User{},
	}

	log.Println("Dropping tables...")
	for _, table := range tables {
		if err := DB.Migrator().DropTable(table); err != nil {
			log.Printf("Warning dropping table %T: %v", table, err)
		} else {
			log.Printf("Table %T dropped", table)
		}
	}

	log.Println("Database cleared successfully")
}
