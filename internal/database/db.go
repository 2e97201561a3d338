package database

import (
	"log"

	"romaneio-backend/internal/config"
	"romaneio-backend/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Could not connect to the database: %v", err)
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.AuditLog{},
	)
	if err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	bootstrapAdmin(cfg)

	log.Println("Database connected, migration complete.")
}

// bootstrapAdmin creates the first admin account when the users table is
// empty. Without it a fresh deployment has no way to log in.
func bootstrapAdmin(cfg *config.Config) {
	var count int64
	DB.Model(&models.User{}).Count(&count)
	if count > 0 {
		return
	}

	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPassword == "" {
		log.Println("[WARN] Users table is empty and no BOOTSTRAP_ADMIN_EMAIL/BOOTSTRAP_ADMIN_PASSWORD set, nobody can log in.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.BootstrapAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Bootstrap admin password could not be hashed: %v", err)
	}

	admin := models.User{
		Name:         "Administrator",
		Email:        cfg.BootstrapAdminEmail,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		Active:       true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		log.Fatalf("Bootstrap admin could not be created: %v", err)
	}
	log.Printf("Bootstrap admin %s created.", admin.Email)
}
