package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/guzelclinic/guzel/src/internal/auth"
	"github.com/guzelclinic/guzel/src/internal/database/models"
)

// DefaultAdminUsername is the account created on first start
const DefaultAdminUsername = "admin"

// InitializeDefaultData creates the default administrator when no user with
// that name exists. An empty password skips seeding.
func InitializeDefaultData(db *gorm.DB, adminPassword string) error {
	if adminPassword == "" {
		return nil
	}

	var existing models.User
	err := db.Where("username = ?", DefaultAdminUsername).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := models.User{
		Username:     DefaultAdminUsername,
		PasswordHash: hash,
		IsAdmin:      true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	return nil
}
