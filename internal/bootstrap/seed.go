package bootstrap

import (
	"errors"

	"anoa.com/campuscomplaint/internal/entity"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate creates the schema. Parents go first so cascade constraints resolve.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Complaint{},
		&entity.AuditEntry{},
		&entity.Attachment{},
		&entity.Feedback{},
		&entity.Notification{},
	)
}

// SeedAdminUser makes sure the configured identity exists locally as an admin,
// so new complaints have someone to notify before any admin has signed in.
func SeedAdminUser(db *gorm.DB, log logrus.FieldLogger, id, email string) error {
	if id == "" {
		return nil
	}

	var existing entity.User
	err := db.Where("id = ?", id).First(&existing).Error
	if err == nil {
		if existing.Role != entity.RoleAdmin {
			return db.Model(&existing).Update("role", entity.RoleAdmin).Error
		}
		log.WithField("user_id", id).Info("Admin user already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	admin := entity.User{
		ID:    id,
		Email: email,
		Role:  entity.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.WithField("user_id", id).Info("Seeded admin user")
	return nil
}
