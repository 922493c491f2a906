package database

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/suman7063/Restaurant-Managment-sub002/models"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

// Migrate creates or updates every table, including the unique guard
// indexes on sessions and session customers.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}
	utils.InfoLogger.Printf("Migrated %d models", len(models.All()))
	return nil
}

// SeedOwner creates a restaurant and its owner account when no user exists
// yet, so a fresh install can log in.
func SeedOwner(db *gorm.DB, restaurantName, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		restaurant := models.Restaurant{Name: restaurantName}
		if err := tx.Create(&restaurant).Error; err != nil {
			return err
		}
		owner := models.User{
			RestaurantID: restaurant.ID,
			Name:         "Owner",
			Email:        email,
			Password:     string(hash),
			Role:         models.RoleOwner,
		}
		if err := tx.Create(&owner).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil
			}
			return err
		}
		utils.InfoLogger.Printf("Seeded owner %s for restaurant %d", email, restaurant.ID)
		return nil
	})
}
