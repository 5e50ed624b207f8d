package handlers

import (
	"fmt"

	"github.com/gosimple/slug"
	"github.com/securecontrol/backend/internal/models"
	"gorm.io/gorm"
)

// deriveUsername builds a url-safe username from the user's name and
// suffixes it until taken reports it free. A lookup failure aborts rather
// than risking a name already in use.
func deriveUsername(firstName, lastName string, taken func(string) (bool, error)) (string, error) {
	base := slug.Make(firstName + " " + lastName)
	if base == "" {
		base = "user"
	}
	username := base
	for i := 1; ; i++ {
		inUse, err := taken(username)
		if err != nil {
			return "", err
		}
		if !inUse {
			return username, nil
		}
		username = fmt.Sprintf("%s-%d", base, i)
	}
}

// usernameTaken reports whether a username already exists
func usernameTaken(db *gorm.DB) func(string) (bool, error) {
	return func(username string) (bool, error) {
		var count int64
		if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return false, err
		}
		return count > 0, nil
	}
}
