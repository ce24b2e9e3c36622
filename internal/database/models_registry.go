package database

import "mfl/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Region{},
		&models.District{},
		&models.Subcounty{},
		&models.Facility{},
		&models.FacilityRequest{},
		&models.RequestDocument{},
		&models.StatusHistoryEntry{},
		&models.WebhookSubscription{},
	}
}
