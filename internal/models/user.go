package models

import "time"

// Role defines a user's authority in the approval workflow.
type Role string

const (
	// RoleAdmin is the final approval authority and manages reference data.
	RoleAdmin Role = "admin"
	// RolePlanning reviews requests at the planning stage.
	RolePlanning Role = "planning"
	// RoleDistrict reviews requests scoped to the officer's district.
	RoleDistrict Role = "district"
	// RolePublic can submit requests and track their own submissions.
	RolePublic Role = "public"
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePlanning, RoleDistrict, RolePublic:
		return true
	}
	return false
}

// User is an authenticated actor. District officers carry a district
// affiliation used for scope checks; it is nil for every other role.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Username   string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email      string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password   string    `gorm:"size:255;not null" json:"-"`
	FullName   string    `gorm:"size:100" json:"full_name"`
	Role       Role      `gorm:"type:varchar(20);not null;default:'public';index" json:"role"`
	DistrictID *uint     `gorm:"index" json:"district_id"`
	District   *District `gorm:"foreignKey:DistrictID" json:"district,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
