package models

import "time"

// Region is the top level of the administrative hierarchy.
type Region struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// District belongs to a region and is the unit district officers are
// scoped to.
type District struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex:idx_district_region_name" json:"name"`
	RegionID  uint      `gorm:"not null;index;uniqueIndex:idx_district_region_name" json:"region_id"`
	Region    *Region   `gorm:"foreignKey:RegionID" json:"region,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subcounty belongs to a district.
type Subcounty struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:100;not null;uniqueIndex:idx_subcounty_district_name" json:"name"`
	DistrictID uint      `gorm:"not null;index;uniqueIndex:idx_subcounty_district_name" json:"district_id"`
	District   *District `gorm:"foreignKey:DistrictID" json:"district,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
