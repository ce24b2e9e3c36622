package models

import "time"

// Facility is a published record in the Master Facility List. The workflow
// core reads it for diffing and writes it only when a request reaches the
// approved status.
type Facility struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Code         string     `gorm:"size:36;uniqueIndex;not null" json:"code"`
	Name         string     `gorm:"size:200;not null;index" json:"name"`
	Level        string     `gorm:"size:50;not null" json:"level"`
	Ownership    string     `gorm:"size:50" json:"ownership"`
	Authority    string     `gorm:"size:100" json:"authority"`
	RegionID     uint       `gorm:"not null;index" json:"region_id"`
	Region       *Region    `gorm:"foreignKey:RegionID" json:"region,omitempty"`
	DistrictID   uint       `gorm:"not null;index" json:"district_id"`
	District     *District  `gorm:"foreignKey:DistrictID" json:"district,omitempty"`
	SubcountyID  *uint      `gorm:"index" json:"subcounty_id"`
	Subcounty    *Subcounty `gorm:"foreignKey:SubcountyID" json:"subcounty,omitempty"`
	Address      string     `gorm:"size:255" json:"address"`
	// Coordinates are kept as entered; comparison is textual after
	// normalization, so no float round-tripping.
	Latitude     string    `gorm:"size:32" json:"latitude"`
	Longitude    string    `gorm:"size:32" json:"longitude"`
	BedCapacity  int       `gorm:"default:0" json:"bed_capacity"`
	Services     []string  `gorm:"serializer:json" json:"services"`
	ContactPhone string    `gorm:"size:32" json:"contact_phone"`
	ContactEmail string    `gorm:"size:100" json:"contact_email"`
	Active       bool      `gorm:"not null;default:true;index" json:"active"`
	// Version increments on every publish so downstream consumers can
	// detect which revision a webhook refers to.
	Version   int       `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AsPayload projects the published record into payload form. Administrative
// units must be preloaded; absent associations project as empty strings.
func (f *Facility) AsPayload() FacilityPayload {
	p := FacilityPayload{
		Name:         f.Name,
		Level:        f.Level,
		Ownership:    f.Ownership,
		Authority:    f.Authority,
		Address:      f.Address,
		Latitude:     f.Latitude,
		Longitude:    f.Longitude,
		BedCapacity:  f.BedCapacity,
		Services:     f.Services,
		ContactPhone: f.ContactPhone,
		ContactEmail: f.ContactEmail,
	}
	if f.Region != nil {
		p.Region = f.Region.Name
	}
	if f.District != nil {
		p.District = f.District.Name
	}
	if f.Subcounty != nil {
		p.Subcounty = f.Subcounty.Name
	}
	return p
}
