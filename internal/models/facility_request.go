package models

import "time"

// RequestType classifies what a facility request proposes.
type RequestType string

const (
	// RequestTypeAddition proposes a brand new facility.
	RequestTypeAddition RequestType = "addition"
	// RequestTypeUpdate proposes changes to a published facility.
	RequestTypeUpdate RequestType = "update"
	// RequestTypeDeactivation proposes retiring a published facility.
	RequestTypeDeactivation RequestType = "deactivation"
)

// Valid reports whether t is one of the defined request types.
func (t RequestType) Valid() bool {
	switch t {
	case RequestTypeAddition, RequestTypeUpdate, RequestTypeDeactivation:
		return true
	}
	return false
}

// RequestStatus defines lifecycle states for facility requests.
type RequestStatus string

const (
	// StatusInitiated is the initial state of every submitted request.
	StatusInitiated RequestStatus = "initiated"
	// StatusDistrictApproved indicates district-stage review passed.
	StatusDistrictApproved RequestStatus = "district_approved"
	// StatusPlanningApproved indicates planning-stage review passed.
	StatusPlanningApproved RequestStatus = "planning_approved"
	// StatusApproved is terminal; the request's payload has been published.
	StatusApproved RequestStatus = "approved"
	// StatusRejected is terminal; rejection info records who and why.
	StatusRejected RequestStatus = "rejected"
)

// Terminal reports whether no further transitions are permitted.
func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Rank places non-terminal approval states on the forward partial order
// initiated < district_approved < planning_approved < approved. Rejected has
// no rank on the chain; it is reachable from any non-terminal state.
func (s RequestStatus) Rank() int {
	switch s {
	case StatusInitiated:
		return 0
	case StatusDistrictApproved:
		return 1
	case StatusPlanningApproved:
		return 2
	case StatusApproved:
		return 3
	}
	return -1
}

// FacilityPayload is the proposed field set carried by a request. For
// update requests it is compared field by field against the published
// facility; for deactivations only the reference matters and the payload
// may be empty.
type FacilityPayload struct {
	Name         string   `json:"name"`
	Level        string   `json:"level"`
	Ownership    string   `json:"ownership"`
	Authority    string   `json:"authority"`
	Region       string   `json:"region"`
	District     string   `json:"district"`
	Subcounty    string   `json:"subcounty"`
	Address      string   `json:"address"`
	Latitude     string   `json:"latitude"`
	Longitude    string   `json:"longitude"`
	BedCapacity  int      `json:"bed_capacity"`
	Services     []string `json:"services"`
	ContactPhone string   `json:"contact_phone"`
	ContactEmail string   `json:"contact_email"`
}

// RequestDocument is a reference to an uploaded supporting file. Blob
// storage lives elsewhere; only the reference is persisted here.
type RequestDocument struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RequestID   uint      `gorm:"not null;index" json:"request_id"`
	FileName    string    `gorm:"size:255;not null" json:"file_name"`
	FileURL     string    `gorm:"size:512;not null" json:"file_url"`
	ContentType string    `gorm:"size:100" json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// FacilityRequest is a proposed addition, update or deactivation of a
// facility record awaiting approval. Status only changes through the
// workflow service; each change appends a StatusHistoryEntry.
type FacilityRequest struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Reference   string      `gorm:"size:36;uniqueIndex;not null" json:"reference"`
	RequestType RequestType `gorm:"type:varchar(20);not null;index" json:"request_type"`
	Status      RequestStatus `gorm:"type:varchar(20);not null;default:'initiated';index" json:"status"`

	Payload FacilityPayload `gorm:"serializer:json" json:"payload"`

	// FacilityID references the published facility being modified. Nil for
	// additions, required for updates and deactivations.
	FacilityID *uint     `gorm:"index" json:"facility_id"`
	Facility   *Facility `gorm:"foreignKey:FacilityID" json:"facility,omitempty"`

	// DistrictID is the request's review scope, resolved at submission
	// (target facility's district, or the payload district for additions).
	DistrictID *uint     `gorm:"index" json:"district_id"`
	District   *District `gorm:"foreignKey:DistrictID" json:"district,omitempty"`

	RequestedByUserID uint  `gorm:"not null;index" json:"requested_by_user_id"`
	RequestedByUser   *User `gorm:"foreignKey:RequestedByUserID" json:"requested_by_user,omitempty"`
	// RequestedByRole is captured at submission; it decides whether the
	// request may skip district review.
	RequestedByRole Role `gorm:"type:varchar(20);not null" json:"requested_by_role"`

	Documents []RequestDocument `gorm:"foreignKey:RequestID" json:"documents"`

	// Rejection info, populated only when Status is rejected.
	RejectedByUserID  *uint      `json:"rejected_by_user_id"`
	RejectedByUser    *User      `gorm:"foreignKey:RejectedByUserID" json:"rejected_by_user,omitempty"`
	RejectedAt        *time.Time `json:"rejected_at"`
	RejectionComments string     `gorm:"type:text" json:"rejection_comments"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
