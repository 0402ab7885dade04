package models

import "github.com/google/uuid"

type DatabaseVersion string

const (
	DatabaseVersionFree         DatabaseVersion = "free"
	DatabaseVersionPremium      DatabaseVersion = "premium"
	DatabaseVersionProfessional DatabaseVersion = "professional"
)

func (v DatabaseVersion) Valid() bool {
	switch v {
	case DatabaseVersionFree, DatabaseVersionPremium, DatabaseVersionProfessional:
		return true
	}
	return false
}

type Project struct {
	Base
	OwnerID         uuid.UUID       `gorm:"type:uuid;index;not null" json:"owner"`
	Name            string          `gorm:"not null" json:"name"`
	DatabaseVersion DatabaseVersion `gorm:"not null;default:'free'" json:"database_version"`
	IsActive        bool            `gorm:"not null;default:false" json:"is_active"`
	URL             string          `json:"url,omitempty"`
	CanisterID      string          `json:"canister_id,omitempty"`
	Controllers     StringArray     `gorm:"type:text" json:"controllers"`
	// Code is the blob key of the most recent upload.
	Code string `json:"-"`
}

func (Project) TableName() string {
	return "projects"
}

func (p *Project) HasCode() bool {
	return p.Code != ""
}
