package models

import "github.com/google/uuid"

const (
	TokenTypeAuth    = "auth"
	TokenTypeProject = "project"
)

// Token is a delegated credential scoped to one project. Value holds the
// envelope-encrypted signed token handed to the client.
type Token struct {
	Base
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	ProjectID uuid.UUID `gorm:"type:uuid;index;not null" json:"project_id"`
	Type      string    `gorm:"not null;default:'project'" json:"type"`
	Value     string    `gorm:"column:token;type:text;uniqueIndex;not null" json:"token"`
	Duration  int       `gorm:"not null" json:"duration"`
	IsValid   bool      `gorm:"not null;default:true" json:"is_valid"`
}

func (Token) TableName() string {
	return "tokens"
}
