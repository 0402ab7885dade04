package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Base
	Username     string  `json:"username"`
	Email        *string `gorm:"uniqueIndex:idx_users_email,where:deleted = false" json:"email,omitempty"`
	PasswordHash string  `json:"-"`
	PrincipalID  *string `gorm:"uniqueIndex:idx_users_principal_id,where:deleted = false" json:"principal_id,omitempty"`
	GoogleID     *string `gorm:"uniqueIndex:idx_users_google_id,where:deleted = false" json:"-"`
	Credits      int64   `gorm:"not null;default:0" json:"credits"`
	Deleted      bool    `gorm:"not null;default:false" json:"-"`

	LastCliSigninAt *time.Time `json:"last_cli_signin_at,omitempty"`

	Canisters []UserCanister `gorm:"foreignKey:UserID" json:"canisters,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// EmailValue returns the email or an empty string for principal-only users.
func (u *User) EmailValue() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

func (u *User) PrincipalValue() string {
	if u.PrincipalID == nil {
		return ""
	}
	return *u.PrincipalID
}

// UserCanister records a deployment attached to a user when a project is
// activated.
type UserCanister struct {
	Base
	UserID      uuid.UUID   `gorm:"type:uuid;index;not null" json:"-"`
	ProjectID   uuid.UUID   `gorm:"type:uuid;index" json:"project_id"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	URL         string      `json:"url"`
	Owner       string      `json:"owner"`
	CanisterID  string      `json:"canister_id"`
	Status      string      `json:"status"`
	Controllers StringArray `gorm:"type:text" json:"controllers"`
}

func (UserCanister) TableName() string {
	return "user_canisters"
}
