package dto

import (
	"time"

	"github.com/hugh/canicloud/internal/api/validation"
	"github.com/hugh/canicloud/internal/database/models"
)

func validateVersion(errors map[string]string, v models.DatabaseVersion, required bool) {
	if v == "" {
		if required {
			errors["databaseVersion"] = "Database version is required"
		}
		return
	}
	if !v.Valid() {
		errors["databaseVersion"] = "Database version must be one of free, premium, professional"
	}
}

type CreateProjectRequest struct {
	Name            string                 `json:"name"`
	DatabaseVersion models.DatabaseVersion `json:"databaseVersion,omitempty"`
}

func (r CreateProjectRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Name == "" {
		errors["name"] = "Name is required"
	} else if !validation.IsValidProjectName(r.Name) {
		errors["name"] = "Name may only contain letters, digits, spaces, dots, dashes and underscores"
	}
	validateVersion(errors, r.DatabaseVersion, false)
	return errors
}

type ActivateProjectRequest struct {
	DatabaseVersion models.DatabaseVersion `json:"databaseVersion"`
	URL             string                 `json:"url"`
	CanisterID      string                 `json:"canisterId"`
	Controllers     []string               `json:"controllers"`
}

func (r ActivateProjectRequest) Validate() map[string]string {
	errors := make(map[string]string)
	validateVersion(errors, r.DatabaseVersion, false)
	if !validation.IsValidURL(r.URL) {
		errors["url"] = "URL must be an absolute http(s) URL"
	}
	if !validation.IsValidPrincipal(r.CanisterID) {
		errors["canisterId"] = "Canister id is invalid"
	}
	for _, c := range r.Controllers {
		if !validation.IsValidPrincipal(c) {
			errors["controllers"] = "Controllers must be principals"
			break
		}
	}
	return errors
}

type CreateTokenRequest struct {
	Duration int `json:"duration"`
}

func (r CreateTokenRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Duration < 1 || r.Duration > validation.MaxTokenDays {
		errors["duration"] = "Duration must be between 1 and 365 days"
	}
	return errors
}

type ProjectDTO struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	DatabaseVersion string    `json:"databaseVersion"`
	IsActive        bool      `json:"isActive"`
	URL             string    `json:"url,omitempty"`
	CanisterID      string    `json:"canisterId,omitempty"`
	Controllers     []string  `json:"controllers"`
	HasCode         bool      `json:"hasCode"`
	CreatedAt       time.Time `json:"createdAt"`
}

func NewProjectDTO(p *models.Project) ProjectDTO {
	controllers := []string(p.Controllers)
	if controllers == nil {
		controllers = []string{}
	}
	return ProjectDTO{
		ID:              p.ID.String(),
		Name:            p.Name,
		DatabaseVersion: string(p.DatabaseVersion),
		IsActive:        p.IsActive,
		URL:             p.URL,
		CanisterID:      p.CanisterID,
		Controllers:     controllers,
		HasCode:         p.HasCode(),
		CreatedAt:       p.CreatedAt,
	}
}

func NewProjectDTOs(projects []models.Project) []ProjectDTO {
	out := make([]ProjectDTO, 0, len(projects))
	for i := range projects {
		out = append(out, NewProjectDTO(&projects[i]))
	}
	return out
}

type TokenDTO struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Token     string    `json:"token"`
	Duration  int       `json:"duration"`
	IsValid   bool      `json:"isValid"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewTokenDTO(t *models.Token) TokenDTO {
	return TokenDTO{
		ID:        t.ID.String(),
		ProjectID: t.ProjectID.String(),
		Token:     t.Value,
		Duration:  t.Duration,
		IsValid:   t.IsValid,
		CreatedAt: t.CreatedAt,
	}
}

func NewTokenDTOs(tokens []models.Token) []TokenDTO {
	out := make([]TokenDTO, 0, len(tokens))
	for i := range tokens {
		out = append(out, NewTokenDTO(&tokens[i]))
	}
	return out
}
