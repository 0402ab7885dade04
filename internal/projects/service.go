// Package projects manages user projects, their delegated tokens and their
// uploaded code.
package projects

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/canicloud/internal/auth"
	"github.com/hugh/canicloud/internal/blob"
	"github.com/hugh/canicloud/internal/database/models"
	"github.com/hugh/canicloud/internal/store"
	"github.com/hugh/canicloud/pkg/crypto"
)

const (
	MaxProjectsPerOwner = 10
	MaxTokensPerUser    = 10
)

var (
	ErrNotFound               = errors.New("project not found")
	ErrNameInUse              = errors.New("project name in use")
	ErrProjectLimit           = errors.New("project limit reached")
	ErrInvalidName            = errors.New("project name is required")
	ErrInvalidDatabaseVersion = errors.New("invalid database version")
	ErrTokenLimit             = errors.New("token limit reached")
	ErrTokenNotFound          = errors.New("token not found")
	ErrInvalidDuration        = errors.New("duration must be at least one day")
	ErrNoCode                 = errors.New("no code uploaded")
)

type Service struct {
	store     *store.Store
	jwt       *auth.JWTService
	envelope  *crypto.Envelope
	encryptor *crypto.Encryptor
	blobs     blob.Store
	logger    *slog.Logger
}

func NewService(st *store.Store, jwt *auth.JWTService, envelope *crypto.Envelope, encryptor *crypto.Encryptor, blobs blob.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     st,
		jwt:       jwt,
		envelope:  envelope,
		encryptor: encryptor,
		blobs:     blobs,
		logger:    logger,
	}
}

// CodeKey is the blob key holding a project's encrypted code.
func CodeKey(projectID uuid.UUID) string {
	return "projects/" + projectID.String() + "/code"
}

type CreateInput struct {
	Name            string
	DatabaseVersion models.DatabaseVersion
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	version := in.DatabaseVersion
	if version == "" {
		version = models.DatabaseVersionFree
	}
	if !version.Valid() {
		return nil, ErrInvalidDatabaseVersion
	}

	project := &models.Project{
		OwnerID:         ownerID,
		Name:            name,
		DatabaseVersion: version,
	}

	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.Users().LockForUpdate(ctx, ownerID); err != nil {
			return err
		}
		count, err := tx.Projects().CountByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		if count >= MaxProjectsPerOwner {
			return ErrProjectLimit
		}

		taken, err := tx.Projects().ExistsByOwnerAndName(ctx, ownerID, name)
		if err != nil {
			return err
		}
		if taken {
			return ErrNameInUse
		}

		return tx.Projects().Create(ctx, project)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrNameInUse
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("project created", "project_id", project.ID, "owner_id", ownerID)
	return project, nil
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]models.Project, error) {
	return s.store.Projects().ListByOwner(ctx, ownerID)
}

func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Project, error) {
	return s.findOwned(ctx, s.store, ownerID, id)
}

func (s *Service) findOwned(ctx context.Context, st *store.Store, ownerID, id uuid.UUID) (*models.Project, error) {
	project, err := st.Projects().FindOwned(ctx, id, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return project, err
}

// Delete removes the project together with its tokens. The code blob is
// removed afterwards and a failure there is only logged.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	var codeKey string
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		project, err := s.findOwned(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		codeKey = project.Code

		if err := tx.Tokens().DeleteByProject(ctx, project.ID); err != nil {
			return fmt.Errorf("deleting tokens: %w", err)
		}
		return tx.Projects().Delete(ctx, project.ID)
	})
	if err != nil {
		return err
	}

	if codeKey != "" && s.blobs != nil {
		if err := s.blobs.Delete(ctx, codeKey); err != nil {
			s.logger.Warn("failed to remove project code", "project_id", id, "error", err)
		}
	}
	return nil
}

type ActivateInput struct {
	DatabaseVersion models.DatabaseVersion
	URL             string
	CanisterID      string
	Controllers     []string
}

// Activate marks the project deployed and records the deployment on the
// owner's canister list.
func (s *Service) Activate(ctx context.Context, ownerID, id uuid.UUID, in ActivateInput) (*models.Project, error) {
	if in.DatabaseVersion != "" && !in.DatabaseVersion.Valid() {
		return nil, ErrInvalidDatabaseVersion
	}

	var activated *models.Project
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		project, err := s.findOwned(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}

		fields := map[string]interface{}{
			"is_active":   true,
			"url":         in.URL,
			"canister_id": in.CanisterID,
			"controllers": models.StringArray(in.Controllers),
		}
		if in.DatabaseVersion != "" {
			fields["database_version"] = in.DatabaseVersion
		}
		if err := tx.Projects().Update(ctx, project.ID, fields); err != nil {
			return err
		}

		if err := tx.Users().AddCanister(ctx, &models.UserCanister{
			UserID:      ownerID,
			ProjectID:   project.ID,
			Name:        project.Name,
			Type:        "database",
			URL:         in.URL,
			Owner:       ownerID.String(),
			CanisterID:  in.CanisterID,
			Status:      "active",
			Controllers: models.StringArray(in.Controllers),
		}); err != nil {
			return fmt.Errorf("recording canister: %w", err)
		}

		activated, err = s.findOwned(ctx, tx, ownerID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return activated, nil
}

func (s *Service) Deactivate(ctx context.Context, ownerID, id uuid.UUID) (*models.Project, error) {
	project, err := s.findOwned(ctx, s.store, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Projects().Update(ctx, project.ID, map[string]interface{}{"is_active": false}); err != nil {
		return nil, err
	}
	project.IsActive = false
	return project, nil
}

// CreateToken mints a delegated token for the project valid for duration
// days. The stored and returned value is the envelope-encrypted JWT.
func (s *Service) CreateToken(ctx context.Context, ownerID, projectID uuid.UUID, duration int) (*models.Token, error) {
	if duration < 1 {
		return nil, ErrInvalidDuration
	}

	project, err := s.findOwned(ctx, s.store, ownerID, projectID)
	if err != nil {
		return nil, err
	}

	signed, err := s.jwt.CreateToken(auth.Claims{
		UserID:          ownerID,
		ProjectID:       project.ID.String(),
		ProjectName:     project.Name,
		DatabaseVersion: string(project.DatabaseVersion),
		Duration:        duration,
		Use:             auth.TokenUseProject,
	}, time.Duration(duration)*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	value, err := s.envelope.Encrypt(signed)
	if err != nil {
		return nil, fmt.Errorf("encrypting token: %w", err)
	}

	token := &models.Token{
		UserID:    ownerID,
		ProjectID: project.ID,
		Type:      models.TokenTypeProject,
		Value:     value,
		Duration:  duration,
	}
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.Users().LockForUpdate(ctx, ownerID); err != nil {
			return err
		}
		count, err := tx.Tokens().CountByUser(ctx, ownerID)
		if err != nil {
			return err
		}
		if count >= MaxTokensPerUser {
			return ErrTokenLimit
		}
		return tx.Tokens().Create(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (s *Service) ListTokens(ctx context.Context, ownerID, projectID uuid.UUID) ([]models.Token, error) {
	if _, err := s.findOwned(ctx, s.store, ownerID, projectID); err != nil {
		return nil, err
	}
	return s.store.Tokens().ListByProject(ctx, ownerID, projectID)
}

func (s *Service) DeleteToken(ctx context.Context, ownerID, tokenID uuid.UUID) error {
	token, err := s.store.Tokens().FindOwned(ctx, tokenID, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrTokenNotFound
	}
	if err != nil {
		return err
	}
	return s.store.Tokens().Delete(ctx, token.ID)
}

// UploadCode encrypts src into a temporary file and then stores it. The
// temp file gives the blob store a known object size.
func (s *Service) UploadCode(ctx context.Context, ownerID, projectID uuid.UUID, src io.Reader) error {
	project, err := s.findOwned(ctx, s.store, ownerID, projectID)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "canicloud-code-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	n, err := s.encryptor.Seal(tmp, src)
	if err != nil {
		return fmt.Errorf("encrypting code: %w", err)
	}

	size, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return err
	}

	key := CodeKey(project.ID)
	if err := s.blobs.Put(ctx, key, tmp, size); err != nil {
		return fmt.Errorf("storing code: %w", err)
	}

	if err := s.store.Projects().Update(ctx, project.ID, map[string]interface{}{"code": key}); err != nil {
		return err
	}

	s.logger.Info("project code uploaded", "project_id", project.ID, "bytes", n)
	return nil
}

type codeReader struct {
	io.Reader
	closer io.Closer
}

func (c *codeReader) Close() error {
	return c.closer.Close()
}

// DownloadCode returns a stream of the decrypted code. The caller closes it.
func (s *Service) DownloadCode(ctx context.Context, ownerID, projectID uuid.UUID) (io.ReadCloser, error) {
	project, err := s.findOwned(ctx, s.store, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	if !project.HasCode() {
		return nil, ErrNoCode
	}

	rc, err := s.blobs.Get(ctx, project.Code)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, ErrNoCode
	}
	if err != nil {
		return nil, fmt.Errorf("fetching code: %w", err)
	}

	plain, err := s.encryptor.Open(rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return &codeReader{Reader: plain, closer: rc}, nil
}
