package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hugh/canicloud/internal/api/dto"
	"github.com/hugh/canicloud/internal/api/middleware"
	"github.com/hugh/canicloud/internal/api/respond"
	"github.com/hugh/canicloud/internal/projects"
)

// MaxCodeUploadSize caps the multipart body of a code upload.
const MaxCodeUploadSize = 100 << 20

// CodeTransferTimeout replaces the server read and write timeouts for code
// uploads and downloads.
const CodeTransferTimeout = 10 * time.Minute

type ProjectHandler struct {
	projects *projects.Service
	rs       *respond.Responder
	logger   *slog.Logger
}

func NewProjectHandler(projectService *projects.Service, rs *respond.Responder, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projectService, rs: rs, logger: logger}
}

func (h *ProjectHandler) fail(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, projects.ErrNotFound):
		h.rs.Fail(w, http.StatusNotFound, action, "project not found.")
	case errors.Is(err, projects.ErrTokenNotFound),
		errors.Is(err, projects.ErrNoCode):
		h.rs.Fail(w, http.StatusNotFound, action, err.Error())
	case errors.Is(err, projects.ErrNameInUse):
		h.rs.Fail(w, http.StatusBadRequest, action, "project name in use.")
	case errors.Is(err, projects.ErrProjectLimit):
		h.rs.Fail(w, http.StatusBadRequest, action, "project limit reached.")
	case errors.Is(err, projects.ErrTokenLimit),
		errors.Is(err, projects.ErrInvalidName),
		errors.Is(err, projects.ErrInvalidDatabaseVersion),
		errors.Is(err, projects.ErrInvalidDuration):
		h.rs.Fail(w, http.StatusBadRequest, action, err.Error())
	default:
		h.rs.Error(w, http.StatusInternalServerError, action, "internal server error", err)
	}
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	const action = "createProject"
	var req dto.CreateProjectRequest
	if !bind(w, r, h.rs, action, &req) {
		return
	}

	project, err := h.projects.Create(r.Context(), middleware.GetUserID(r.Context()), projects.CreateInput{
		Name:            req.Name,
		DatabaseVersion: req.DatabaseVersion,
	})
	if err != nil {
		h.fail(w, action, err)
		return
	}
	h.rs.Success(w, http.StatusCreated, action, "project created.", dto.NewProjectDTO(project))
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	const action = "fetchProjects"
	list, err := h.projects.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, action, err)
		return
	}
	h.rs.Success(w, http.StatusOK, action, "projects fetched.", map[string]interface{}{
		"projects": dto.NewProjectDTOs(list),
	})
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	const action = "fetchProject"
	var param dto.IDParam
	if !bindParam(w, r, h.rs, action, &param) {
		return
	}

	project, err := h.projects.Get(r.Context(), middleware.GetUserID(r.Context()), param.UUID())
	if err != nil {
		h.fail(w, action, err)
		return
	}
	h.rs.Success(w, http.StatusOK, action, "project fetched.", dto.NewProjectDTO(project))
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	const action = "deleteProject"
	var param dto.IDParam
	if !bindParam(w, r, h.rs, action, &param) {
		return
	}

	if err := h.projects.Delete(r.Context(), middleware.GetUserID(r.Context()), param.UUID()); err != nil {
		h.fail(w, action, err)
		return
	}
	h.rs.Success(w, http.StatusOK, action, "project deleted.", nil)
}

func (h *ProjectHandler) Activate(w http.ResponseWriter, r *http.Request) {
	const action = "activateProject"
	var param dto.IDParam
	if !bindParam(w, r, h.rs, action, &param) {
		return
	}
	var req dto.ActivateProjectRequest
	if !bind(w, r, h.rs, action, &req) {
		return
	}

	project, err := h.projects.Activate(r.Context(), middleware.GetUserID(r.Context()), param.UUID(), projects.ActivateInput{
		DatabaseVersion: req.DatabaseVersion,
		URL:             req.URL,
		CanisterID:      req.CanisterID,
		Controllers:     req.Controllers,
	})
	if err != nil {
		h.fail(w, action, err)
		return
	}
	h.rs.Success(w, http.StatusOK, action, "project activated.", dto.NewProjectDTO(project))
}

func (h *ProjectHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	const action = "deactivateProject"
	var param dto.IDParam
	if !bindParam(w, r, h.rs, action, &param) {
		return
	}

	project, err := h.projects.Deactivate(r.Context(), middleware.GetUserID(r.Context()), param.UUID())
	if err != nil {
		h.fail(w, action, err)
		return
	}
	h.rs.Success(w, http.StatusOK, action, "project deactivated.", dto.NewProjectDTO(project))
}

func (h *ProjectHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	const action = "createProjectToken"
	var param dto.IDParam
	if !bindParam(w, r, h.rs, action, &param) {
		return
	}
	var req dto.CreateTokenRequest
	if !bind(w, r, h.rs, action, &req) {
		return
	}

	token, err := h.projects.CreateToken(r.Context(), middleware.GetUserID(r.Context()), param.UUID(), req.Duration)
	if err != nil {
		h.fail(w, action, err)
		return
	}
	h.rs.Success(w, http.StatusCreated, action, "token created.", dto.NewTokenDTO(token))
}

func (h *ProjectHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	const action = "getProjectTokens"
	var param dto.IDParam
	if !bindParam(w, r, h.rs, action, &param) {
		return
	}

	tokens, err := h.projects.ListTokens(r.Context(), middleware.GetUserID(r.Context()), param.UUID())
	if err != nil {
		h.fail(w, action, err)
		return
	}
	h.rs.Success(w, http.StatusOK, action, "tokens fetched.", map[string]interface{}{
		"tokens": dto.NewTokenDTOs(tokens),
	})
}

// DeleteToken takes the token id, not the project id, in the path segment.
func (h *ProjectHandler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	const action = "deleteProjectToken"
	var param dto.IDParam
	if !bindParam(w, r, h.rs, action, &param) {
		return
	}

	if err := h.projects.DeleteToken(r.Context(), middleware.GetUserID(r.Context()), param.UUID()); err != nil {
		h.fail(w, action, err)
		return
	}
	h.rs.Success(w, http.StatusOK, action, "token deleted.", nil)
}

func (h *ProjectHandler) UploadCode(w http.ResponseWriter, r *http.Request) {
	const action = "uploadProjectCode"
	var param dto.IDParam
	if !bindParam(w, r, h.rs, action, &param) {
		return
	}

	extendDeadline(w, true)
	r.Body = http.MaxBytesReader(w, r.Body, MaxCodeUploadSize)
	file, _, err := r.FormFile("file")
	if err != nil {
		h.rs.Invalid(w, action, map[string]string{"file": "A file is required"})
		return
	}
	defer file.Close()

	if err := h.projects.UploadCode(r.Context(), middleware.GetUserID(r.Context()), param.UUID(), file); err != nil {
		h.fail(w, action, err)
		return
	}
	h.rs.Success(w, http.StatusOK, action, "file upload success.", nil)
}

func (h *ProjectHandler) DownloadCode(w http.ResponseWriter, r *http.Request) {
	const action = "downloadProjectCode"
	var param dto.IDParam
	if !bindParam(w, r, h.rs, action, &param) {
		return
	}

	rc, err := h.projects.DownloadCode(r.Context(), middleware.GetUserID(r.Context()), param.UUID())
	if err != nil {
		h.fail(w, action, err)
		return
	}
	defer rc.Close()

	extendDeadline(w, false)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="code"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		// Headers are already sent.
		h.logger.Error("streaming project code failed", "error", err)
	}
}

// extendDeadline pushes the connection deadlines out for a large transfer.
// Writers that cannot change deadlines, such as test recorders, are left as
// they are.
func extendDeadline(w http.ResponseWriter, read bool) {
	rc := http.NewResponseController(w)
	deadline := time.Now().Add(CodeTransferTimeout)
	if read {
		_ = rc.SetReadDeadline(deadline)
	}
	_ = rc.SetWriteDeadline(deadline)
}
