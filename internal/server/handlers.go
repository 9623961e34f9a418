package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lessonbin/quizdoc/internal/auth"
	"github.com/lessonbin/quizdoc/internal/db/repository"
	"github.com/lessonbin/quizdoc/internal/document"
	"github.com/lessonbin/quizdoc/internal/publish"
	"github.com/lessonbin/quizdoc/internal/registry"
	httperrors "github.com/lessonbin/quizdoc/pkg/http/errors"
	ws "github.com/lessonbin/quizdoc/pkg/http/ws"
)

// Submitted documents larger than this are rejected before validation.
const maxDocumentBytes = 1 << 20

// Handlers exposes the HTTP surface of the service.
type Handlers struct {
	publish      *publish.Service
	registry     *registry.Service
	hub          *ws.Hub
	tokens       *auth.TokenManager
	adminKeyHash string
	tokenTTL     time.Duration
	logger       zerolog.Logger
}

func NewHandlers(
	publishSvc *publish.Service,
	registrySvc *registry.Service,
	hub *ws.Hub,
	tokens *auth.TokenManager,
	adminKeyHash string,
	tokenTTL time.Duration,
	logger zerolog.Logger,
) *Handlers {
	return &Handlers{
		publish:      publishSvc,
		registry:     registrySvc,
		hub:          hub,
		tokens:       tokens,
		adminKeyHash: adminKeyHash,
		tokenTTL:     tokenTTL,
		logger:       logger,
	}
}

type validateResponse struct {
	Valid      bool                 `json:"valid"`
	Violations []document.Violation `json:"violations,omitempty"`
}

// ValidateDocument runs the schema validator without storing anything.
// Unauthenticated: the check is a pure function over the request body.
func (h *Handlers) ValidateDocument(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.readBody(w, r)
	if !ok {
		return
	}

	res, err := h.publish.ValidateOnly(raw)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidJSON, err.Error())
		return
	}
	h.respondValidation(w, res)
}

type submitResponse struct {
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
}

// SubmitDocument validates, stores and queues a document for publishing.
func (h *Handlers) SubmitDocument(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.readBody(w, r)
	if !ok {
		return
	}

	res, err := h.publish.Submit(r.Context(), raw)
	switch {
	case err == nil:
	case errors.Is(err, publish.ErrMalformed):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidJSON, err.Error())
		return
	case errors.Is(err, publish.ErrQueueFull):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodePublishQueueFull, "publish backlog full, retry later")
		return
	default:
		h.logger.Error().Err(err).Msg("document submit failed")
		httperrors.RespondInternalError(w, "failed to store document")
		return
	}

	if !res.Result.Valid() {
		h.respondValidation(w, res.Result)
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{
		DocumentID: res.DocumentID.String(),
		Status:     repository.StatusPending,
	})
}

type documentResponse struct {
	DocumentID  string          `json:"documentId"`
	DocKey      string          `json:"docKey"`
	Title       string          `json:"title"`
	Status      string          `json:"status"`
	PublicURL   string          `json:"publicUrl,omitempty"`
	Failure     string          `json:"failure,omitempty"`
	Content     json.RawMessage `json:"content"`
	CreatedAt   time.Time       `json:"createdAt"`
	PublishedAt *time.Time      `json:"publishedAt,omitempty"`
}

// GetDocument returns one stored document with its publish status.
func (h *Handlers) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidDocumentID, "document id must be a UUID")
		return
	}

	rec, err := h.publish.GetDocument(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		httperrors.RespondNotFound(w, httperrors.ErrCodeDocumentNotFound, "no such document")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("document_id", id.String()).Msg("document fetch failed")
		httperrors.RespondInternalError(w, "failed to fetch document")
		return
	}

	writeJSON(w, http.StatusOK, documentResponse{
		DocumentID:  rec.DocumentID.String(),
		DocKey:      rec.DocKey,
		Title:       rec.Title,
		Status:      rec.Status,
		PublicURL:   rec.PublicURL,
		Failure:     rec.Failure,
		Content:     json.RawMessage(rec.Content),
		CreatedAt:   rec.CreatedAt,
		PublishedAt: rec.PublishedAt,
	})
}

type registryResponse struct {
	Entries []registry.Entry `json:"entries"`
}

// GetRegistry returns all published documents, cache-first.
func (h *Handlers) GetRegistry(w http.ResponseWriter, r *http.Request) {
	entries, err := h.registry.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("registry fetch failed")
		httperrors.RespondInternalError(w, "failed to fetch registry")
		return
	}
	if entries == nil {
		entries = []registry.Entry{}
	}
	writeJSON(w, http.StatusOK, registryResponse{Entries: entries})
}

type issueTokenRequest struct {
	Subject string `json:"subject"`
}

type issueTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

// IssueToken exchanges the operator key for a service token.
func (h *Handlers) IssueToken(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("X-Admin-Key")
	if key == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "missing X-Admin-Key header")
		return
	}
	if err := auth.VerifyAdminKey(h.adminKeyHash, key); err != nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidAdminKey, "admin key rejected")
		return
	}

	var req issueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Subject == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMissingField, "subject is required")
		return
	}

	token, err := h.tokens.Issue(req.Subject)
	if err != nil {
		h.logger.Error().Err(err).Msg("token issue failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeTokenIssueFailed, "failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, issueTokenResponse{
		Token:     token,
		ExpiresIn: int64(h.tokenTTL.Seconds()),
	})
}

// HandleRegistryStream upgrades to a websocket carrying registry updates.
func (h *Handlers) HandleRegistryStream(w http.ResponseWriter, r *http.Request) {
	conn, err := WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("ws upgrade failed")
		return
	}

	client := ws.NewClient(conn, h.logger)
	id := h.hub.Register(client)

	go client.WritePump()
	go func() {
		client.ReadPump()
		h.hub.Unregister(id)
	}()
}

func (h *Handlers) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes+1))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "failed to read request body")
		return nil, false
	}
	if len(raw) == 0 {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "empty request body")
		return nil, false
	}
	if len(raw) > maxDocumentBytes {
		httperrors.RespondError(w, http.StatusRequestEntityTooLarge, httperrors.ErrCodeInvalidRequest, "document too large")
		return nil, false
	}
	return raw, true
}

func (h *Handlers) respondValidation(w http.ResponseWriter, res document.Result) {
	status := http.StatusOK
	if !res.Valid() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, validateResponse{Valid: res.Valid(), Violations: res.Violations})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
