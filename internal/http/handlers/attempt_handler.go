// Management HTTP handlers.
//
// This file exposes the management API over phishing attempts:
//   - POST   /phishing              (create record, no email)
//   - GET    /phishing              (list, paginated, ETag support)
//   - GET    /phishing/{id}         (read)
//   - PUT    /phishing/{id}         (status update)
//   - DELETE /phishing/{id}         (delete)
//   - POST   /phishing/send         (forward to the simulation worker)
//   - GET    /phishing/click/{id}   (mark clicked in this service's store)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-phishing-sim/internal/domain"
	"github.com/tbourn/go-phishing-sim/internal/repo"
	"github.com/tbourn/go-phishing-sim/internal/services"
	"github.com/tbourn/go-phishing-sim/internal/utils"
)

//
// Service contracts (context-aware)
//

// AttemptService defines the record-keeping operations consumed by handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AttemptService interface {
	Create(ctx context.Context, recipientEmail, emailContent string) (*domain.PhishingAttempt, error)
	ListPage(ctx context.Context, page, pageSize int) ([]domain.PhishingAttempt, int64, error)
	Get(ctx context.Context, id string) (*domain.PhishingAttempt, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.PhishingAttempt, error)
	MarkClicked(ctx context.Context, id string) (*domain.PhishingAttempt, error)
	Delete(ctx context.Context, id string) error
}

// Forwarder sends phishing emails through the simulation worker.
type Forwarder interface {
	SendPhishingEmail(ctx context.Context, req domain.SendRequest) (*domain.ForwardedAttempt, error)
}

//
// Handler wiring
//

// ManagementHandlers groups the management API endpoints.
type ManagementHandlers struct {
	attempts AttemptService
	fwd      Forwarder
}

// NewManagement constructs ManagementHandlers bound to the given services.
func NewManagement(attempts AttemptService, fwd Forwarder) *ManagementHandlers {
	return &ManagementHandlers{attempts: attempts, fwd: fwd}
}

//
// DTOs
//

// UpdateStatusRequest is the JSON payload for PUT /phishing/{id}.
type UpdateStatusRequest struct {
	// Status is the new status; only "sent" -> "clicked" moves are accepted.
	Status domain.Status `json:"status" binding:"required" example:"clicked"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListAttemptsResponse wraps a page of attempts and pagination information.
type ListAttemptsResponse struct {
	Attempts   []domain.PhishingAttempt `json:"attempts"`
	Pagination Pagination               `json:"pagination"`
}

//
// Handlers
//

// CreateAttempt godoc
// @ID          createAttempt
// @Summary     Create an attempt record
// @Description Stores a new attempt with status "sent" without sending any email.
// @Tags        Attempts
// @Accept      json
// @Produce     json
//
// @Param       body  body  domain.SendRequest  true  "Recipient and content"
//
// @Success     201  {object}  domain.PhishingAttempt
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /phishing [post]
func (h *ManagementHandlers) CreateAttempt(c *gin.Context) {
	var req domain.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	a, err := h.attempts.Create(c.Request.Context(), req.RecipientEmail, req.EmailContent)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, a)
}

// ListAttempts godoc
// @ID          listAttempts
// @Summary     List attempts (paginated)
// @Description Returns a page of attempts, most recent first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Attempts
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListAttemptsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /phishing [get]
func (h *ManagementHandlers) ListAttempts(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := utils.ParsePage(c.Query("page"), c.Query("page_size"))

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.attempts.(*services.AttemptService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.AttemptsStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"attempts:%d:%d:%d:%d"`, count, ts, page, pageSize)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.attempts.ListPage(ctx, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list attempts")
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListAttemptsResponse{
		Attempts: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetAttempt godoc
// @ID          getAttempt
// @Summary     Get an attempt
// @Tags        Attempts
// @Produce     json
//
// @Param       id  path  string  true  "Attempt ID"  example(141add05-4415-4938-b5a1-17e0d3171aff)
//
// @Success     200  {object}  domain.PhishingAttempt
// @Failure     404  {object}  handlers.ErrorResponse  "Attempt not found"
// @Router      /phishing/{id} [get]
func (h *ManagementHandlers) GetAttempt(c *gin.Context) {
	a, err := h.attempts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, a)
}

// UpdateAttempt godoc
// @ID          updateAttempt
// @Summary     Update an attempt's status
// @Description Status is monotonic: "sent" may become "clicked", never the reverse.
// @Tags        Attempts
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                         true  "Attempt ID"
// @Param       body  body  handlers.UpdateStatusRequest   true  "New status"
//
// @Success     200  {object}  domain.PhishingAttempt
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Attempt not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Invalid transition"
// @Router      /phishing/{id} [put]
func (h *ManagementHandlers) UpdateAttempt(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status required")
		return
	}
	status := domain.Status(strings.ToLower(strings.TrimSpace(string(req.Status))))
	if !status.Valid() {
		failFields(c, http.StatusBadRequest, ErrCodeValidationFailed, "invalid request",
			map[string]string{"status": "must be one of: sent, clicked"})
		return
	}

	a, err := h.attempts.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, a)
}

// DeleteAttempt godoc
// @ID          deleteAttempt
// @Summary     Delete an attempt
// @Tags        Attempts
//
// @Param       id  path  string  true  "Attempt ID"
//
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Attempt not found"
// @Router      /phishing/{id} [delete]
func (h *ManagementHandlers) DeleteAttempt(c *gin.Context) {
	if err := h.attempts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	noContent(c)
}

// ClickAttempt godoc
// @ID          clickAttempt
// @Summary     Mark an attempt clicked
// @Description Sets the attempt to "clicked" in the management store. Recipients use the simulation service's tracking link instead.
// @Tags        Attempts
// @Produce     json
//
// @Param       id  path  string  true  "Attempt ID"
//
// @Success     200  {object}  domain.PhishingAttempt
// @Failure     404  {object}  handlers.ErrorResponse  "Attempt not found"
// @Router      /phishing/click/{id} [get]
func (h *ManagementHandlers) ClickAttempt(c *gin.Context) {
	a, err := h.attempts.MarkClicked(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, a)
}

// SendPhishingEmail godoc
// @ID          managementSend
// @Summary     Send a phishing email via the simulation service
// @Description Validates the request and forwards it to the simulation service. The worker's record is returned unchanged.
// @Tags        Attempts
// @Accept      json
// @Produce     json
//
// @Param       body  body  domain.SendRequest  true  "Recipient and content"
//
// @Success     201  {object}  domain.PhishingAttempt
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed or rejected by the simulation service"
// @Failure     502  {object}  handlers.ErrorResponse  "Simulation service error"
// @Failure     503  {object}  handlers.ErrorResponse  "Simulation service unreachable"
// @Router      /phishing/send [post]
func (h *ManagementHandlers) SendPhishingEmail(c *gin.Context) {
	var req domain.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	a, err := h.fwd.SendPhishingEmail(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, a)
}
