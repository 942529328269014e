// Simulation worker HTTP handlers.
//
// This file exposes the worker's two endpoints:
//   - POST /phishing/send        (record + mail a phishing email)
//   - GET  /phishing/track/{id}  (public tracking link target)
//
// The tracking endpoint is reached by anonymous recipients, so its responses
// never include attempt data and every lookup failure looks the same.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-phishing-sim/internal/domain"
	"github.com/tbourn/go-phishing-sim/internal/services"
)

// Simulator defines the worker operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type Simulator interface {
	// SendPhishingEmail records an attempt and mails the phishing message.
	SendPhishingEmail(ctx context.Context, recipientEmail, emailContent string) (*domain.PhishingAttempt, error)
	// TrackClick marks an attempt as clicked.
	TrackClick(ctx context.Context, id string) (*services.TrackResult, error)
}

// SimulationHandlers groups the worker's HTTP endpoints.
type SimulationHandlers struct {
	svc Simulator
}

// NewSimulation constructs SimulationHandlers bound to svc.
func NewSimulation(svc Simulator) *SimulationHandlers {
	return &SimulationHandlers{svc: svc}
}

// SendPhishingEmail godoc
// @ID          simulationSend
// @Summary     Send a phishing email
// @Description Records a new attempt and mails the recipient a message that embeds a tracking link. The stored attempt remains when delivery fails.
// @Tags        Simulation
// @Accept      json
// @Produce     json
//
// @Param       body  body  domain.SendRequest  true  "Recipient and content"
//
// @Success     201  {object}  domain.PhishingAttempt
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     502  {object}  handlers.ErrorResponse  "Mail transport failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /phishing/send [post]
func (h *SimulationHandlers) SendPhishingEmail(c *gin.Context) {
	var req domain.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	a, err := h.svc.SendPhishingEmail(c.Request.Context(), req.RecipientEmail, req.EmailContent)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, a)
}

// TrackClick godoc
// @ID          simulationTrack
// @Summary     Record a click
// @Description Target of the tracking link. Marks the attempt as clicked; repeated clicks are harmless.
// @Tags        Simulation
// @Produce     json
//
// @Param       id  path  string  true  "Attempt ID"  example(141add05-4415-4938-b5a1-17e0d3171aff)
//
// @Success     200  {object}  services.TrackResult
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown link"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Router      /phishing/track/{id} [get]
func (h *SimulationHandlers) TrackClick(c *gin.Context) {
	res, err := h.svc.TrackClick(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrAttemptNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "not found")
			return
		}
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}
