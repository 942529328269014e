package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-phishing-sim/internal/domain"
	"github.com/tbourn/go-phishing-sim/internal/mail"
	"github.com/tbourn/go-phishing-sim/internal/services"
	"github.com/tbourn/go-phishing-sim/internal/simclient"
)

// respondError translates a service error into the standard error envelope.
// Unrecognized errors become 500 internal_error with a generic message.
func respondError(c *gin.Context, err error) {
	var (
		ve  *domain.ValidationError
		ue  *simclient.UpstreamError
		una *simclient.UpstreamUnavailableError
	)
	switch {
	case errors.As(err, &ve):
		failFields(c, http.StatusBadRequest, ErrCodeValidationFailed, "invalid request", ve.Fields)
	case errors.Is(err, services.ErrAttemptNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "attempt not found")
	case errors.Is(err, services.ErrInvalidTransition):
		fail(c, http.StatusConflict, ErrCodeInvalidTransition, "status can only move from sent to clicked")
	case errors.Is(err, mail.ErrDispatch):
		fail(c, http.StatusBadGateway, ErrCodeDispatchFailed,
			"the phishing email could not be delivered; your request was not delivered")
	case errors.As(err, &una):
		fail(c, http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable,
			fmt.Sprintf("simulation service is unreachable at %s; check configuration", una.Addr))
	case errors.As(err, &ue):
		if ue.StatusCode >= 400 && ue.StatusCode < 500 {
			failFields(c, ue.StatusCode, ErrCodeUpstreamRejected,
				"simulation service rejected the request: "+ue.Message, ue.Fields)
			return
		}
		fail(c, http.StatusBadGateway, ErrCodeUpstreamError, "simulation service error: "+ue.Message)
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
