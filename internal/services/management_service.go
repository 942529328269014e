// Package services – ManagementService
//
// This file implements the management API's send operation. The management
// API never mails anyone itself: it validates the request and forwards it to
// the simulation worker, returning the worker's record as-is.
package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-phishing-sim/internal/domain"
)

// SimulationClient is the capability the management API needs from the
// simulation worker. Implementations report transport problems with typed
// errors (see package simclient).
type SimulationClient interface {
	Send(ctx context.Context, req domain.SendRequest) (*domain.ForwardedAttempt, error)
}

// ManagementService forwards send requests to the simulation worker.
type ManagementService struct {
	Client SimulationClient
	Log    zerolog.Logger
}

// NewManagementService constructs a ManagementService.
func NewManagementService(c SimulationClient, log zerolog.Logger) *ManagementService {
	return &ManagementService{Client: c, Log: log}
}

// SendPhishingEmail validates req locally, so obviously bad input never costs
// a network round trip, then forwards it. Nothing is written to the
// management store.
func (s *ManagementService) SendPhishingEmail(ctx context.Context, req domain.SendRequest) (*domain.ForwardedAttempt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	a, err := s.Client.Send(ctx, req)
	if err != nil {
		s.Log.Warn().Err(err).Msg("forward to simulation service failed")
		return nil, err
	}
	s.Log.Info().Str("attempt_id", a.ID).Msg("forwarded to simulation service")
	return a, nil
}
