// internal/services/session_cleanup_service.go
package services

import (
	"context"

	"github.com/KrisCTer/roomie-sub002/internal/config"
	"github.com/KrisCTer/roomie-sub002/internal/utils"
)

// SessionCleanupService handles purging signing sessions that were
// abandoned without an explicit cancel (tab closed, navigation away).
type SessionCleanupService interface {
	// CleanupStale removes sessions idle beyond the configured TTL.
	CleanupStale(ctx context.Context) error
}

type sessionCleanupService struct {
	manager *SessionManager
	cfg     *config.Config
}

func NewSessionCleanupService(manager *SessionManager, cfg *config.Config) SessionCleanupService {
	return &sessionCleanupService{manager: manager, cfg: cfg}
}

func (s *sessionCleanupService) CleanupStale(ctx context.Context) error {
	reaped := s.manager.ReapIdle(s.cfg.SessionTTL)
	if reaped > 0 {
		utils.Logger.Infof("Reaped %d stale signing session(s)", reaped)
	}
	return nil
}
