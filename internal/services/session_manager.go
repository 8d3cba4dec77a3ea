// internal/services/session_manager.go
package services

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/KrisCTer/roomie-sub002/internal/config"
	"github.com/KrisCTer/roomie-sub002/internal/utils"
)

type sessionKey struct {
	UserID     uuid.UUID
	ContractID uuid.UUID
}

// SessionManager owns at most one signing orchestrator per
// (user, contract) pair. Every orchestrator it hands out came through
// Begin, so the authorization boundary is crossed exactly once per
// session open.
type SessionManager struct {
	svc ContractSigningService
	clk clock.Clock
	cfg *config.Config

	mu       sync.Mutex
	sessions map[sessionKey]*SigningOrchestrator
}

func NewSessionManager(svc ContractSigningService, clk clock.Clock, cfg *config.Config) *SessionManager {
	return &SessionManager{
		svc:      svc,
		clk:      clk,
		cfg:      cfg,
		sessions: make(map[sessionKey]*SigningOrchestrator),
	}
}

// Begin opens a signing session for the user on the contract, replacing
// any previous session for the same pair. The contract is fetched fresh
// so eligibility is judged on current data.
func (m *SessionManager) Begin(ctx context.Context, userID, contractID uuid.UUID) (*SigningOrchestrator, error) {
	if userID == uuid.Nil {
		return nil, utils.ErrUnauthenticated
	}

	contract, err := m.svc.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}

	orch := NewSigningOrchestrator(m.svc, m.clk, m.cfg, userID, contract)
	if err := orch.Begin(ctx); err != nil {
		return nil, err
	}

	key := sessionKey{UserID: userID, ContractID: contractID}
	m.mu.Lock()
	if prev, ok := m.sessions[key]; ok {
		prev.Close()
	}
	m.sessions[key] = orch
	m.mu.Unlock()

	return orch, nil
}

// Get returns the user's open session on the contract, if any.
func (m *SessionManager) Get(userID, contractID uuid.UUID) (*SigningOrchestrator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orch, ok := m.sessions[sessionKey{UserID: userID, ContractID: contractID}]
	if !ok {
		return nil, utils.ErrNoActiveSession
	}
	return orch, nil
}

// Remove tears down the user's session on the contract. Removing a
// session that does not exist is not an error.
func (m *SessionManager) Remove(userID, contractID uuid.UUID) {
	key := sessionKey{UserID: userID, ContractID: contractID}
	m.mu.Lock()
	defer m.mu.Unlock()
	if orch, ok := m.sessions[key]; ok {
		orch.Close()
		delete(m.sessions, key)
	}
}

// ReapIdle removes every session idle longer than maxIdle, stopping its
// timer so nothing fires into a discarded session. Returns the count.
func (m *SessionManager) ReapIdle(maxIdle time.Duration) int {
	m.mu.Lock()
	stale := make(map[sessionKey]*SigningOrchestrator)
	for key, orch := range m.sessions {
		if orch.IdleFor() >= maxIdle {
			stale[key] = orch
		}
	}
	for key := range stale {
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	for _, orch := range stale {
		orch.Close()
	}
	return len(stale)
}

// Len reports the number of open sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
