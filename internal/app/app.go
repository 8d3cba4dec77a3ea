package app

import (
	"github.com/benbjohnson/clock"

	"github.com/KrisCTer/roomie-sub002/internal/clients"
	"github.com/KrisCTer/roomie-sub002/internal/config"
	"github.com/KrisCTer/roomie-sub002/internal/services"
	"github.com/KrisCTer/roomie-sub002/internal/utils"
)

// App wires the signing service's long-lived pieces together: the
// client for the contract-signing API and the session manager that
// owns every open signing attempt.
type App struct {
	Config   *config.Config
	Signing  *clients.SigningClient
	Sessions *services.SessionManager
}

func NewApp(cfg *config.Config) (*App, error) {
	signingClient := clients.NewSigningClient(cfg.SigningAPIURL, cfg.SigningAPITimeout)
	sessions := services.NewSessionManager(signingClient, clock.New(), cfg)

	return &App{
		Config:   cfg,
		Signing:  signingClient,
		Sessions: sessions,
	}, nil
}

func (a *App) Close() {
	if a.Sessions != nil {
		reaped := a.Sessions.ReapIdle(0)
		if reaped > 0 {
			utils.Logger.Infof("Closed %d signing session(s) on shutdown", reaped)
		}
	}
}
