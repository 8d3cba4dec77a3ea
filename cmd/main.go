package main

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/KrisCTer/roomie-sub002/internal/app"
	"github.com/KrisCTer/roomie-sub002/internal/config"
	"github.com/KrisCTer/roomie-sub002/internal/controllers"
	"github.com/KrisCTer/roomie-sub002/internal/middleware"
	"github.com/KrisCTer/roomie-sub002/internal/services"
	"github.com/KrisCTer/roomie-sub002/internal/utils"
)

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize application:", err)
	}
	defer application.Close()

	//----------------------------------------------------------------------
	// Services
	//----------------------------------------------------------------------
	sessionCleanupService := services.NewSessionCleanupService(application.Sessions, cfg)

	//----------------------------------------------------------------------
	// Controllers
	//----------------------------------------------------------------------
	signingController := controllers.NewSigningController(application.Sessions, cfg)
	healthController := controllers.NewHealthController(application)

	//----------------------------------------------------------------------
	// Router & Endpoints
	//----------------------------------------------------------------------
	router := mux.NewRouter()

	// Health
	router.HandleFunc("/health", healthController.HealthCheckHandler).Methods("GET")

	// /signing/v1 — every signing command requires an authenticated party
	signingRouter := router.PathPrefix("/signing").Subrouter()
	v1Router := signingRouter.PathPrefix("/v1").Subrouter()
	v1Router.Use(middleware.AuthMiddleware(cfg.RSAPublicKey))

	v1Router.HandleFunc("/contracts/{contractId}/begin", signingController.BeginSigning).Methods("POST")
	v1Router.HandleFunc("/contracts/{contractId}/request_code", signingController.RequestCode).Methods("POST")
	v1Router.HandleFunc("/contracts/{contractId}/resend_code", signingController.ResendCode).Methods("POST")
	v1Router.HandleFunc("/contracts/{contractId}/code", signingController.EnterCode).Methods("PUT")
	v1Router.HandleFunc("/contracts/{contractId}/submit", signingController.SubmitCode).Methods("POST")
	v1Router.HandleFunc("/contracts/{contractId}/cancel", signingController.CancelSigning).Methods("POST")
	v1Router.HandleFunc("/contracts/{contractId}/state", signingController.SigningState).Methods("GET")

	//----------------------------------------------------------------------
	// Setup stale-session cleanup via cron
	//----------------------------------------------------------------------
	c := cron.New()

	_, schErr := c.AddFunc("*/5 * * * *", func() {
		if e := sessionCleanupService.CleanupStale(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Scheduled signing-session cleanup failed")
		}
	})
	if schErr != nil {
		utils.Logger.WithError(schErr).Fatal("Failed to schedule signing-session cleanup job")
	}

	c.Start()

	co := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AppUrl},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("Failed to start server:", err)
	}
}
