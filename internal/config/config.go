package config

import (
	"crypto/rsa"
	"encoding/base64"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/KrisCTer/roomie-sub002/internal/utils"
)

// Config holds all application configuration for the signing service.
type Config struct {
	OrganizationName string
	AppName          string
	AppPort          string
	AppUrl           string

	// Base URL and timeout of the contract-signing API this service
	// fronts (OTP issuance and signature application live there).
	SigningAPIURL     string
	SigningAPITimeout time.Duration

	RSAPublicKey *rsa.PublicKey

	// Signing-session policy. These are fixed design constants; the
	// UI must not be able to loosen them.
	OTPValidity    time.Duration
	ResendCooldown time.Duration
	OTPCodeLength  int
	SessionTTL     time.Duration
}

// Constants for the signing-session policy.
//
// The OTP validity window and resend cooldown are deliberate design
// constants: a code is usable for 5 minutes after issuance, and a new
// code may be requested at most once per minute.
const (
	OrganizationName = "Roomie"
	AppName          = "signing-service"

	DefaultOTPValidity    = 5 * time.Minute
	DefaultResendCooldown = 60 * time.Second
	OTPCodeLength         = 6

	// Sessions abandoned without an explicit cancel are reaped after
	// this much inactivity.
	DefaultSessionTTL = 30 * time.Minute

	DefaultSigningAPITimeout = 10 * time.Second
)

// LoadConfig reads the environment and returns a *Config. Missing
// required variables are fatal.
func LoadConfig() *Config {
	utils.Logger.Info("Loading config for app: ", AppName)

	//----------------------------------------------------------------------
	// Load environment variables.
	//----------------------------------------------------------------------
	appUrl := os.Getenv("APP_URL_FROM_ANYWHERE")
	if appUrl == "" {
		utils.Logger.Fatal("APP_URL_FROM_ANYWHERE env var is missing")
	}
	appPort := os.Getenv("APP_PORT")
	if appPort == "" {
		utils.Logger.Fatal("APP_PORT env var is missing")
	}
	signingAPIURL := os.Getenv("SIGNING_API_URL")
	if signingAPIURL == "" {
		utils.Logger.Fatal("SIGNING_API_URL env var is missing")
	}

	utils.Logger.Debugf("App can be accessed at: %s", appUrl)

	//----------------------------------------------------------------------
	// Parse the RSA public key used to validate access tokens.
	//----------------------------------------------------------------------
	publicKeyBase64 := os.Getenv("RSA_PUBLIC_KEY_BASE64")
	if publicKeyBase64 == "" {
		utils.Logger.Fatal("RSA_PUBLIC_KEY_BASE64 env var is missing")
	}
	publicKeyPEM, err := base64.StdEncoding.DecodeString(publicKeyBase64)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to decode base64 public key")
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse RSA public key")
	}

	//----------------------------------------------------------------------
	// Build and return the configuration object.
	//----------------------------------------------------------------------
	return &Config{
		OrganizationName:  OrganizationName,
		AppName:           AppName,
		AppPort:           appPort,
		AppUrl:            appUrl,
		SigningAPIURL:     signingAPIURL,
		SigningAPITimeout: DefaultSigningAPITimeout,
		RSAPublicKey:      publicKey,
		OTPValidity:       DefaultOTPValidity,
		ResendCooldown:    DefaultResendCooldown,
		OTPCodeLength:     OTPCodeLength,
		SessionTTL:        DefaultSessionTTL,
	}
}
