package controllers

import (
	"net/http"

	"github.com/KrisCTer/roomie-sub002/internal/app"
	"github.com/KrisCTer/roomie-sub002/internal/dtos"
	"github.com/KrisCTer/roomie-sub002/internal/utils"
)

type HealthController struct {
	app *app.App
}

func NewHealthController(app *app.App) *HealthController {
	return &HealthController{
		app: app,
	}
}

func (c *HealthController) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	resp := dtos.HealthCheckResponse{
		Status: "OK",
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
