package controller

import (
	"bytes"
	"log/slog"
	"net/http"

	"surfsup-server/internal/modules/climate/views"
	"surfsup-server/internal/utils"
)

func (c *climateControllerImpl) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := views.RenderIndex(&buf, views.DefaultIndex(APIPrefix)); err != nil {
		slog.Error("index template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteText(w, http.StatusOK, buf.Bytes())
}

func (c *climateControllerImpl) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	precipitation, err := c.service.Precipitation(r.Context())
	if err != nil {
		slog.Error("precipitation query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, precipitation)
}

func (c *climateControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.service.Stations(r.Context())
	if err != nil {
		slog.Error("stations query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, stations)
}

func (c *climateControllerImpl) handleTobs(w http.ResponseWriter, r *http.Request) {
	observations, err := c.service.MostActiveTemperatures(r.Context())
	if err != nil {
		slog.Error("tobs query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, observations)
}

func (c *climateControllerImpl) handleTemperatureFrom(w http.ResponseWriter, r *http.Request) {
	c.writeTemperatureStats(w, r, false)
}

func (c *climateControllerImpl) handleTemperatureRange(w http.ResponseWriter, r *http.Request) {
	c.writeTemperatureStats(w, r, true)
}

func (c *climateControllerImpl) writeTemperatureStats(w http.ResponseWriter, r *http.Request, withEnd bool) {
	dateRange, err := parseDateRange(r, withEnd)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := c.service.TemperatureStats(r.Context(), dateRange)
	if err != nil {
		slog.Error("temperature stats query failed",
			"start", r.PathValue("start"),
			"end", r.PathValue("end"),
			"error", err,
		)
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}
