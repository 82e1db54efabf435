package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"daanseva/internal/pkg/utils"
	"daanseva/internal/repository"
	"daanseva/internal/service"
)

type statsReporter interface {
	Report(ctx context.Context, f repository.StatsFilter, days int) (*service.StatsReport, error)
}

// StatsHandler serves the reporting endpoint.
type StatsHandler struct {
	stats  statsReporter
	logger *zap.Logger
}

func NewStatsHandler(stats statsReporter, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, logger: logger}
}

// Report returns the donation statistics view.
// GET /api/stats/donations (admin)
// Query: from, to (RFC3339), campaign_id, donor_email, include_refunded, days
func (h *StatsHandler) Report(c echo.Context) error {
	f := repository.StatsFilter{
		CampaignID:      c.QueryParam("campaign_id"),
		DonorEmail:      c.QueryParam("donor_email"),
		IncludeRefunded: c.QueryParam("include_refunded") == "true",
	}

	if raw := c.QueryParam("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "from must be RFC3339")
		}
		f.From = &t
	}
	if raw := c.QueryParam("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "to must be RFC3339")
		}
		f.To = &t
	}

	days := int(utils.ParseInt64(c.QueryParam("days"), 30))

	report, err := h.stats.Report(c.Request().Context(), f, days)
	if err != nil {
		h.logger.Error("failed to build stats report", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to build report")
	}

	return c.JSON(http.StatusOK, report)
}
