package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"daanseva/internal/models"
	"daanseva/internal/pkg/utils"
	"daanseva/internal/repository"
)

// CampaignHandler serves the campaign browse and admin CRUD endpoints.
type CampaignHandler struct {
	campaigns    *repository.CampaignRepository
	transactions *repository.TransactionRepository
	logger       *zap.Logger
}

func NewCampaignHandler(campaigns *repository.CampaignRepository, transactions *repository.TransactionRepository, logger *zap.Logger) *CampaignHandler {
	return &CampaignHandler{
		campaigns:    campaigns,
		transactions: transactions,
		logger:       logger,
	}
}

// List returns campaigns, active ones by default.
// GET /api/campaigns
func (h *CampaignHandler) List(c echo.Context) error {
	status := c.QueryParam("status")
	if status == "" {
		status = models.CampaignStatusActive
	}
	limit := int(utils.ParseInt64(c.QueryParam("limit"), 50))
	page := int(utils.ParseInt64(c.QueryParam("page"), 1))

	campaigns, total, err := h.campaigns.FindAll(c.Request().Context(), status, limit, page)
	if err != nil {
		h.logger.Error("failed to list campaigns", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list campaigns")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"campaigns": campaigns,
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

// Get returns one campaign by id, falling back to slug lookup so shareable
// campaign URLs work.
// GET /api/campaigns/:id
func (h *CampaignHandler) Get(c echo.Context) error {
	campaign, err := h.campaigns.FindByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		campaign, err = h.campaigns.FindBySlug(c.Request().Context(), c.Param("id"))
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, "NOT_FOUND", "campaign not found")
		}
		h.logger.Error("failed to load campaign", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load campaign")
	}
	return c.JSON(http.StatusOK, campaign)
}

// Donations lists a campaign's settled donations, honouring the anonymity
// flag.
// GET /api/campaigns/:id/donations
func (h *CampaignHandler) Donations(c echo.Context) error {
	limit := int(utils.ParseInt64(c.QueryParam("limit"), 20))
	page := int(utils.ParseInt64(c.QueryParam("page"), 1))

	txs, total, err := h.transactions.FindCompletedByCampaign(c.Request().Context(), c.Param("id"), limit, page)
	if err != nil {
		h.logger.Error("failed to list donations", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list donations")
	}

	items := make([]map[string]interface{}, 0, len(txs))
	for _, tx := range txs {
		name := tx.DonorName
		if tx.Anonymous || name == "" {
			name = "Anonymous"
		}
		items = append(items, map[string]interface{}{
			"donor_name":   name,
			"amount":       tx.Amount,
			"currency":     tx.Currency,
			"message":      tx.Message,
			"completed_at": tx.CompletedAt,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"donations": items,
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

// DonorHistory lists every transaction for a donor email, refunds and
// failures included.
// GET /api/donations (admin)
func (h *CampaignHandler) DonorHistory(c echo.Context) error {
	email := c.QueryParam("donor_email")
	if email == "" {
		return errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "donor_email is required")
	}

	txs, err := h.transactions.FindByDonorEmail(c.Request().Context(), email)
	if err != nil {
		h.logger.Error("failed to list donor transactions", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list donations")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"donor_email":  email,
		"transactions": txs,
	})
}

type campaignRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	GoalAmount  int64      `json:"goal_amount"`
	MinDonation int64      `json:"min_donation"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	Deadline    *time.Time `json:"deadline"`
}

// Create creates a campaign.
// POST /api/campaigns (admin)
func (h *CampaignHandler) Create(c echo.Context) error {
	var req campaignRequest
	if err := c.Bind(&req); err != nil || req.Title == "" {
		return errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "title is required")
	}

	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	status := req.Status
	if status == "" {
		status = models.CampaignStatusDraft
	}

	campaign := &models.Campaign{
		ID:          utils.GenerateUUID(),
		Title:       req.Title,
		Slug:        utils.Slugify(req.Title),
		Description: req.Description,
		GoalAmount:  req.GoalAmount,
		MinDonation: req.MinDonation,
		Currency:    currency,
		Status:      status,
		Deadline:    req.Deadline,
	}
	if err := h.campaigns.Create(c.Request().Context(), campaign); err != nil {
		h.logger.Error("failed to create campaign", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create campaign")
	}

	return c.JSON(http.StatusCreated, campaign)
}

// Update updates mutable campaign fields. Aggregates are settlement-owned
// and cannot be written here.
// PUT /api/campaigns/:id (admin)
func (h *CampaignHandler) Update(c echo.Context) error {
	var req campaignRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.GoalAmount > 0 {
		updates["goal_amount"] = req.GoalAmount
	}
	if req.MinDonation > 0 {
		updates["min_donation"] = req.MinDonation
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}
	if req.Deadline != nil {
		updates["deadline"] = req.Deadline
	}
	if len(updates) == 0 {
		return errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "nothing to update")
	}

	if err := h.campaigns.Update(c.Request().Context(), c.Param("id"), updates); err != nil {
		h.logger.Error("failed to update campaign", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to update campaign")
	}

	return h.Get(c)
}
