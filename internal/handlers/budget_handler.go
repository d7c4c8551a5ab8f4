package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tripsync/internal/models"
	"tripsync/internal/services"
)

// BudgetHandler handles trip budget requests.
type BudgetHandler struct {
	budgetService services.BudgetServicer
	auditService  services.AuditServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetServicer, auditService services.AuditServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService, auditService: auditService}
}

// UpdateBudgetRequest represents the request payload for setting a trip budget.
// Amounts are validated by the service so that every problem is reported
// against its own field.
type UpdateBudgetRequest struct {
	TotalBudget     *decimal.Decimal           `json:"total_budget" swaggertype:"number"`
	Currency        *string                    `json:"currency" binding:"omitempty,iso4217"`
	CategoryBudgets map[string]decimal.Decimal `json:"category_budgets" swaggertype:"object,number"`
}

// GetBudget returns a trip's budget plan and spending summary
// @Summary     Get budget
// @Description Budget plan with per-category spent, remaining and percent used
// @Tags        budget
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Success     200 {object} services.BudgetOverview
// @Failure     403 {object} ErrorResponse "No access to trip"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id}/budget [get]
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	tripID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	overview, err := h.budgetService.GetBudget(c.Request.Context(), userID, tripID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// UpdateBudget creates or updates a trip's budget plan
// @Summary     Set budget
// @Tags        budget
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Trip ID"
// @Param       request body UpdateBudgetRequest true "Budget changes"
// @Success     200 {object} services.BudgetOverview
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Editor access required"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id}/budget [patch]
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	tripID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBudgetRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	in := services.BudgetUpdate{TotalBudget: req.TotalBudget, Currency: req.Currency}
	if req.CategoryBudgets != nil {
		in.Categories = make(map[models.ExpenseCategory]decimal.Decimal, len(req.CategoryBudgets))
		for k, v := range req.CategoryBudgets {
			in.Categories[models.ExpenseCategory(k)] = v
		}
	}

	overview, err := h.budgetService.UpsertBudget(c.Request.Context(), userID, tripID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	changes := map[string]interface{}{}
	if req.TotalBudget != nil {
		changes["total_budget"] = req.TotalBudget.String()
	}
	if req.Currency != nil {
		changes["currency"] = *req.Currency
	}
	h.auditService.Log(userID, "UPDATE_BUDGET", "trip", tripID, c.ClientIP(), changes)

	c.JSON(http.StatusOK, overview)
}
