package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tripsync/internal/models"
	"tripsync/internal/pagination"
	"tripsync/internal/services"
)

// ExpenseHandler handles shared expense requests.
type ExpenseHandler struct {
	expenseService services.ExpenseServicer
	auditService   services.AuditServicer
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseService services.ExpenseServicer, auditService services.AuditServicer) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, auditService: auditService}
}

// SplitRequest is one custom share of an expense
type SplitRequest struct {
	UserID     string           `json:"user_id" binding:"required,uuid"`
	Amount     *decimal.Decimal `json:"amount" swaggertype:"number"`
	Percentage *decimal.Decimal `json:"percentage" swaggertype:"number"`
}

// CreateExpenseRequest represents the request payload for recording an expense.
// Use split_with_user_ids for an equal split and splits for custom shares.
type CreateExpenseRequest struct {
	Category         string          `json:"category" binding:"required,expense_category"`
	Description      string          `json:"description" binding:"max=500"`
	Amount           decimal.Decimal `json:"amount" swaggertype:"number"`
	Currency         string          `json:"currency" binding:"omitempty,iso4217"`
	Date             *string         `json:"date"`
	EventID          *string         `json:"event_id" binding:"omitempty,uuid"`
	ReceiptURL       string          `json:"receipt_url" binding:"omitempty,url,max=2048"`
	PaidByID         string          `json:"paid_by" binding:"omitempty,uuid"`
	SplitType        *string         `json:"split_type" binding:"omitempty,split_type"`
	SplitWithUserIDs []string        `json:"split_with_user_ids" binding:"omitempty,max=100,dive,uuid"`
	Splits           []SplitRequest  `json:"splits" binding:"omitempty,max=100,dive"`
}

// ListExpensesQuery holds the expense list filters
type ListExpensesQuery struct {
	Category string `form:"category" binding:"omitempty,expense_category"`
}

// CreateExpense records an expense
// @Summary     Create an expense
// @Description Records an expense and splits it between trip members
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Trip ID"
// @Param       request body CreateExpenseRequest true "Expense details"
// @Success     201 {object} models.Expense
// @Failure     400 {object} ErrorResponse "Invalid input or split"
// @Failure     403 {object} ErrorResponse "Editor access required"
// @Failure     404 {object} ErrorResponse "Trip or event not found"
// @Router      /trips/{id}/expenses [post]
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
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

	var req CreateExpenseRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	in := services.ExpenseInput{
		Category:    models.ExpenseCategory(req.Category),
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		EventID:     req.EventID,
		ReceiptURL:  req.ReceiptURL,
		PaidByID:    req.PaidByID,
		SplitWith:   req.SplitWithUserIDs,
	}
	if in.Date, err = parseOptionalDate("date", req.Date); err != nil {
		respondWithError(c, err)
		return
	}
	if req.SplitType != nil {
		st := models.SplitType(*req.SplitType)
		in.SplitType = &st
	}
	for _, sp := range req.Splits {
		in.Splits = append(in.Splits, services.SplitInput{UserID: sp.UserID, Amount: sp.Amount, Percentage: sp.Percentage})
	}

	expense, err := h.expenseService.CreateExpense(c.Request.Context(), userID, tripID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_EXPENSE", "expense", expense.ID, c.ClientIP(),
		map[string]interface{}{"trip_id": tripID, "amount": expense.Amount.String(), "currency": expense.Currency})

	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

// ListExpenses lists a trip's expenses
// @Summary     List expenses
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Trip ID"
// @Param       category  query string false "Filter by category"
// @Param       page      query int    false "Page number"
// @Param       page_size query int    false "Items per page"
// @Param       sort      query string false "Sort key: date, amount, created_at; prefix - for descending"
// @Success     200 {object} pagination.PageResponse[models.Expense]
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id}/expenses [get]
func (h *ExpenseHandler) ListExpenses(c *gin.Context) {
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

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindingError(err))
		return
	}
	var filter ListExpensesQuery
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondWithError(c, bindingError(err))
		return
	}
	var category *models.ExpenseCategory
	if filter.Category != "" {
		cat := models.ExpenseCategory(filter.Category)
		category = &cat
	}

	result, err := h.expenseService.ListExpenses(c.Request.Context(), userID, tripID, page, category)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetExpense returns one expense with its splits
// @Summary     Get an expense
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id        path string true "Trip ID"
// @Param       expenseId path string true "Expense ID"
// @Success     200 {object} models.Expense
// @Failure     404 {object} ErrorResponse "Trip or expense not found"
// @Router      /trips/{id}/expenses/{expenseId} [get]
func (h *ExpenseHandler) GetExpense(c *gin.Context) {
	userID, tripID, expenseID, ok := expenseParams(c)
	if !ok {
		return
	}

	expense, err := h.expenseService.GetExpense(c.Request.Context(), userID, tripID, expenseID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// DeleteExpense deletes an expense
// @Summary     Delete an expense
// @Description The payer or a trip admin may delete an expense
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id        path string true "Trip ID"
// @Param       expenseId path string true "Expense ID"
// @Success     200 {object} MessageResponse
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Trip or expense not found"
// @Router      /trips/{id}/expenses/{expenseId} [delete]
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	userID, tripID, expenseID, ok := expenseParams(c)
	if !ok {
		return
	}

	if err := h.expenseService.DeleteExpense(c.Request.Context(), userID, tripID, expenseID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_EXPENSE", "expense", expenseID, c.ClientIP(),
		map[string]interface{}{"trip_id": tripID})

	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted successfully"})
}

// GetBalances reports who owes whom
// @Summary     Get balances
// @Description Net balance per member and the transfers that settle the trip
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Success     200 {object} services.BalanceReport
// @Failure     403 {object} ErrorResponse "No access to trip"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id}/balances [get]
func (h *ExpenseHandler) GetBalances(c *gin.Context) {
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

	report, err := h.expenseService.GetBalances(c.Request.Context(), userID, tripID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func expenseParams(c *gin.Context) (userID, tripID, expenseID string, ok bool) {
	var err error
	if userID, err = getUserID(c); err != nil {
		respondWithError(c, err)
		return "", "", "", false
	}
	if tripID, err = parsePathID(c, "id"); err != nil {
		respondWithError(c, err)
		return "", "", "", false
	}
	if expenseID, err = parsePathID(c, "expenseId"); err != nil {
		respondWithError(c, err)
		return "", "", "", false
	}
	return userID, tripID, expenseID, true
}
