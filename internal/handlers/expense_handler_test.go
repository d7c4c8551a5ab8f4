package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "tripsync/internal/errors"
	"tripsync/internal/models"
	"tripsync/internal/pagination"
	"tripsync/internal/services"
	"tripsync/internal/splits"
)

type mockExpenseService struct {
	createExpenseFn func(userID, tripID string, in services.ExpenseInput) (*models.Expense, error)
	listExpensesFn  func(userID, tripID string, page pagination.PageRequest, category *models.ExpenseCategory) (*pagination.PageResponse[models.Expense], error)
	deleteExpenseFn func(userID, tripID, expenseID string) error
	getBalancesFn   func(userID, tripID string) (*services.BalanceReport, error)
}

func (m *mockExpenseService) CreateExpense(_ context.Context, userID, tripID string, in services.ExpenseInput) (*models.Expense, error) {
	if m.createExpenseFn != nil {
		return m.createExpenseFn(userID, tripID, in)
	}
	return &models.Expense{Base: models.Base{ID: testItemID}, Amount: in.Amount, Currency: "USD"}, nil
}

func (m *mockExpenseService) ListExpenses(_ context.Context, userID, tripID string, page pagination.PageRequest, category *models.ExpenseCategory) (*pagination.PageResponse[models.Expense], error) {
	if m.listExpensesFn != nil {
		return m.listExpensesFn(userID, tripID, page, category)
	}
	resp := pagination.NewPageResponse([]models.Expense{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockExpenseService) GetExpense(_ context.Context, _, tripID, expenseID string) (*models.Expense, error) {
	return &models.Expense{Base: models.Base{ID: expenseID}, TripID: tripID}, nil
}

func (m *mockExpenseService) DeleteExpense(_ context.Context, userID, tripID, expenseID string) error {
	if m.deleteExpenseFn != nil {
		return m.deleteExpenseFn(userID, tripID, expenseID)
	}
	return nil
}

func (m *mockExpenseService) GetBalances(_ context.Context, userID, tripID string) (*services.BalanceReport, error) {
	if m.getBalancesFn != nil {
		return m.getBalancesFn(userID, tripID)
	}
	return &services.BalanceReport{Currency: "USD", Balances: []splits.Balance{}, Transfers: []splits.Transfer{}}, nil
}

func setupExpenseRouter(handler *ExpenseHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/trips/:id/expenses", handler.CreateExpense)
	auth.GET("/trips/:id/expenses", handler.ListExpenses)
	auth.GET("/trips/:id/expenses/:expenseId", handler.GetExpense)
	auth.DELETE("/trips/:id/expenses/:expenseId", handler.DeleteExpense)
	auth.GET("/trips/:id/balances", handler.GetBalances)
	return r
}

func TestExpenseHandler_CreateExpense(t *testing.T) {
	t.Run("equal split", func(t *testing.T) {
		var got services.ExpenseInput
		svc := &mockExpenseService{
			createExpenseFn: func(_, _ string, in services.ExpenseInput) (*models.Expense, error) {
				got = in
				return &models.Expense{Base: models.Base{ID: testItemID}, Amount: in.Amount, Currency: "EUR"}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupExpenseRouter(NewExpenseHandler(svc, audit))

		rec := doRequest(r, "POST", "/trips/"+testTripID+"/expenses", `{
			"amount":100,"category":"food","description":"Dinner","currency":"EUR","date":"2024-06-02",
			"split_with_user_ids":["`+testUserID+`","`+otherUserID+`"]}`)

		assertStatus(t, rec, http.StatusCreated)
		if !got.Amount.Equal(decimal.NewFromInt(100)) || got.Category != models.CategoryFood {
			t.Errorf("unexpected input %+v", got)
		}
		if len(got.SplitWith) != 2 || got.SplitType != nil || got.Date == nil {
			t.Errorf("unexpected split input %+v", got)
		}
		expense := parseJSON(t, rec)["expense"].(map[string]interface{})
		if expense["amount"] != float64(100) {
			t.Errorf("expected amount rendered as a number, got %v", expense["amount"])
		}
		if a := audit.actions(); len(a) != 1 || a[0] != "CREATE_EXPENSE" {
			t.Errorf("expected CREATE_EXPENSE audit entry, got %v", a)
		}
	})

	t.Run("custom percentage split", func(t *testing.T) {
		var got services.ExpenseInput
		svc := &mockExpenseService{
			createExpenseFn: func(_, _ string, in services.ExpenseInput) (*models.Expense, error) {
				got = in
				return &models.Expense{Base: models.Base{ID: testItemID}}, nil
			},
		}
		r := setupExpenseRouter(NewExpenseHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/trips/"+testTripID+"/expenses", `{
			"amount":80,"category":"transport","split_type":"custom_percentage",
			"splits":[{"user_id":"`+testUserID+`","percentage":75},{"user_id":"`+otherUserID+`","percentage":25}]}`)

		assertStatus(t, rec, http.StatusCreated)
		if got.SplitType == nil || *got.SplitType != models.SplitTypeCustomPercentage {
			t.Errorf("unexpected split type %v", got.SplitType)
		}
		if len(got.Splits) != 2 || got.Splits[1].Percentage == nil || !got.Splits[1].Percentage.Equal(decimal.NewFromInt(25)) {
			t.Errorf("unexpected splits %+v", got.Splits)
		}
	})

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"unknown category", `{"amount":10,"category":"spa"}`, "category"},
		{"unknown split type", `{"amount":10,"category":"food","split_type":"by_weight"}`, "split_type"},
		{"bad participant id", `{"amount":10,"category":"food","split_with_user_ids":["bob"]}`, "split_with_user_ids[0]"},
		{"bad receipt url", `{"amount":10,"category":"food","receipt_url":"not a url"}`, "receipt_url"},
	}
	for _, tc := range tests {
		t.Run("returns 400 on "+tc.name, func(t *testing.T) {
			r := setupExpenseRouter(NewExpenseHandler(&mockExpenseService{}, &mockAuditService{}))

			rec := doRequest(r, "POST", "/trips/"+testTripID+"/expenses", tc.body)

			assertStatus(t, rec, http.StatusBadRequest)
			fields, _ := parseJSON(t, rec)["error"].(map[string]interface{})["fields"].(map[string]interface{})
			if _, ok := fields[tc.field]; !ok {
				t.Errorf("expected field error for %s, got %v", tc.field, fields)
			}
		})
	}

	t.Run("returns 400 on bad date", func(t *testing.T) {
		r := setupExpenseRouter(NewExpenseHandler(&mockExpenseService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/trips/"+testTripID+"/expenses", `{"amount":10,"category":"food","date":"yesterday"}`)

		assertStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("passes split errors through", func(t *testing.T) {
		svc := &mockExpenseService{
			createExpenseFn: func(string, string, services.ExpenseInput) (*models.Expense, error) {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidSplit, "percentages must sum to 100")
			},
		}
		r := setupExpenseRouter(NewExpenseHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/trips/"+testTripID+"/expenses", `{"amount":10,"category":"food"}`)

		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_SPLIT")
	})
}

func TestExpenseHandler_ListExpenses(t *testing.T) {
	t.Run("category filter", func(t *testing.T) {
		var got *models.ExpenseCategory
		svc := &mockExpenseService{
			listExpensesFn: func(_, _ string, _ pagination.PageRequest, category *models.ExpenseCategory) (*pagination.PageResponse[models.Expense], error) {
				got = category
				resp := pagination.NewPageResponse([]models.Expense{}, 1, 20, 0)
				return &resp, nil
			},
		}
		r := setupExpenseRouter(NewExpenseHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/trips/"+testTripID+"/expenses?category=food", "")

		assertStatus(t, rec, http.StatusOK)
		if got == nil || *got != models.CategoryFood {
			t.Errorf("expected food filter, got %v", got)
		}
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		r := setupExpenseRouter(NewExpenseHandler(&mockExpenseService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/trips/"+testTripID+"/expenses?category=spa", "")

		assertStatus(t, rec, http.StatusBadRequest)
	})
}

func TestExpenseHandler_DeleteAndBalances(t *testing.T) {
	t.Run("delete is audited", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupExpenseRouter(NewExpenseHandler(&mockExpenseService{}, audit))

		rec := doRequest(r, "DELETE", "/trips/"+testTripID+"/expenses/"+testItemID, "")

		assertStatus(t, rec, http.StatusOK)
		if a := audit.actions(); len(a) != 1 || a[0] != "DELETE_EXPENSE" {
			t.Errorf("expected DELETE_EXPENSE audit entry, got %v", a)
		}
	})

	t.Run("delete by non-payer is forbidden", func(t *testing.T) {
		svc := &mockExpenseService{
			deleteExpenseFn: func(string, string, string) error { return apperrors.ErrForbidden },
		}
		r := setupExpenseRouter(NewExpenseHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/trips/"+testTripID+"/expenses/"+testItemID, "")

		assertStatus(t, rec, http.StatusForbidden)
	})

	t.Run("balances", func(t *testing.T) {
		svc := &mockExpenseService{
			getBalancesFn: func(string, string) (*services.BalanceReport, error) {
				return &services.BalanceReport{
					Currency:  "USD",
					Balances:  []splits.Balance{{UserID: testUserID, Net: decimal.NewFromInt(30)}, {UserID: otherUserID, Net: decimal.NewFromInt(-30)}},
					Transfers: []splits.Transfer{{From: otherUserID, To: testUserID, Amount: decimal.NewFromInt(30)}},
				}, nil
			},
		}
		r := setupExpenseRouter(NewExpenseHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/trips/"+testTripID+"/balances", "")

		assertStatus(t, rec, http.StatusOK)
		result := parseJSON(t, rec)
		transfers := result["transfers"].([]interface{})
		if len(transfers) != 1 {
			t.Fatalf("expected 1 transfer, got %v", transfers)
		}
		if transfers[0].(map[string]interface{})["amount"] != float64(30) {
			t.Errorf("unexpected transfer %v", transfers[0])
		}
	})
}
