package handler

import (
	"net/http"
	"slices"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

// CreateExpenseRequest is the body of POST /session/expenses.
type CreateExpenseRequest struct {
	Category    domain.ExpenseCategory `json:"category" validate:"required"`
	Amount      *float64               `json:"amount" validate:"required,gte=0"`
	Description string                 `json:"description"`
}

// CreateExpense handles POST /session/expenses. The server stamps the time.
func (s *Server) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, ok := s.activeTrip(w); !ok {
		return
	}
	id := s.driver.AddExpense(domain.Expense{
		Category:    req.Category,
		Amount:      *req.Amount,
		Description: req.Description,
		Timestamp:   s.now(),
	})
	if id == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "expense was rejected")
		return
	}
	trip, _ := s.driver.Snapshot()
	i := slices.IndexFunc(trip.Expenses, func(e domain.Expense) bool { return e.ID == id })
	if i < 0 {
		notFound(w, "expense not found")
		return
	}
	writeJSON(w, http.StatusCreated, trip.Expenses[i])
}
