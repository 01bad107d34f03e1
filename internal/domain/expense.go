package domain

import (
	"fmt"
	"strings"
	"time"
)

// ExpenseCategory groups non-fuel trip costs.
type ExpenseCategory int

const (
	ExpenseToll ExpenseCategory = iota + 1
	ExpenseFood
	ExpenseLodging
	ExpenseOther
)

var expenseCategoryNames = map[ExpenseCategory]string{
	ExpenseToll:    "toll",
	ExpenseFood:    "food",
	ExpenseLodging: "lodging",
	ExpenseOther:   "other",
}

func (c ExpenseCategory) String() string {
	if s, ok := expenseCategoryNames[c]; ok {
		return s
	}
	return fmt.Sprintf("ExpenseCategory(%d)", int(c))
}

// ParseExpenseCategory converts a case-insensitive category name.
func ParseExpenseCategory(s string) (ExpenseCategory, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for c, name := range expenseCategoryNames {
		if name == want {
			return c, nil
		}
	}
	return 0, Invalidf("unknown expense category %q", s)
}

func (c ExpenseCategory) MarshalText() ([]byte, error) {
	if _, ok := expenseCategoryNames[c]; !ok {
		return nil, Invalidf("invalid expense category %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *ExpenseCategory) UnmarshalText(b []byte) error {
	v, err := ParseExpenseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Expense is one non-fuel cost logged during a trip.
type Expense struct {
	ID          string          `json:"id"`
	Category    ExpenseCategory `json:"category"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}
