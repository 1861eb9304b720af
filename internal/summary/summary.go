// Package summary folds a list of entries into the running total and the
// income/expense breakdown. It is recomputed from scratch on every call.
package summary

import (
	"sort"
	"strings"

	"budget-tracker/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CategoryTotal is the spending of one category.
type CategoryTotal struct {
	Category   string
	Total      decimal.Decimal
	Count      int
	Percentage float64
}

// Summary is the result of folding a set of entries.
type Summary struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	// Total is Income minus Expense.
	Total decimal.Decimal
	Count int
	// Categories holds expense totals by category, largest first.
	Categories []CategoryTotal
}

// Compute folds entries into a Summary.
func Compute(entries []models.Entry) Summary {
	s := Summary{Categories: []CategoryTotal{}}
	byCategory := make(map[string]*CategoryTotal)

	for _, e := range entries {
		amount := decimal.NewFromFloat(e.Amount)
		s.Count++
		switch e.Type {
		case models.Income:
			s.Income = s.Income.Add(amount)
		case models.Expense:
			s.Expense = s.Expense.Add(amount)
			ct, ok := byCategory[e.Category]
			if !ok {
				ct = &CategoryTotal{Category: e.Category}
				byCategory[e.Category] = ct
			}
			ct.Total = ct.Total.Add(amount)
			ct.Count++
		}
	}
	s.Total = s.Income.Sub(s.Expense)

	for _, ct := range byCategory {
		if s.Expense.IsPositive() {
			ct.Percentage = ct.Total.Div(s.Expense).Mul(hundred).Round(1).InexactFloat64()
		}
		s.Categories = append(s.Categories, *ct)
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		if c := s.Categories[i].Total.Cmp(s.Categories[j].Total); c != 0 {
			return c > 0
		}
		return s.Categories[i].Category < s.Categories[j].Category
	})
	return s
}

// Shares returns income and expense as percentages of their combined volume,
// rounded to one decimal. Both are zero when there is no volume.
func (s Summary) Shares() (income, expense float64) {
	volume := s.Income.Add(s.Expense)
	if volume.IsZero() {
		return 0, 0
	}
	income = s.Income.Div(volume).Mul(hundred).Round(1).InexactFloat64()
	expense = s.Expense.Div(volume).Mul(hundred).Round(1).InexactFloat64()
	return income, expense
}

// FilterMonth keeps the entries whose date starts with month ("2006-01").
// An empty month keeps everything.
func FilterMonth(entries []models.Entry, month string) []models.Entry {
	if month == "" {
		return entries
	}
	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Date, month) {
			out = append(out, e)
		}
	}
	return out
}
