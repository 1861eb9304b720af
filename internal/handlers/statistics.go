package handlers

import (
	"net/http"
	"time"

	"budget-tracker/internal/apperr"
	"budget-tracker/internal/summary"
)

// StatsCategoryItem represents a category with its spending statistics.
type StatsCategoryItem struct {
	Category   string  `json:"category"`
	Total      float64 `json:"total"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// StatsShares is the income/expense pair behind the breakdown chart.
type StatsShares struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// StatsResponse is the body of GET /summary.
type StatsResponse struct {
	Month      string              `json:"month,omitempty"`
	PrevMonth  string              `json:"prev_month,omitempty"`
	NextMonth  string              `json:"next_month,omitempty"`
	Income     float64             `json:"income"`
	Expense    float64             `json:"expense"`
	Total      float64             `json:"total"`
	Count      int                 `json:"count"`
	Shares     StatsShares         `json:"shares"`
	Categories []StatsCategoryItem `json:"categories"`
}

// Statistics returns the caller's summary. The optional month query
// parameter (YYYY-MM) restricts it to entries dated in that month.
func (h *Handlers) Statistics(w http.ResponseWriter, r *http.Request) {
	id := GetIdentityFromContext(r)

	month := r.URL.Query().Get("month")
	var prev, next string
	if month != "" {
		m, err := time.Parse("2006-01", month)
		if err != nil {
			h.respondError(w, r, apperr.Validation("month must look like YYYY-MM"))
			return
		}
		prev = m.AddDate(0, -1, 0).Format("2006-01")
		next = m.AddDate(0, 1, 0).Format("2006-01")
	}

	list, err := h.entries.List(r.Context(), id.UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	s := summary.Compute(summary.FilterMonth(list, month))
	incomeShare, expenseShare := s.Shares()

	categoryItems := make([]StatsCategoryItem, 0, len(s.Categories))
	for _, ct := range s.Categories {
		categoryItems = append(categoryItems, StatsCategoryItem{
			Category:   ct.Category,
			Total:      ct.Total.InexactFloat64(),
			Count:      ct.Count,
			Percentage: ct.Percentage,
		})
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Month:      month,
		PrevMonth:  prev,
		NextMonth:  next,
		Income:     s.Income.InexactFloat64(),
		Expense:    s.Expense.InexactFloat64(),
		Total:      s.Total.InexactFloat64(),
		Count:      s.Count,
		Shares:     StatsShares{Income: incomeShare, Expense: expenseShare},
		Categories: categoryItems,
	})
}
