package summary

import (
	"testing"

	"budget-tracker/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(date string, typ models.EntryType, amount float64, category string) models.Entry {
	return models.Entry{Date: date, Type: typ, Amount: amount, Category: category}
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil)

	assert.True(t, s.Total.IsZero())
	assert.Equal(t, 0, s.Count)
	assert.NotNil(t, s.Categories)
	income, expense := s.Shares()
	assert.Zero(t, income)
	assert.Zero(t, expense)
}

func TestCompute_SingleExpense(t *testing.T) {
	s := Compute([]models.Entry{entry("2024-01-01", models.Expense, 4.50, "Food")})

	assert.Equal(t, -4.50, s.Total.InexactFloat64())
	assert.True(t, s.Income.IsZero())
	require.Len(t, s.Categories, 1)
	assert.Equal(t, "Food", s.Categories[0].Category)
	assert.Equal(t, 100.0, s.Categories[0].Percentage)
}

func TestCompute_ExactCents(t *testing.T) {
	var entries []models.Entry
	for i := 0; i < 10; i++ {
		entries = append(entries, entry("2024-01-01", models.Income, 0.1, "Tips"))
	}
	s := Compute(entries)

	// 0.1 summed ten times as float64 is 0.9999999999999999.
	assert.True(t, s.Income.Equal(decimal.NewFromInt(1)), "got %s", s.Income)
}

func TestCompute_Breakdown(t *testing.T) {
	s := Compute([]models.Entry{
		entry("2024-01-01", models.Income, 1000, "Salary"),
		entry("2024-01-02", models.Expense, 150, "Food"),
		entry("2024-01-03", models.Expense, 50, "Transport"),
		entry("2024-01-04", models.Expense, 50, "Food"),
	})

	assert.Equal(t, 1000.0, s.Income.InexactFloat64())
	assert.Equal(t, 250.0, s.Expense.InexactFloat64())
	assert.Equal(t, 750.0, s.Total.InexactFloat64())
	assert.Equal(t, 4, s.Count)

	require.Len(t, s.Categories, 2)
	assert.Equal(t, "Food", s.Categories[0].Category)
	assert.Equal(t, 2, s.Categories[0].Count)
	assert.Equal(t, 80.0, s.Categories[0].Percentage)
	assert.Equal(t, "Transport", s.Categories[1].Category)
	assert.Equal(t, 20.0, s.Categories[1].Percentage)

	income, expense := s.Shares()
	assert.Equal(t, 80.0, income)
	assert.Equal(t, 20.0, expense)
}

func TestCompute_CategoryTieOrder(t *testing.T) {
	s := Compute([]models.Entry{
		entry("2024-01-01", models.Expense, 10, "Zoo"),
		entry("2024-01-01", models.Expense, 10, "Books"),
	})

	require.Len(t, s.Categories, 2)
	assert.Equal(t, "Books", s.Categories[0].Category)
	assert.Equal(t, "Zoo", s.Categories[1].Category)
}

func TestFilterMonth(t *testing.T) {
	entries := []models.Entry{
		entry("2024-01-31", models.Expense, 1, "A"),
		entry("2024-02-01", models.Expense, 2, "A"),
		entry("yesterday", models.Expense, 3, "A"),
	}

	assert.Len(t, FilterMonth(entries, ""), 3)
	got := FilterMonth(entries, "2024-02")
	require.Len(t, got, 1)
	assert.Equal(t, 2.0, got[0].Amount)
}
