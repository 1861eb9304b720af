package tracker

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"budget-tracker/internal/models"

	"github.com/shopspring/decimal"
)

// Render writes the rows as a table followed by the summary.
// Expenses are shown negative; rows being edited are marked.
func (c *Controller) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDATE\tDESCRIPTION\tCATEGORY\tAMOUNT\t")
	for i, r := range c.rows {
		marker := ""
		if r.State == Editing {
			marker = "(editing)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i+1, r.Entry.Date, r.Entry.Description, r.Entry.Category, signed(r.Entry), marker)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := c.summary
	income, expense := s.Shares()
	_, err := fmt.Fprintf(w, "\nTotal: %s\nIncome: %s (%s%%)  Expense: %s (%s%%)\n",
		s.Total.StringFixed(2),
		s.Income.StringFixed(2), percent(income),
		s.Expense.StringFixed(2), percent(expense))
	if err != nil {
		return err
	}
	for _, ct := range s.Categories {
		if _, err := fmt.Fprintf(w, "  %s: %s (%s%%)\n", ct.Category, ct.Total.StringFixed(2), percent(ct.Percentage)); err != nil {
			return err
		}
	}
	return nil
}

func signed(e models.Entry) string {
	amount := decimal.NewFromFloat(e.Amount)
	if e.Type == models.Expense {
		amount = amount.Neg()
	}
	return amount.StringFixed(2)
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
