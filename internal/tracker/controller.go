// Package tracker holds the client-side entry list: the rendered rows, the
// per-row edit state machine and the summary derived from them.
//
// Rows only change after the server confirms a mutation, and a saved row is
// always re-rendered from the entry the server returns. A Controller is not
// safe for concurrent use; it serves one user action at a time.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"budget-tracker/internal/models"
	"budget-tracker/internal/summary"
)

// EntryAPI is the authenticated server surface the controller drives.
// *client.Session implements it.
type EntryAPI interface {
	Entries(ctx context.Context) ([]models.Entry, error)
	CreateEntry(ctx context.Context, in models.EntryInput) (*models.Entry, error)
	UpdateEntry(ctx context.Context, id string, patch models.EntryPatch) (*models.Entry, error)
	DeleteEntry(ctx context.Context, id string) error
}

var (
	ErrBlankDescription = errors.New("description cannot be blank")
	ErrInvalidAmount    = errors.New("amount must be a number")
	ErrInvalidType      = errors.New("type must be income or expense")
	ErrUnknownRow       = errors.New("no such entry in the list")
	ErrNotEditing       = errors.New("entry is not being edited")
	ErrAlreadyEditing   = errors.New("entry is already being edited")
)

// RowState is the edit state of one displayed row.
type RowState int

const (
	Display RowState = iota
	Editing
)

func (s RowState) String() string {
	if s == Editing {
		return "editing"
	}
	return "display"
}

// Row is one displayed entry.
type Row struct {
	Entry models.Entry
	State RowState

	// snapshot holds the pre-edit values while State is Editing.
	snapshot models.Entry
}

// EntryForm holds raw, user-typed field values, as an HTML form would.
type EntryForm struct {
	Date        string
	Description string
	Type        string
	Amount      string
	Category    string
}

// Controller renders a user's entries and keeps the summary in step with them.
type Controller struct {
	api     EntryAPI
	rows    []*Row
	summary summary.Summary
	now     func() time.Time
}

// NewController returns an empty controller bound to an authenticated API.
func NewController(api EntryAPI) *Controller {
	c := &Controller{api: api, now: time.Now}
	c.recompute()
	return c
}

// Load replaces the rows with the server's list. On error the rows are kept.
func (c *Controller) Load(ctx context.Context) error {
	list, err := c.api.Entries(ctx)
	if err != nil {
		return err
	}
	rows := make([]*Row, 0, len(list))
	for _, e := range list {
		rows = append(rows, &Row{Entry: e})
	}
	c.rows = rows
	c.recompute()
	return nil
}

// Rows returns a copy of the displayed rows in order.
func (c *Controller) Rows() []Row {
	out := make([]Row, len(c.rows))
	for i, r := range c.rows {
		out[i] = *r
	}
	return out
}

// Summary returns the summary of the displayed rows.
func (c *Controller) Summary() summary.Summary {
	return c.summary
}

// Add validates form, creates the entry on the server and appends the
// server's copy. A blank date becomes today and a blank category the default.
// Zero is a valid amount.
func (c *Controller) Add(ctx context.Context, form EntryForm) (*models.Entry, error) {
	description := strings.TrimSpace(form.Description)
	if description == "" {
		return nil, ErrBlankDescription
	}
	amount, err := parseAmount(form.Amount)
	if err != nil {
		return nil, err
	}
	typ := models.Expense
	if t := strings.TrimSpace(form.Type); t != "" {
		if typ, err = parseType(t); err != nil {
			return nil, err
		}
	}
	date := strings.TrimSpace(form.Date)
	if date == "" {
		date = c.now().Format("2006-01-02")
	}
	category := strings.TrimSpace(form.Category)
	if category == "" {
		category = models.DefaultCategory
	}

	created, err := c.api.CreateEntry(ctx, models.EntryInput{
		Date:        date,
		Description: description,
		Type:        typ,
		Amount:      models.NewAmount(amount),
		Category:    category,
	})
	if err != nil {
		return nil, err
	}
	c.rows = append(c.rows, &Row{Entry: *created})
	c.recompute()
	return created, nil
}

// BeginEdit moves a row from Display to Editing and returns a form
// pre-filled from the displayed values.
func (c *Controller) BeginEdit(id string) (EntryForm, error) {
	row, err := c.row(id)
	if err != nil {
		return EntryForm{}, err
	}
	if row.State == Editing {
		return EntryForm{}, ErrAlreadyEditing
	}
	row.snapshot = row.Entry
	row.State = Editing
	return formFrom(row.Entry), nil
}

// Save submits the fields of form that differ from the pre-edit values.
// A blank description or a non-numeric amount is refused without calling
// the server. On success the row shows the server's entry and returns to
// Display; on any error it stays in Editing.
func (c *Controller) Save(ctx context.Context, id string, form EntryForm) (*models.Entry, error) {
	row, err := c.row(id)
	if err != nil {
		return nil, err
	}
	if row.State != Editing {
		return nil, ErrNotEditing
	}

	patch, err := diff(row.snapshot, form)
	if err != nil {
		return nil, err
	}

	updated, err := c.api.UpdateEntry(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	row.Entry = *updated
	row.State = Display
	row.snapshot = models.Entry{}
	c.recompute()
	return updated, nil
}

// Cancel discards edits and restores the pre-edit snapshot. No request is made.
func (c *Controller) Cancel(id string) error {
	row, err := c.row(id)
	if err != nil {
		return err
	}
	if row.State != Editing {
		return ErrNotEditing
	}
	row.Entry = row.snapshot
	row.State = Display
	row.snapshot = models.Entry{}
	c.recompute()
	return nil
}

// Delete removes the entry on the server, then drops its row.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if _, err := c.row(id); err != nil {
		return err
	}
	if err := c.api.DeleteEntry(ctx, id); err != nil {
		return err
	}
	for i, r := range c.rows {
		if r.Entry.ID == id {
			c.rows = append(c.rows[:i], c.rows[i+1:]...)
			break
		}
	}
	c.recompute()
	return nil
}

// Resolve maps a 1-based row number or an entry id to an entry id.
func (c *Controller) Resolve(ref string) (string, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(c.rows) {
			return "", fmt.Errorf("%w: row %d", ErrUnknownRow, n)
		}
		return c.rows[n-1].Entry.ID, nil
	}
	if _, err := c.row(ref); err != nil {
		return "", err
	}
	return ref, nil
}

func (c *Controller) row(id string) (*Row, error) {
	for _, r := range c.rows {
		if r.Entry.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownRow, id)
}

// recompute folds the displayed rows from scratch.
func (c *Controller) recompute() {
	entries := make([]models.Entry, 0, len(c.rows))
	for _, r := range c.rows {
		entries = append(entries, r.Entry)
	}
	c.summary = summary.Compute(entries)
}

func formFrom(e models.Entry) EntryForm {
	return EntryForm{
		Date:        e.Date,
		Description: e.Description,
		Type:        string(e.Type),
		Amount:      strconv.FormatFloat(e.Amount, 'f', -1, 64),
		Category:    e.Category,
	}
}

// diff validates form and builds a patch of the fields that changed.
func diff(before models.Entry, form EntryForm) (models.EntryPatch, error) {
	var patch models.EntryPatch

	description := strings.TrimSpace(form.Description)
	if description == "" {
		return patch, ErrBlankDescription
	}
	amount, err := parseAmount(form.Amount)
	if err != nil {
		return patch, err
	}
	typ, err := parseType(form.Type)
	if err != nil {
		return patch, err
	}

	if date := strings.TrimSpace(form.Date); date != "" && date != before.Date {
		patch.Date = &date
	}
	if description != before.Description {
		patch.Description = &description
	}
	if typ != before.Type {
		patch.Type = &typ
	}
	if amount != before.Amount {
		patch.Amount = models.NewAmount(amount)
	}
	if category := strings.TrimSpace(form.Category); category != before.Category {
		patch.Category = &category
	}
	return patch, nil
}

func parseAmount(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

func parseType(raw string) (models.EntryType, error) {
	switch t := models.EntryType(strings.ToLower(strings.TrimSpace(raw))); t {
	case models.Income, models.Expense:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}
