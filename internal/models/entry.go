package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// EntryType distinguishes money coming in from money going out.
type EntryType string

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

// DefaultCategory is assigned when an entry is stored without a category.
const DefaultCategory = "General"

// Entry represents a budget record owned by a single user.
type Entry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	Type        EntryType `json:"type"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// User represents a user account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// EntryInput is the payload accepted when creating an entry.
// The owner is never part of it: it comes from the verified token.
type EntryInput struct {
	Date        string    `json:"date" validate:"required"`
	Description string    `json:"description" validate:"required"`
	Type        EntryType `json:"type" validate:"required,oneof=income expense"`
	Amount      *Amount   `json:"amount" validate:"required,gte=0"`
	Category    string    `json:"category,omitempty"`
}

// EntryPatch carries the fields of a partial update. Nil fields are left untouched.
type EntryPatch struct {
	Date        *string    `json:"date,omitempty" validate:"omitempty,min=1"`
	Description *string    `json:"description,omitempty" validate:"omitempty,min=1"`
	Type        *EntryType `json:"type,omitempty" validate:"omitempty,oneof=income expense"`
	Amount      *Amount    `json:"amount,omitempty" validate:"omitempty,gte=0"`
	Category    *string    `json:"category,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p EntryPatch) Empty() bool {
	return p.Date == nil && p.Description == nil && p.Type == nil && p.Amount == nil && p.Category == nil
}

// ErrInvalidAmount is returned when an amount does not decode to a finite number.
var ErrInvalidAmount = errors.New("amount must be a number")

// Amount is a non-negative quantity that decodes from either a JSON number
// or a numeric string.
type Amount float64

// NewAmount returns a pointer to an Amount, handy for building inputs and patches.
func NewAmount(v float64) *Amount {
	a := Amount(v)
	return &a
}

// Float64 returns the amount as a float64.
func (a Amount) Float64() float64 { return float64(a) }

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: got %s", ErrInvalidAmount, string(data))
	}
	*a = Amount(v)
	return nil
}
