// Package entries holds the business rules for budget entries. Every
// operation takes the owner id from the verified token; callers never pass
// an owner through the entry payload.
package entries

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"budget-tracker/internal/apperr"
	"budget-tracker/internal/models"
	"budget-tracker/internal/storage"

	"github.com/go-playground/validator/v10"
)

// Store is the part of storage.Store the entry service needs.
type Store interface {
	ListEntries(ctx context.Context, userID string) ([]models.Entry, error)
	CreateEntry(ctx context.Context, e models.Entry) (*models.Entry, error)
	UpdateEntry(ctx context.Context, userID, id string, patch models.EntryPatch) (*models.Entry, error)
	DeleteEntry(ctx context.Context, userID, id string) error
}

// Service validates entry input and scopes every call to one owner.
type Service struct {
	store     Store
	validator *validator.Validate
}

// NewService constructs a new Service.
func NewService(store Store) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{store: store, validator: v}
}

// List returns the entries owned by userID in creation order.
func (s *Service) List(ctx context.Context, userID string) ([]models.Entry, error) {
	entries, err := s.store.ListEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// Create validates in and stores it as a new entry owned by userID.
func (s *Service) Create(ctx context.Context, userID string, in models.EntryInput) (*models.Entry, error) {
	in.Date = strings.TrimSpace(in.Date)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if err := s.validator.Struct(in); err != nil {
		return nil, validationError(err)
	}

	category := in.Category
	if category == "" {
		category = models.DefaultCategory
	}

	entry, err := s.store.CreateEntry(ctx, models.Entry{
		UserID:      userID,
		Date:        in.Date,
		Description: in.Description,
		Type:        in.Type,
		Amount:      in.Amount.Float64(),
		Category:    category,
	})
	if err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	return entry, nil
}

// Update applies the fields present in patch to the entry id owned by userID.
func (s *Service) Update(ctx context.Context, userID, id string, patch models.EntryPatch) (*models.Entry, error) {
	trim(patch.Date)
	trim(patch.Description)
	trim(patch.Category)
	if err := s.validator.Struct(patch); err != nil {
		return nil, validationError(err)
	}
	if patch.Category != nil && *patch.Category == "" {
		category := models.DefaultCategory
		patch.Category = &category
	}

	entry, err := s.store.UpdateEntry(ctx, userID, id, patch)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("update entry: %w", err)
	}
	return entry, nil
}

// Delete removes the entry id owned by userID.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteEntry(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Validation("invalid entry payload")
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return apperr.Validation("%s is required", fe.Field())
	case "min":
		return apperr.Validation("%s must not be empty", fe.Field())
	case "oneof":
		return apperr.Validation("%s must be income or expense", fe.Field())
	case "gte":
		return apperr.Validation("%s must not be negative", fe.Field())
	default:
		return apperr.Validation("%s is invalid", fe.Field())
	}
}
