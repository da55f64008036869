// Package catalog manages the word and expression collections.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/lexiquiz/internal/domain"
)

var (
	// ErrNotFound is returned when deleting an item that does not exist.
	ErrNotFound = errors.New("catalog: item not found")
	// ErrInvalid wraps rejected item input.
	ErrInvalid = errors.New("invalid")
)

// Store holds the item collections.
type Store interface {
	ListItems(kind domain.Kind) ([]domain.LearningItem, error)
	AddItem(kind domain.Kind, item domain.LearningItem) (domain.LearningItem, error)
	DeleteItem(kind domain.Kind, id int64) (bool, error)
}

// ItemInput is the user-supplied part of a new item.
type ItemInput struct {
	Source  string `json:"source" validate:"required,max=500"`
	Target  string `json:"target" validate:"required,max=500"`
	Example string `json:"example" validate:"max=2000"`
	Notes   string `json:"notes" validate:"max=2000"`
}

// Catalog validates and stores items.
type Catalog struct {
	store    Store
	validate *validator.Validate
}

// New returns a catalog backed by store.
func New(store Store) *Catalog {
	return &Catalog{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Add validates in and stores it as a new item of kind.
func (c *Catalog) Add(kind domain.Kind, in ItemInput) (domain.LearningItem, error) {
	in.Source = strings.TrimSpace(in.Source)
	in.Target = strings.TrimSpace(in.Target)
	in.Example = strings.TrimSpace(in.Example)
	in.Notes = strings.TrimSpace(in.Notes)

	if err := c.validate.Struct(in); err != nil {
		return domain.LearningItem{}, fmt.Errorf("%w %s: %w", ErrInvalid, kind, describe(err))
	}

	item, err := c.store.AddItem(kind, domain.LearningItem{
		Kind:       kind,
		SourceText: in.Source,
		TargetText: in.Target,
		Example:    in.Example,
		Notes:      in.Notes,
	})
	if err != nil {
		return domain.LearningItem{}, err
	}
	slog.Info("item added", "kind", kind, "id", item.ID)
	return item, nil
}

// Delete removes the item of kind with id.
func (c *Catalog) Delete(kind domain.Kind, id int64) error {
	deleted, err := c.store.DeleteItem(kind, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: %s %d", ErrNotFound, kind, id)
	}
	slog.Info("item deleted", "kind", kind, "id", id)
	return nil
}

// List returns the items of kind whose source or target contains query,
// ignoring case. An empty query matches everything.
func (c *Catalog) List(kind domain.Kind, query string) ([]domain.LearningItem, error) {
	items, err := c.store.ListItems(kind)
	if err != nil {
		return nil, err
	}
	return Filter(items, query), nil
}

// Counts returns the number of items per kind.
func (c *Catalog) Counts() (map[domain.Kind]int, error) {
	counts := make(map[domain.Kind]int, len(domain.Kinds))
	for _, kind := range domain.Kinds {
		items, err := c.store.ListItems(kind)
		if err != nil {
			return nil, err
		}
		counts[kind] = len(items)
	}
	return counts, nil
}

// Filter keeps the items whose source or target contains query, ignoring case.
func Filter(items []domain.LearningItem, query string) []domain.LearningItem {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	var out []domain.LearningItem
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.SourceText), q) || strings.Contains(strings.ToLower(it.TargetText), q) {
			out = append(out, it)
		}
	}
	return out
}

// describe turns validator errors into a short message naming the fields.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, field+" is too long")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return errors.New(strings.Join(msgs, ", "))
}
