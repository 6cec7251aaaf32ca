package category

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/finledger/internal/dictionary"
	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/slug"
	"github.com/tinoosan/finledger/internal/storage"
)

type Store interface {
	Category(ctx context.Context, userID, id uuid.UUID) (ledger.Category, error)
	Categories(ctx context.Context, userID uuid.UUID, kind ledger.CategoryKind) ([]ledger.Category, error)
	InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error
}

// CreateInput describes a category. Active defaults to true and Color to
// ledger.DefaultCategoryColor.
type CreateInput struct {
	Name        string
	Kind        ledger.CategoryKind
	Color       string
	Description string
	ParentID    *uuid.UUID
	Active      *bool
	SortOrder   int
}

// UpdateInput changes the non-nil fields. ClearParent detaches the category
// from its parent.
type UpdateInput struct {
	Name        *string
	Kind        *ledger.CategoryKind
	Color       *string
	Description *string
	ParentID    *uuid.UUID
	ClearParent bool
	Active      *bool
	SortOrder   *int
}

type Service interface {
	Create(ctx context.Context, userID uuid.UUID, in CreateInput) (ledger.Category, error)
	Get(ctx context.Context, userID, id uuid.UUID) (ledger.Category, error)
	// List returns the user's categories usable for kind, or all when kind is empty.
	List(ctx context.Context, userID uuid.UUID, kind ledger.CategoryKind) ([]ledger.Category, error)
	// Parents returns the active top-level categories usable for kind.
	Parents(ctx context.Context, userID uuid.UUID, kind ledger.CategoryKind) ([]ledger.Category, error)
	Update(ctx context.Context, userID, id uuid.UUID, in UpdateInput) (ledger.Category, error)
	// Delete refuses with errs.ErrConflict while expenses, incomes, budgets or
	// child categories still reference the category.
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// SeedDefaults adds the curated categories the user does not have yet.
	SeedDefaults(ctx context.Context, userID uuid.UUID) ([]ledger.Category, error)
}

type service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func New(store Store, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{store: store, log: logger, now: func() time.Time { return time.Now().UTC() }}
}

var reColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func validate(c ledger.Category) error {
	if c.Name == "" {
		return errs.Field("name", "required")
	}
	if !c.Kind.Valid() {
		return errs.Field("type", "must be income, expense or both")
	}
	if !reColor.MatchString(c.Color) {
		return errs.Field("color", "must be #rrggbb")
	}
	if c.SortOrder < 0 {
		return errs.Field("sort_order", "must be >= 0")
	}
	return nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (ledger.Category, error) {
	now := s.now()
	c := ledger.Category{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        strings.TrimSpace(in.Name),
		Kind:        in.Kind,
		Color:       in.Color,
		Description: in.Description,
		ParentID:    in.ParentID,
		Active:      in.Active == nil || *in.Active,
		SortOrder:   in.SortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if c.Color == "" {
		c.Color = ledger.DefaultCategoryColor
	}
	if err := validate(c); err != nil {
		return ledger.Category{}, err
	}
	base := slug.Slugify(c.Name)
	if !slug.IsSlug(base) {
		return ledger.Category{}, errs.Field("name", "must contain at least two letters or digits")
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := checkParent(ctx, tx, c); err != nil {
			return err
		}
		taken, err := takenSlugs(ctx, tx, c)
		if err != nil {
			return err
		}
		c.Slug = slug.Unique(base, func(s string) bool { return taken[s] })
		return tx.InsertCategory(ctx, c)
	})
	if err != nil {
		return ledger.Category{}, err
	}
	s.log.Debug("category created", "user_id", userID, "slug", c.Slug, "kind", c.Kind)
	return c, nil
}

// takenSlugs collects the slugs c would collide with, leaving out c itself.
func takenSlugs(ctx context.Context, tx storage.Tx, c ledger.Category) (map[string]bool, error) {
	kind := c.Kind
	if kind == ledger.CategoryBoth {
		kind = ""
	}
	existing, err := tx.Categories(ctx, c.UserID, kind)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(existing))
	for _, e := range existing {
		if e.ID != c.ID {
			taken[e.Slug] = true
		}
	}
	return taken, nil
}

// checkParent verifies that c's parent is another category of the same user
// and that linking it does not close a loop.
func checkParent(ctx context.Context, tx storage.Tx, c ledger.Category) error {
	if c.ParentID == nil {
		return nil
	}
	if *c.ParentID == c.ID {
		return errs.Field("parent_id", "cannot be the category itself")
	}
	owner, err := tx.OwnerOf(ctx, storage.TableCategories, *c.ParentID)
	if err != nil {
		return err
	}
	if owner != c.UserID {
		return errs.Consistency("category %s belongs to another user", *c.ParentID)
	}
	all, err := tx.Categories(ctx, c.UserID, "")
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]ledger.Category, len(all))
	for _, a := range all {
		byID[a.ID] = a
	}
	seen := map[uuid.UUID]bool{}
	for p := c.ParentID; p != nil && !seen[*p]; p = byID[*p].ParentID {
		if *p == c.ID {
			return errs.Field("parent_id", "would make the category its own ancestor")
		}
		seen[*p] = true
	}
	return nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (ledger.Category, error) {
	return s.store.Category(ctx, userID, id)
}

func (s *service) List(ctx context.Context, userID uuid.UUID, kind ledger.CategoryKind) ([]ledger.Category, error) {
	return s.store.Categories(ctx, userID, kind)
}

func (s *service) Parents(ctx context.Context, userID uuid.UUID, kind ledger.CategoryKind) ([]ledger.Category, error) {
	all, err := s.store.Categories(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Category, 0, len(all))
	for _, c := range all {
		if c.Active && c.ParentID == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, in UpdateInput) (ledger.Category, error) {
	var c ledger.Category
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		if c, err = tx.Category(ctx, userID, id); err != nil {
			return err
		}
		oldKind := c.Kind
		if in.Name != nil {
			c.Name = strings.TrimSpace(*in.Name)
		}
		if in.Kind != nil {
			c.Kind = *in.Kind
		}
		if in.Color != nil {
			c.Color = *in.Color
		}
		if in.Description != nil {
			c.Description = *in.Description
		}
		if in.ClearParent {
			c.ParentID = nil
		} else if in.ParentID != nil {
			c.ParentID = in.ParentID
		}
		if in.Active != nil {
			c.Active = *in.Active
		}
		if in.SortOrder != nil {
			c.SortOrder = *in.SortOrder
		}
		if c.Color == "" {
			c.Color = ledger.DefaultCategoryColor
		}
		if err := validate(c); err != nil {
			return err
		}
		if err := checkParent(ctx, tx, c); err != nil {
			return err
		}
		if c.Kind != oldKind {
			if err := checkKindChange(ctx, tx, c); err != nil {
				return err
			}
			taken, err := takenSlugs(ctx, tx, c)
			if err != nil {
				return err
			}
			c.Slug = slug.Unique(c.Slug, func(s string) bool { return taken[s] })
		}
		c.UpdatedAt = s.now()
		return tx.UpdateCategory(ctx, c)
	})
	if err != nil {
		return ledger.Category{}, err
	}
	s.log.Debug("category updated", "user_id", userID, "category_id", id)
	return c, nil
}

// checkKindChange refuses a kind that no longer accepts the records already
// filed under c.
func checkKindChange(ctx context.Context, tx storage.Tx, c ledger.Category) error {
	if !c.Kind.Accepts(ledger.CategoryExpense) {
		exp, err := tx.Expenses(ctx, c.UserID, storage.ExpenseFilter{CategoryID: &c.ID})
		if err != nil {
			return err
		}
		bud, err := tx.Budgets(ctx, c.UserID, storage.BudgetFilter{CategoryID: &c.ID})
		if err != nil {
			return err
		}
		if len(exp) > 0 || len(bud) > 0 {
			return errs.Conflict("category %s is used by expenses or budgets", c.ID)
		}
	}
	if !c.Kind.Accepts(ledger.CategoryIncome) {
		inc, err := tx.Incomes(ctx, c.UserID, storage.IncomeFilter{CategoryID: &c.ID})
		if err != nil {
			return err
		}
		if len(inc) > 0 {
			return errs.Conflict("category %s is used by incomes", c.ID)
		}
	}
	return nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.Category(ctx, userID, id); err != nil {
			return err
		}
		exp, err := tx.Expenses(ctx, userID, storage.ExpenseFilter{CategoryID: &id})
		if err != nil {
			return err
		}
		inc, err := tx.Incomes(ctx, userID, storage.IncomeFilter{CategoryID: &id})
		if err != nil {
			return err
		}
		if len(exp) > 0 || len(inc) > 0 {
			return errs.Conflict("category %s has expenses or incomes", id)
		}
		bud, err := tx.Budgets(ctx, userID, storage.BudgetFilter{CategoryID: &id})
		if err != nil {
			return err
		}
		if len(bud) > 0 {
			return errs.Conflict("category %s has budgets", id)
		}
		all, err := tx.Categories(ctx, userID, "")
		if err != nil {
			return err
		}
		for _, c := range all {
			if c.ParentID != nil && *c.ParentID == id {
				return errs.Conflict("category %s has subcategories", id)
			}
		}
		return tx.DeleteCategory(ctx, userID, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("category deleted", "user_id", userID, "category_id", id)
	return nil
}

func (s *service) SeedDefaults(ctx context.Context, userID uuid.UUID) ([]ledger.Category, error) {
	var added []ledger.Category
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		added = nil
		for _, kind := range []ledger.CategoryKind{ledger.CategoryExpense, ledger.CategoryIncome} {
			existing, err := tx.Categories(ctx, userID, kind)
			if err != nil {
				return err
			}
			have := make(map[string]bool, len(existing))
			for _, e := range existing {
				have[e.Slug] = true
			}
			for i, def := range dictionary.Categories(kind) {
				if have[def.Slug] {
					continue
				}
				now := s.now()
				c := ledger.Category{
					ID: uuid.New(), UserID: userID, Name: def.Label, Slug: def.Slug, Kind: kind,
					Color: def.Color, Active: true, SortOrder: i, CreatedAt: now, UpdatedAt: now,
				}
				if err := tx.InsertCategory(ctx, c); err != nil {
					return err
				}
				added = append(added, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(added) > 0 {
		s.log.Info("default categories seeded", "user_id", userID, "count", len(added))
	}
	return added, nil
}
