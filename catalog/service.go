package catalog

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/ddevcap/mcu-rankings/score"
)

// Service builds views and applies admin edits.
type Service struct {
	repo *Repository
}

// NewService wraps repo.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Repository returns the underlying repository.
func (s *Service) Repository() *Repository { return s.repo }

// Catalog builds the grouped catalog. The palette and the items are loaded
// concurrently; scores are loaded once the items are in.
func (s *Service) Catalog(ctx context.Context, opts ViewOptions) (View, error) {
	var (
		palette score.Palette
		items   []Item
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		palette, err = s.repo.ScoreColors(gctx)
		return err
	})
	g.Go(func() (err error) {
		items, err = s.repo.ListItems(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return View{}, err
	}

	scores, err := s.repo.Scores(ctx)
	if err != nil {
		return View{}, err
	}
	return BuildView(items, scores, palette, opts), nil
}

// SetScore stores token for the item and returns its refreshed entry.
func (s *Service) SetScore(ctx context.Context, id int64, hint Kind, token string, theme score.Theme) (Entry, error) {
	if !score.Valid(token) {
		return Entry{}, &ValidationError{Field: "score", Message: "Unknown score " + token}
	}
	it, err := s.repo.FindItem(ctx, id, hint)
	if err != nil {
		return Entry{}, err
	}
	if err := s.repo.SaveScore(ctx, it, token); err != nil {
		return Entry{}, err
	}
	return s.entry(ctx, it, token, theme)
}

// ChangeBase replaces the grade of the item's current score, keeping the
// modifier when the new grade supports one.
func (s *Service) ChangeBase(ctx context.Context, id int64, hint Kind, base string, theme score.Theme) (Entry, error) {
	if !score.Valid(base) {
		return Entry{}, &ValidationError{Field: "score", Message: "Unknown score " + base}
	}
	it, err := s.repo.FindItem(ctx, id, hint)
	if err != nil {
		return Entry{}, err
	}
	cur, err := s.repo.ItemScore(ctx, it)
	if err != nil {
		return Entry{}, err
	}
	next := score.WithBase(cur, base)
	if err := s.repo.SaveScore(ctx, it, next); err != nil {
		return Entry{}, err
	}
	return s.entry(ctx, it, next, theme)
}

// ToggleModifier advances the modifier of the item's score through
// "" -> "+" -> "-" -> "". Grades without modifiers are left unwritten.
func (s *Service) ToggleModifier(ctx context.Context, id int64, hint Kind, theme score.Theme) (Entry, error) {
	it, err := s.repo.FindItem(ctx, id, hint)
	if err != nil {
		return Entry{}, err
	}
	cur, err := s.repo.ItemScore(ctx, it)
	if err != nil {
		return Entry{}, err
	}
	next := score.Toggle(cur)
	if next != cur {
		if err := s.repo.SaveScore(ctx, it, next); err != nil {
			return Entry{}, err
		}
	}
	return s.entry(ctx, it, next, theme)
}

func (s *Service) entry(ctx context.Context, it Item, token string, theme score.Theme) (Entry, error) {
	var (
		palette  score.Palette
		siblings []Item
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		palette, err = s.repo.ScoreColors(gctx)
		return err
	})
	g.Go(func() (err error) {
		siblings, err = s.repo.Siblings(gctx, it)
		return err
	})
	if err := g.Wait(); err != nil {
		return Entry{}, err
	}
	return NewEntry(it, token, palette, theme, len(siblings) > 1), nil
}

// Detail loads the title page. The item is probed first; its score, sibling
// seasons and the palette are then loaded concurrently.
func (s *Service) Detail(ctx context.Context, id int64, hint Kind, opts ViewOptions) (Detail, error) {
	it, err := s.repo.FindItem(ctx, id, hint)
	if err != nil {
		return Detail{}, err
	}

	var (
		token    string
		siblings []Item
		palette  score.Palette
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		token, err = s.repo.ItemScore(gctx, it)
		return err
	})
	g.Go(func() (err error) {
		siblings, err = s.repo.Siblings(gctx, it)
		return err
	})
	g.Go(func() (err error) {
		palette, err = s.repo.ScoreColors(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Detail{}, err
	}

	return Detail{
		Entry:    NewEntry(it, token, palette, opts.Theme, len(siblings) > 1),
		Seasons:  seasonsOf(it, siblings),
		Editable: opts.Editable,
		Bases:    score.BaseOptions(),
	}, nil
}

// SaveDetail validates form, writes title and year, upserts the score and
// reloads the page from the store. Nothing is written when validation fails.
func (s *Service) SaveDetail(ctx context.Context, id int64, hint Kind, form EditForm, opts ViewOptions) (Detail, error) {
	year, err := ValidateYear(form.Year)
	if err != nil {
		return Detail{}, err
	}
	title, err := ValidateTitle(form.Title)
	if err != nil {
		return Detail{}, err
	}
	mod := form.Modifier
	if !score.SupportsModifier(form.Base) {
		mod = score.NoModifier
	}
	token := score.Compose(form.Base, mod)
	if !score.Valid(token) {
		return Detail{}, &ValidationError{Field: "score", Message: "Unknown score " + token}
	}

	it, err := s.repo.FindItem(ctx, id, hint)
	if err != nil {
		return Detail{}, err
	}
	if err := s.repo.UpdateItem(ctx, it, title, year); err != nil {
		return Detail{}, err
	}
	if err := s.repo.SaveScore(ctx, it, token); err != nil {
		return Detail{}, err
	}
	return s.Detail(ctx, id, it.Kind, opts)
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
