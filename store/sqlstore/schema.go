package sqlstore

import (
	"context"
	"fmt"
	"strings"
)

// Migrate creates every table the application reads, for both the split and
// the unified layout. Safe to call on every start.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: creating schema: %w", err)
		}
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS mcu_movies_specials (
    id INTEGER PRIMARY KEY,
    title TEXT NOT NULL,
    is_special BOOLEAN NOT NULL DEFAULT FALSE,
    year INTEGER NOT NULL,
    phase INTEGER NOT NULL,
    phase_order INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS mcu_shows (
    id INTEGER PRIMARY KEY,
    title TEXT NOT NULL,
    show_key TEXT NOT NULL,
    season_number INTEGER NOT NULL DEFAULT 1 CHECK (season_number > 0),
    year INTEGER NOT NULL,
    phase INTEGER NOT NULL,
    phase_order INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mcu_shows_show_key ON mcu_shows(show_key);

CREATE TABLE IF NOT EXISTS mcu_movie_special_rankings (
    item_id INTEGER NOT NULL UNIQUE REFERENCES mcu_movies_specials(id) ON DELETE CASCADE,
    score TEXT NOT NULL,
    updated_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS mcu_show_rankings (
    item_id INTEGER NOT NULL UNIQUE REFERENCES mcu_shows(id) ON DELETE CASCADE,
    score TEXT NOT NULL,
    updated_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS mcu_items (
    id INTEGER PRIMARY KEY,
    title TEXT NOT NULL,
    item_type TEXT NOT NULL CHECK (item_type IN ('film', 'special', 'show')),
    show_key TEXT,
    season_number INTEGER,
    year INTEGER NOT NULL,
    phase INTEGER NOT NULL,
    phase_order INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mcu_items_show_key ON mcu_items(show_key);

CREATE TABLE IF NOT EXISTS mcu_item_rankings (
    item_id INTEGER NOT NULL UNIQUE REFERENCES mcu_items(id) ON DELETE CASCADE,
    score TEXT NOT NULL,
    updated_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS score_colors (
    score TEXT PRIMARY KEY,
    hex_color_light TEXT NOT NULL,
    hex_color_dark TEXT NOT NULL,
    color_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS admin_accounts (
    email TEXT PRIMARY KEY,
    id TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
)
`
