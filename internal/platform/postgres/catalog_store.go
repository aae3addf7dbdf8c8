package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mkessler/cardvault-api/internal/platform/logger"
	"github.com/mkessler/cardvault-api/internal/store"
)

// PostgresCatalogStore implements the store.CatalogStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCatalogStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresCatalogStore creates a new PostgreSQL implementation of the
// CatalogStore interface. It accepts a database connection that should be
// initialized and managed by the caller. If logger is nil, a default
// logger will be used.
func NewPostgresCatalogStore(db *sql.DB, log *slog.Logger) *PostgresCatalogStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &PostgresCatalogStore{
		db:     db,
		logger: log.With(slog.String("component", "catalog_store")),
	}
}

// Ensure PostgresCatalogStore implements store.CatalogStore interface
var _ store.CatalogStore = (*PostgresCatalogStore)(nil)

// CommitCard implements store.CatalogStore.CommitCard.
// The upsert keys on (brand, number, name, year): an existing row has its
// quantity incremented, otherwise a new row is inserted. One physical-copy
// row is always inserted. Both writes run in a single transaction so a
// commit is all-or-nothing.
func (s *PostgresCatalogStore) CommitCard(ctx context.Context, commit store.CardCommit) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cardID, err := s.upsertCard(ctx, tx, commit)
		if err != nil {
			return err
		}
		return s.insertCopy(ctx, tx, cardID, commit)
	})
	if err != nil {
		log.Error("card commit failed",
			slog.String("name", commit.Card.Name),
			slog.String("brand", commit.Card.Brand),
			slog.String("error", err.Error()))
		return err
	}

	log.Info("card committed to catalog",
		slog.String("name", commit.Card.Name),
		slog.String("brand", commit.Card.Brand),
		slog.String("number", commit.Card.Number),
		slog.String("year", commit.Card.Year))
	return nil
}

// upsertCard inserts the card or, when its natural key (brand, number,
// name, year) already exists, increments that row's quantity. The upsert
// is a single atomic statement: two pending images committing the same
// new card concurrently must both land, one as the insert and one as the
// increment. Returns the card's catalog ID.
func (s *PostgresCatalogStore) upsertCard(ctx context.Context, q store.DBTX, commit store.CardCommit) (int64, error) {
	card := commit.Card

	query := `
		INSERT INTO cards (
			name, sport, brand, number, year, team, card_set, condition,
			features, is_player_card, value_estimate, quantity, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1, $12, $12)
		ON CONFLICT (brand, number, name, year)
		DO UPDATE SET quantity = cards.quantity + 1, updated_at = EXCLUDED.updated_at
		RETURNING id
	`
	var cardID int64
	err := q.QueryRowContext(ctx, query,
		card.Name, card.Sport, card.Brand, card.Number, card.Year,
		card.Team, card.CardSet, card.Condition,
		joinFeatures(card.Features), card.IsPlayerCard, card.ValueEstimate,
		commit.VerifiedAt,
	).Scan(&cardID)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert card: %w", MapError(err))
	}
	return cardID, nil
}

// insertCopy records one physical copy of the committed card.
func (s *PostgresCatalogStore) insertCopy(ctx context.Context, q store.DBTX, cardID int64, commit store.CardCommit) error {
	copyQuery := `
		INSERT INTO card_copies (card_id, source_file, grid_position, verified_at)
		VALUES ($1, $2, $3, $4)
	`
	var position sql.NullInt32
	if commit.GridPosition != nil {
		position = sql.NullInt32{Int32: int32(*commit.GridPosition), Valid: true}
	}
	if _, err := q.ExecContext(ctx, copyQuery,
		cardID, commit.SourceFile, position, commit.VerifiedAt,
	); err != nil {
		return fmt.Errorf("failed to insert physical copy: %w", MapError(err))
	}
	return nil
}

// vocabularyFields maps the exposed field names to their catalog columns.
// Only columns listed here are queried; the map is the allow-list that
// keeps field names out of SQL string building.
var vocabularyFields = map[string]string{
	"sport":     "sport",
	"brand":     "brand",
	"team":      "team",
	"set":       "card_set",
	"condition": "condition",
}

// FieldValues implements store.CatalogStore.FieldValues.
func (s *PostgresCatalogStore) FieldValues(ctx context.Context) (map[string][]string, error) {
	out := make(map[string][]string, len(vocabularyFields))
	for field, column := range vocabularyFields {
		query := fmt.Sprintf(
			`SELECT DISTINCT %s FROM cards WHERE %s <> '' ORDER BY %s`,
			column, column, column,
		)
		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s vocabulary: %w", field, MapError(err))
		}

		values := []string{}
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan %s vocabulary: %w", field, err)
			}
			values = append(values, v)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to read %s vocabulary: %w", field, err)
		}
		_ = rows.Close()
		out[field] = values
	}
	return out, nil
}

// joinFeatures flattens the feature set into a PostgreSQL text[] literal.
// Quotes and backslashes inside an element are backslash-escaped per the
// array literal syntax.
func joinFeatures(features []string) any {
	if len(features) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range features {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		for _, r := range f {
			if r == '"' || r == '\\' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}
