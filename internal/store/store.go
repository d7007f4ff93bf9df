// Package store persists card records and learned category patterns in a
// local SQLite database. Money columns are stored as decimal strings so no
// precision is lost crossing the database boundary, and NULL keeps the
// unknown-amount state distinct from zero.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"statement-ingestion-service/internal/models"
	apperrors "statement-ingestion-service/pkg/errors"
	"statement-ingestion-service/pkg/logger"

	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS cards (
	id                  TEXT PRIMARY KEY,
	name                TEXT NOT NULL,
	bank                TEXT NOT NULL,
	card_number         TEXT NOT NULL DEFAULT '',
	holder_name         TEXT NOT NULL DEFAULT '',
	credit_limit        TEXT,
	current_balance     TEXT,
	due_date            TEXT NOT NULL DEFAULT '',
	last_statement_date TEXT NOT NULL DEFAULT '',
	created_at          TEXT NOT NULL,
	updated_at          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS category_patterns (
	pattern     TEXT PRIMARY KEY,
	category    TEXT NOT NULL,
	usage_count INTEGER NOT NULL DEFAULT 1,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
`

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

// Open opens (creating if necessary) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "open database", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "apply schema", err)
	}

	return &Store{
		db:     db,
		logger: logger.GetGlobalLogger().WithComponent("store"),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Cards returns all card records ordered by name.
func (s *Store) Cards(ctx context.Context) ([]*models.CardRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, bank, card_number, holder_name,
		       credit_limit, current_balance, due_date, last_statement_date
		FROM cards ORDER BY name`)
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "list cards", err)
	}
	defer rows.Close()

	var cards []*models.CardRecord
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "scan card row", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "iterate cards", err)
	}

	return cards, nil
}

// GetCard fetches one card by ID.
func (s *Store) GetCard(ctx context.Context, id string) (*models.CardRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, bank, card_number, holder_name,
		       credit_limit, current_balance, due_date, last_statement_date
		FROM cards WHERE id = ?`, id)

	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.StorageError(apperrors.CodeRecordNotFound, "get card "+id, err)
	}
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "get card "+id, err)
	}
	return card, nil
}

// SaveCard inserts or updates a card record.
func (s *Store) SaveCard(ctx context.Context, card *models.CardRecord) error {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (id, name, bank, card_number, holder_name,
		                   credit_limit, current_balance, due_date,
		                   last_statement_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			bank = excluded.bank,
			card_number = excluded.card_number,
			holder_name = excluded.holder_name,
			credit_limit = excluded.credit_limit,
			current_balance = excluded.current_balance,
			due_date = excluded.due_date,
			last_statement_date = excluded.last_statement_date,
			updated_at = excluded.updated_at`,
		card.ID, card.Name, card.Bank, card.CardNumber, card.HolderName,
		nullDecimalParam(card.Limit), nullDecimalParam(card.CurrentBalance),
		card.DueDate, card.LastStatementDate, now, now)
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageFailure, "save card "+card.ID, err)
	}

	s.logger.WithFields(logger.Fields{"card": card.ID, "bank": card.Bank}).Debug("card saved")
	return nil
}

// UserPatterns loads the learned pattern table as pattern -> category.
func (s *Store) UserPatterns(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pattern, category FROM category_patterns`)
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "list patterns", err)
	}
	defer rows.Close()

	patterns := make(map[string]string)
	for rows.Next() {
		var pattern, category string
		if err := rows.Scan(&pattern, &category); err != nil {
			return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "scan pattern row", err)
		}
		patterns[pattern] = category
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageFailure, "iterate patterns", err)
	}

	return patterns, nil
}

// LearnPattern records or reinforces a pattern, bumping its usage count on
// repeat corrections.
func (s *Store) LearnPattern(ctx context.Context, pattern, category string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO category_patterns (pattern, category, usage_count, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(pattern) DO UPDATE SET
			category = excluded.category,
			usage_count = usage_count + 1,
			updated_at = excluded.updated_at`,
		pattern, category, now, now)
	if err != nil {
		return apperrors.StorageError(apperrors.CodeStorageFailure, "learn pattern "+pattern, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCard(row rowScanner) (*models.CardRecord, error) {
	var card models.CardRecord
	var limit, balance sql.NullString

	err := row.Scan(&card.ID, &card.Name, &card.Bank, &card.CardNumber,
		&card.HolderName, &limit, &balance, &card.DueDate, &card.LastStatementDate)
	if err != nil {
		return nil, err
	}

	card.Limit = nullDecimalFromColumn(limit)
	card.CurrentBalance = nullDecimalFromColumn(balance)
	return &card, nil
}

func nullDecimalParam(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

func nullDecimalFromColumn(col sql.NullString) decimal.NullDecimal {
	if !col.Valid {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(col.String)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return models.NullDecimalFrom(d)
}
