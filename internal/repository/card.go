// Package repository provides persistence implementations for business cards
// using a SQL database (PostgreSQL or SQLite).
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/cardkeeper/internal/models"
)

const cardColumns = `fname, lname, pronouns, title, biz, addr, description, public_key,
		tracker, font_link, font_css, hosted_url, footer_credit, phone, email,
		logo, photo, cover, asset_key`

// SQLCardRepository implements card storage against a SQL database.
// Both supported drivers accept $n placeholders and INSERT ... RETURNING.
type SQLCardRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewSQLCardRepository creates a new SQLCardRepository using the provided *sql.DB.
func NewSQLCardRepository(db *sql.DB) *SQLCardRepository {
	return &SQLCardRepository{DB: db}
}

// Create inserts card and returns the identifier assigned by the database.
// The insert runs in its own transaction so a failed commit leaves no row behind.
//
//	ctx:  context for cancellation and deadlines
//	card: the record to insert; card.ID is ignored
func (s *SQLCardRepository) Create(ctx context.Context, card *models.Card) (int64, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO business_card (`+cardColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id
	`,
		card.FirstName, card.LastName, card.Pronouns, card.Title, card.Business,
		card.Address, card.Description, card.PublicKey, card.Tracker, card.FontLink,
		card.FontCSS, card.HostedURL, card.FooterCredit, card.Phone, card.Email,
		card.Logo, card.Photo, card.Cover, card.AssetKey,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert card: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// GetByID retrieves a single card by ID.
// It returns an error wrapping models.ErrCardNotFound when no card matches.
func (s *SQLCardRepository) GetByID(ctx context.Context, id int64) (*models.Card, error) {
	card := models.Card{ID: id}
	err := s.DB.QueryRowContext(ctx, `
		SELECT `+cardColumns+`
		FROM business_card WHERE id = $1
	`, id).Scan(
		&card.FirstName, &card.LastName, &card.Pronouns, &card.Title, &card.Business,
		&card.Address, &card.Description, &card.PublicKey, &card.Tracker, &card.FontLink,
		&card.FontCSS, &card.HostedURL, &card.FooterCredit, &card.Phone, &card.Email,
		&card.Logo, &card.Photo, &card.Cover, &card.AssetKey,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("card %d: %w", id, models.ErrCardNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return &card, nil
}
