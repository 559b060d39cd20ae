// Package service provides the card business logic, delegating persistence,
// asset storage and export to the interfaces it is constructed with.
package service

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/cardkeeper/internal/events"
	"github.com/atinyakov/cardkeeper/internal/export"
	"github.com/atinyakov/cardkeeper/internal/models"
	"github.com/atinyakov/cardkeeper/internal/upload"
)

// CardRepository defines the persistence operations needed by the CardService.
type CardRepository interface {
	// Create stores card and returns its newly assigned ID.
	Create(ctx context.Context, card *models.Card) (int64, error)
	// GetByID returns the card or an error wrapping models.ErrCardNotFound.
	GetByID(ctx context.Context, id int64) (*models.Card, error)
}

// AssetStore saves uploaded files and returns their stored filename,
// or "" when no file was supplied.
type AssetStore interface {
	Store(fh *multipart.FileHeader, slot upload.Slot, assetKey string) (string, error)
	// Discard removes files stored for a card that was never persisted.
	Discard(names []string, assetKey string) error
}

// Packager builds the downloadable zip package of a card.
type Packager interface {
	Package(card *models.Card) ([]byte, error)
}

// Uploads holds the optional files submitted with the creation form.
type Uploads struct {
	Logo  *multipart.FileHeader
	Photo *multipart.FileHeader
	Cover *multipart.FileHeader
}

// CardService implements card creation, lookup and export.
type CardService struct {
	repo      CardRepository
	assets    AssetStore
	packager  Packager
	publisher events.Publisher
	logger    *zap.Logger
	partition bool
}

// Option configures optional CardService behaviour.
type Option func(*CardService)

// WithPublisher sets the publisher notified after each successful create.
func WithPublisher(p events.Publisher) Option {
	return func(s *CardService) { s.publisher = p }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *CardService) { s.logger = l }
}

// WithPartitionedAssets stores each card's uploads in its own subdirectory.
func WithPartitionedAssets(enabled bool) Option {
	return func(s *CardService) { s.partition = enabled }
}

// NewCardService constructs a CardService. Events are discarded and logs are
// dropped unless configured through opts.
func NewCardService(repo CardRepository, assets AssetStore, packager Packager, opts ...Option) *CardService {
	s := &CardService{
		repo:      repo,
		assets:    assets,
		packager:  packager,
		publisher: events.NopPublisher{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates form, stores the uploaded files, persists the card and
// returns its ID. A *models.ValidationError is returned before anything is
// written when required fields are missing.
func (s *CardService) Create(ctx context.Context, form models.CardForm, files Uploads) (int64, error) {
	if err := form.Validate(); err != nil {
		return 0, err
	}

	var assetKey string
	if s.partition {
		assetKey = uuid.NewString()
	}

	var stored models.Files
	var err error
	if stored.Logo, err = s.assets.Store(files.Logo, upload.SlotLogo, assetKey); err != nil {
		s.discard(stored, assetKey)
		return 0, fmt.Errorf("store logo: %w", err)
	}
	if stored.Cover, err = s.assets.Store(files.Cover, upload.SlotCover, assetKey); err != nil {
		s.discard(stored, assetKey)
		return 0, fmt.Errorf("store cover: %w", err)
	}
	if stored.Photo, err = s.assets.Store(files.Photo, upload.SlotPhoto, assetKey); err != nil {
		s.discard(stored, assetKey)
		return 0, fmt.Errorf("store photo: %w", err)
	}

	card := form.Card(stored, assetKey)
	id, err := s.repo.Create(ctx, &card)
	if err != nil {
		s.discard(stored, assetKey)
		return 0, err
	}
	card.ID = id

	s.logger.Info("card created", zap.Int64("id", id), zap.String("asset_key", assetKey))

	if err := s.publisher.CardCreated(ctx, &card); err != nil {
		s.logger.Warn("publish card created", zap.Int64("id", id), zap.Error(err))
	}
	return id, nil
}

// discard removes the uploads of a card that could not be created, so they
// never show up in packages of other cards.
func (s *CardService) discard(stored models.Files, assetKey string) {
	names := []string{stored.Logo, stored.Cover, stored.Photo}
	if err := s.assets.Discard(names, assetKey); err != nil {
		s.logger.Warn("discard uploads", zap.String("asset_key", assetKey), zap.Error(err))
	}
}

// Get returns the card with the given ID.
func (s *CardService) Get(ctx context.Context, id int64) (*models.Card, error) {
	return s.repo.GetByID(ctx, id)
}

// VCard returns the vCard contact file of the card.
func (s *CardService) VCard(ctx context.Context, id int64) ([]byte, error) {
	card, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := export.VCard(card)
	if err != nil {
		return nil, fmt.Errorf("vcard card %d: %w", id, err)
	}
	return data, nil
}

// Package returns the zip package of the card.
func (s *CardService) Package(ctx context.Context, id int64) ([]byte, error) {
	card, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := s.packager.Package(card)
	if err != nil {
		return nil, fmt.Errorf("package card %d: %w", id, err)
	}
	return data, nil
}
