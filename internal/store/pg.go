package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/greenlink-eco/credit-engine/internal/domain"
	"github.com/greenlink-eco/credit-engine/internal/store/schema"
)

// PostgresStore persists engine state in PostgreSQL through gorm. Each
// Apply runs in one transaction.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore opens the database, configures the pool and migrates the
// schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := configureConnectionPool(db); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&schema.Submission{},
		&schema.Token{},
		&schema.Listing{},
		&schema.FingerprintIndex{},
		&schema.EngineConfig{},
		&schema.EngineEvent{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreWithDB wraps an existing gorm handle, used by tests that
// manage their own container lifecycle.
func NewPostgresStoreWithDB(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(
		&schema.Submission{},
		&schema.Token{},
		&schema.Listing{},
		&schema.FingerprintIndex{},
		&schema.EngineConfig{},
		&schema.EngineEvent{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func configureConnectionPool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return nil
}

// Apply persists the changeset in a single transaction. Submissions, tokens
// and listings upsert; fingerprint and event rows are insert-only.
func (s *PostgresStore) Apply(ctx context.Context, cs *Changeset) error {
	if cs.Empty() {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, sub := range cs.Submissions {
			row := schema.SubmissionFromDomain(sub)
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("failed to upsert submission %d: %w", sub.ID, err)
			}
		}

		for _, token := range cs.Tokens {
			row := schema.TokenFromDomain(token)
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("failed to upsert token %d: %w", token.ID, err)
			}
		}

		for _, listing := range cs.Listings {
			row := schema.ListingFromDomain(listing)
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("failed to upsert listing %d: %w", listing.ID, err)
			}
		}

		for fp, id := range cs.Fingerprints {
			row := schema.FingerprintIndex{Fingerprint: fp, SubmissionID: id}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to insert fingerprint: %w", err)
			}
		}

		for k, v := range cs.Config {
			row := schema.EngineConfig{Key: k, Value: v}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("failed to upsert config %s: %w", k, err)
			}
		}

		for _, e := range cs.Events {
			row, err := schema.EventFromDomain(e)
			if err != nil {
				return fmt.Errorf("failed to encode event %s: %w", e.ID, err)
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to insert event %s: %w", e.ID, err)
			}
		}

		return nil
	})
}

// LoadAll reads the full durable state for rehydration.
func (s *PostgresStore) LoadAll(ctx context.Context) (*Snapshot, error) {
	db := s.db.WithContext(ctx)

	var subRows []schema.Submission
	if err := db.Order("id asc").Find(&subRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}

	var tokenRows []schema.Token
	if err := db.Order("id asc").Find(&tokenRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}

	var listingRows []schema.Listing
	if err := db.Order("id asc").Find(&listingRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}

	var fpRows []schema.FingerprintIndex
	if err := db.Find(&fpRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load fingerprint index: %w", err)
	}

	var cfgRows []schema.EngineConfig
	if err := db.Find(&cfgRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	snap := &Snapshot{
		Submissions:  make([]domain.Submission, 0, len(subRows)),
		Tokens:       make([]domain.Token, 0, len(tokenRows)),
		Listings:     make([]domain.Listing, 0, len(listingRows)),
		Fingerprints: make(map[string]uint64, len(fpRows)),
		Config:       make(map[string]string, len(cfgRows)),
	}
	for i := range subRows {
		snap.Submissions = append(snap.Submissions, subRows[i].ToDomain())
	}
	for i := range tokenRows {
		snap.Tokens = append(snap.Tokens, tokenRows[i].ToDomain())
	}
	for i := range listingRows {
		snap.Listings = append(snap.Listings, listingRows[i].ToDomain())
	}
	for _, row := range fpRows {
		snap.Fingerprints[row.Fingerprint] = row.SubmissionID
	}
	for _, row := range cfgRows {
		snap.Config[row.Key] = row.Value
	}
	return snap, nil
}

// ListEvents reads the journal in commit order, which the ULID primary key
// makes equal to id order.
func (s *PostgresStore) ListEvents(ctx context.Context, filter EventFilter) ([]domain.Event, error) {
	q := s.db.WithContext(ctx).Model(&schema.EngineEvent{}).Order("id asc")
	if filter.Type != "" {
		q = q.Where("type = ?", string(filter.Type))
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []schema.EngineEvent
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	out := make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		// RawMessage keeps the stored payload a JSON object on the wire;
		// a plain byte slice would re-marshal as base64.
		out = append(out, domain.Event{
			ID:        row.ID,
			Type:      domain.EventType(row.Type),
			Timestamp: row.Timestamp,
			Data:      json.RawMessage(row.Payload),
		})
	}
	return out, nil
}
