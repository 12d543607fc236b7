// Package sqlite provides a case store backed by a SQLite database through
// gorm. Records are keyed by (case_id, device_id).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	driver "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
)

// Option is a function that configures a Store.
type Option func(*config) error

type config struct {
	logger *zerolog.Logger
	slow   time.Duration
}

// WithLogger sets the logger gorm reports through.
func WithLogger(l *zerolog.Logger) Option {
	return func(cfg *config) error {
		if l != nil {
			cfg.logger = l
		}
		return nil
	}
}

// WithSlowThreshold logs statements slower than d as warnings. Zero
// disables slow query logging.
func WithSlowThreshold(d time.Duration) Option {
	return func(cfg *config) error {
		if d < 0 {
			return errors.NewValidationError("slow_threshold", d, "cannot be negative")
		}
		cfg.slow = d
		return nil
	}
}

// Store is a SQLite-backed case store.
type Store struct {
	db *gorm.DB
}

// Open opens or creates the database at path and migrates the schema.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required for sqlite store")
	}
	cfg := &config{logger: logging.Default(), slow: 200 * time.Millisecond}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying sqlite option: %w", err)
		}
	}

	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
			return nil, errors.WrapIO("create", filepath.Dir(path), err)
		}
	}

	db, err := gorm.Open(driver.Open(path), &gorm.Config{
		Logger: newGormLogger(cfg.logger, cfg.slow),
	})
	if err != nil {
		return nil, errors.WrapResource("open", "store", path, err)
	}
	if err := db.AutoMigrate(&caseRow{}); err != nil {
		return nil, errors.WrapResource("migrate", "store", path, err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// List returns every stored case in insertion order.
func (s *Store) List(ctx context.Context) ([]cases.Case, error) {
	var rows []caseRow
	if err := s.db.WithContext(ctx).Order("seq asc").Find(&rows).Error; err != nil {
		return nil, errors.WrapResource("list", "cases", "", err)
	}
	return toCases(rows), nil
}

// ListForUser returns the cases whose author is author.
func (s *Store) ListForUser(ctx context.Context, author int64) ([]cases.Case, error) {
	var rows []caseRow
	err := s.db.WithContext(ctx).
		Where("author = ?", author).
		Order("seq asc").
		Find(&rows).Error
	if err != nil {
		return nil, errors.WrapResource("list", "cases", fmt.Sprintf("author %d", author), err)
	}
	return toCases(rows), nil
}

// Get returns the case stored under key.
func (s *Store) Get(ctx context.Context, key cases.Key) (cases.Case, bool, error) {
	var row caseRow
	err := s.db.WithContext(ctx).
		Where("case_id = ? AND device_id = ?", key.CaseID, key.DeviceID).
		Take(&row).Error
	switch {
	case err == nil:
		return row.toCase(), true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return cases.Case{}, false, nil
	default:
		return cases.Case{}, false, errors.WrapResource("fetch", "case", key.String(), err)
	}
}

// Count returns the number of stored cases.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&caseRow{}).Count(&n).Error; err != nil {
		return 0, errors.WrapResource("count", "cases", "", err)
	}
	return n, nil
}

// Upsert inserts c or replaces the row with the same key, keeping its
// position.
func (s *Store) Upsert(ctx context.Context, c cases.Case) error {
	if err := cases.Validate(c); err != nil {
		return err
	}
	row := toRow(c)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing caseRow
		err := tx.Select("seq").
			Where("case_id = ? AND device_id = ?", row.CaseID, row.DeviceID).
			Take(&existing).Error
		switch {
		case err == nil:
			row.Seq = existing.Seq
			if err := deleteKey(tx, row.CaseID, row.DeviceID); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			var last sql.NullInt64
			if err := tx.Model(&caseRow{}).Select("MAX(seq)").Scan(&last).Error; err != nil {
				return err
			}
			row.Seq = last.Int64 + 1
		default:
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return errors.WrapResource("update", "case", c.Key().String(), err)
	}
	return nil
}

// Remove deletes the row with c's key.
func (s *Store) Remove(ctx context.Context, c cases.Case) error {
	if err := deleteKey(s.db.WithContext(ctx), c.CaseID, c.DeviceID); err != nil {
		return errors.WrapResource("delete", "case", c.Key().String(), err)
	}
	return nil
}

func deleteKey(db *gorm.DB, caseID, deviceID int64) error {
	return db.Where("case_id = ? AND device_id = ?", caseID, deviceID).Delete(&caseRow{}).Error
}
