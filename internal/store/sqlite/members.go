// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package sqlite persists member permission records in a SQLite file through gorm.
// The pure-Go modernc driver backs the connection, so no cgo toolchain is needed.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	// Register the pure-Go "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/holomush/holobot/internal/directory"
	"github.com/holomush/holobot/internal/trust"
)

// DriverName is the database/sql driver the store opens.
const DriverName = "sqlite"

// memberRow is the members table.
type memberRow struct {
	UserID      int64 `gorm:"primaryKey;autoIncrement:false"`
	CommunityID int64 `gorm:"primaryKey;autoIncrement:false;index"`
	Permission  int16 `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (memberRow) TableName() string { return "members" }

// MemberStore implements directory.MemberStore on a SQLite database.
type MemberStore struct {
	db *gorm.DB
}

var _ directory.MemberStore = (*MemberStore)(nil)

// Open opens (creating if needed) the database at path and migrates the schema.
func Open(path string, logger *slog.Logger) (*MemberStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, oops.Code(directory.CodeStoreFailed).
				With("operation", "create database directory").
				With("path", path).
				Wrap(err)
		}
	}

	db, err := gorm.Open(sqlite.Dialector{
		DriverName: DriverName,
		DSN:        dsn(path),
	}, &gorm.Config{Logger: newGormLogger(logger)})
	if err != nil {
		return nil, oops.Code(directory.CodeStoreFailed).
			With("operation", "open database").
			With("path", path).
			Wrap(err)
	}

	s := &MemberStore{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// dsn sets a busy timeout so concurrent dispatches wait on the write lock
// instead of failing.
func dsn(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
}

// Migrate creates or updates the members table.
func (s *MemberStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&memberRow{}); err != nil {
		return oops.Code(directory.CodeStoreFailed).With("operation", "migrate").Wrap(err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *MemberStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return oops.Code(directory.CodeStoreFailed).With("operation", "close").Wrap(err)
	}
	if err := sqlDB.Close(); err != nil {
		return oops.Code(directory.CodeStoreFailed).With("operation", "close").Wrap(err)
	}
	return nil
}

// Ping checks the database is reachable.
func (s *MemberStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		return oops.Code(directory.CodeStoreFailed).With("operation", "ping").Wrap(err)
	}
	return nil
}

// LoadMember returns the record for the pair, if any.
func (s *MemberStore) LoadMember(ctx context.Context, userID, communityID directory.ID) (directory.MemberRecord, bool, error) {
	uid, cid, err := keyArgs(userID, communityID)
	if err != nil {
		return directory.MemberRecord{}, false, err
	}

	var row memberRow
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND community_id = ?", uid, cid).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return directory.MemberRecord{}, false, nil
	}
	if err != nil {
		return directory.MemberRecord{}, false, oops.Code(directory.CodeStoreFailed).
			With("operation", "load member").
			With("user_id", uid).
			With("community_id", cid).
			Wrap(err)
	}

	rec, err := row.record()
	if err != nil {
		return directory.MemberRecord{}, false, err
	}
	return rec, true, nil
}

// CreateMember inserts rec. An existing pair fails with DUPLICATE_ENTITY.
func (s *MemberStore) CreateMember(ctx context.Context, rec directory.MemberRecord) error {
	uid, cid, err := keyArgs(rec.UserID, rec.CommunityID)
	if err != nil {
		return err
	}
	if !rec.Level.Valid() {
		return oops.Code(trust.CodeInvalidLevel).
			With("reason", trust.ReasonRange).
			Errorf("cannot store permission %s", rec.Level)
	}

	// The driver's constraint errors are opaque to gorm, so a conflicting insert
	// is detected by the affected row count.
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&memberRow{UserID: uid, CommunityID: cid, Permission: int16(rec.Level)})
	if result.Error != nil {
		return oops.Code(directory.CodeStoreFailed).
			With("operation", "create member").
			With("user_id", uid).
			With("community_id", cid).
			Wrap(result.Error)
	}
	if result.RowsAffected == 0 {
		return directory.ErrDuplicateEntity("member", rec.UserID)
	}
	return nil
}

// UpdateMemberField sets one field of an existing record.
func (s *MemberStore) UpdateMemberField(ctx context.Context, userID, communityID directory.ID, field directory.Field, value any) error {
	uid, cid, err := keyArgs(userID, communityID)
	if err != nil {
		return err
	}
	if field != directory.FieldPermission {
		return oops.Code(directory.CodeStoreFailed).
			With("field", string(field)).
			Errorf("unknown member field %q", field)
	}
	level, err := trust.ParseLevel(value)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Model(&memberRow{}).
		Where("user_id = ? AND community_id = ?", uid, cid).
		Update("permission", int16(level))
	if result.Error != nil {
		return oops.Code(directory.CodeStoreFailed).
			With("operation", "update member").
			With("field", string(field)).
			With("user_id", uid).
			With("community_id", cid).
			Wrap(result.Error)
	}
	if result.RowsAffected == 0 {
		return directory.ErrNotFound("member", userID)
	}
	return nil
}

// ListMembers returns every record ordered by community then user.
func (s *MemberStore) ListMembers(ctx context.Context) ([]directory.MemberRecord, error) {
	var rows []memberRow
	if err := s.db.WithContext(ctx).Order("community_id, user_id").Find(&rows).Error; err != nil {
		return nil, oops.Code(directory.CodeStoreFailed).With("operation", "list members").Wrap(err)
	}
	out := make([]directory.MemberRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r memberRow) record() (directory.MemberRecord, error) {
	level, err := trust.ParseLevel(int(r.Permission))
	if err != nil {
		return directory.MemberRecord{}, oops.Code(directory.CodeStoreFailed).
			With("user_id", r.UserID).
			With("community_id", r.CommunityID).
			Errorf("corrupt permission %d in database: %v", r.Permission, err)
	}
	return directory.MemberRecord{
		UserID:      directory.ID(r.UserID),
		CommunityID: directory.ID(r.CommunityID),
		Level:       level,
	}, nil
}

// keyArgs converts ids to INTEGER arguments. Ids above MaxInt64 cannot be stored.
func keyArgs(userID, communityID directory.ID) (int64, int64, error) {
	if userID == 0 || uint64(userID) > math.MaxInt64 {
		return 0, 0, directory.ErrInvalidID("user")
	}
	if communityID == 0 || uint64(communityID) > math.MaxInt64 {
		return 0, 0, directory.ErrInvalidID("community")
	}
	return int64(userID), int64(communityID), nil
}

// slogWriter routes gorm's log lines to slog.
type slogWriter struct {
	logger *slog.Logger
}

func (w slogWriter) Printf(format string, args ...any) {
	w.logger.Warn(fmt.Sprintf(format, args...), "component", "gorm")
}

func newGormLogger(logger *slog.Logger) gormlogger.Interface {
	if logger == nil {
		logger = slog.Default()
	}
	return gormlogger.New(slogWriter{logger: logger}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
