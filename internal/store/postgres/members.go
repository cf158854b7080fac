// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres persists member permission records in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/holobot/internal/directory"
	"github.com/holomush/holobot/internal/trust"
)

// poolIface is the subset of *pgxpool.Pool the store uses. pgxmock satisfies it.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// MemberStore implements directory.MemberStore on a members table.
type MemberStore struct {
	pool poolIface
}

var _ directory.MemberStore = (*MemberStore)(nil)

// NewMemberStore creates a store on an existing pool.
func NewMemberStore(pool poolIface) *MemberStore {
	return &MemberStore{pool: pool}
}

// Connect opens a pool and pings it, retrying with exponential backoff while the
// server is unreachable. attempts bounds the number of retries.
func Connect(ctx context.Context, databaseURL string, attempts uint64) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code(directory.CodeStoreFailed).With("operation", "parse database url").Wrap(err)
	}

	backoff := retry.WithMaxRetries(attempts, retry.NewExponential(250*time.Millisecond))
	backoff = retry.WithCappedDuration(5*time.Second, backoff)

	return retry.DoValue(ctx, backoff, func(ctx context.Context) (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, retry.RetryableError(oops.Code(directory.CodeStoreFailed).With("operation", "open pool").Wrap(err))
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, retry.RetryableError(oops.Code(directory.CodeStoreFailed).With("operation", "ping database").Wrap(err))
		}
		return pool, nil
	})
}

// Ping checks the database is reachable.
func (s *MemberStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
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

	var level int16
	err = s.pool.QueryRow(ctx,
		`SELECT permission FROM members WHERE user_id = $1 AND community_id = $2`,
		uid, cid).Scan(&level)
	if errors.Is(err, pgx.ErrNoRows) {
		return directory.MemberRecord{}, false, nil
	}
	if err != nil {
		return directory.MemberRecord{}, false, oops.Code(directory.CodeStoreFailed).
			With("operation", "load member").
			With("user_id", uid).
			With("community_id", cid).
			Wrap(err)
	}

	parsed, err := trust.ParseLevel(int(level))
	if err != nil {
		return directory.MemberRecord{}, false, oops.Code(directory.CodeStoreFailed).
			With("operation", "load member").
			With("user_id", uid).
			With("community_id", cid).
			Errorf("corrupt permission %d in database: %v", level, err)
	}
	return directory.MemberRecord{UserID: userID, CommunityID: communityID, Level: parsed}, true, nil
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

	_, err = s.pool.Exec(ctx,
		`INSERT INTO members (user_id, community_id, permission) VALUES ($1, $2, $3)`,
		uid, cid, int16(rec.Level))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return directory.ErrDuplicateEntity("member", rec.UserID)
		}
		return oops.Code(directory.CodeStoreFailed).
			With("operation", "create member").
			With("user_id", uid).
			With("community_id", cid).
			Wrap(err)
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

	tag, err := s.pool.Exec(ctx,
		`UPDATE members SET permission = $3, updated_at = now() WHERE user_id = $1 AND community_id = $2`,
		uid, cid, int16(level))
	if err != nil {
		return oops.Code(directory.CodeStoreFailed).
			With("operation", "update member").
			With("field", string(field)).
			With("user_id", uid).
			With("community_id", cid).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return directory.ErrNotFound("member", userID)
	}
	return nil
}

// ListMembers returns every record ordered by community then user.
func (s *MemberStore) ListMembers(ctx context.Context) ([]directory.MemberRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, community_id, permission FROM members ORDER BY community_id, user_id`)
	if err != nil {
		return nil, oops.Code(directory.CodeStoreFailed).With("operation", "list members").Wrap(err)
	}
	defer rows.Close()

	var out []directory.MemberRecord
	for rows.Next() {
		var uid, cid int64
		var level int16
		if err := rows.Scan(&uid, &cid, &level); err != nil {
			return nil, oops.Code(directory.CodeStoreFailed).With("operation", "scan member row").Wrap(err)
		}
		parsed, err := trust.ParseLevel(int(level))
		if err != nil {
			return nil, oops.Code(directory.CodeStoreFailed).
				With("user_id", uid).
				With("community_id", cid).
				Errorf("corrupt permission %d in database: %v", level, err)
		}
		out = append(out, directory.MemberRecord{
			UserID:      directory.ID(uid),
			CommunityID: directory.ID(cid),
			Level:       parsed,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code(directory.CodeStoreFailed).With("operation", "iterate members").Wrap(err)
	}
	return out, nil
}

// keyArgs converts ids to BIGINT arguments. Ids above MaxInt64 cannot be stored.
func keyArgs(userID, communityID directory.ID) (int64, int64, error) {
	if userID == 0 || uint64(userID) > math.MaxInt64 {
		return 0, 0, directory.ErrInvalidID("user")
	}
	if communityID == 0 || uint64(communityID) > math.MaxInt64 {
		return 0, 0, directory.ErrInvalidID("community")
	}
	return int64(userID), int64(communityID), nil
}
