// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package directory

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/holobot/internal/trust"
)

// Field names a mutable column of a member record.
type Field string

// FieldPermission is the member's community-local trust level.
const FieldPermission Field = "permission"

// MemberRecord is the persisted form of a Member.
type MemberRecord struct {
	UserID      ID
	CommunityID ID
	Level       trust.Level // community-local level, not the effective one
}

// MemberStore persists member permission records. Implementations guarantee at
// most one record per (UserID, CommunityID).
type MemberStore interface {
	// LoadMember returns the record for the pair and true, or false when none exists.
	LoadMember(ctx context.Context, userID, communityID ID) (MemberRecord, bool, error)

	// CreateMember inserts a new record. Inserting an existing pair fails with
	// CodeDuplicateEntity.
	CreateMember(ctx context.Context, rec MemberRecord) error

	// UpdateMemberField sets one field of an existing record.
	UpdateMemberField(ctx context.Context, userID, communityID ID, field Field, value any) error

	// ListMembers returns every stored record ordered by community then user.
	ListMembers(ctx context.Context) ([]MemberRecord, error)
}

type memberKey struct {
	user, community ID
}

// MemoryMemberStore is an in-memory MemberStore for tests and dry runs.
type MemoryMemberStore struct {
	mu      sync.RWMutex
	records map[memberKey]MemberRecord
}

// NewMemoryMemberStore creates an empty in-memory store.
func NewMemoryMemberStore() *MemoryMemberStore {
	return &MemoryMemberStore{records: make(map[memberKey]MemberRecord)}
}

// LoadMember returns the stored record for the pair.
func (s *MemoryMemberStore) LoadMember(_ context.Context, userID, communityID ID) (MemberRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[memberKey{userID, communityID}]
	return rec, ok, nil
}

// CreateMember inserts rec unless the pair already exists.
func (s *MemoryMemberStore) CreateMember(_ context.Context, rec MemberRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{rec.UserID, rec.CommunityID}
	if _, ok := s.records[key]; ok {
		return ErrDuplicateEntity("member", rec.UserID)
	}
	s.records[key] = rec
	return nil
}

// UpdateMemberField sets field on an existing record.
func (s *MemoryMemberStore) UpdateMemberField(_ context.Context, userID, communityID ID, field Field, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{userID, communityID}
	rec, ok := s.records[key]
	if !ok {
		return ErrNotFound("member", userID)
	}
	switch field {
	case FieldPermission:
		level, err := trust.ParseLevel(value)
		if err != nil {
			return err
		}
		rec.Level = level
	default:
		return oops.Code(CodeStoreFailed).
			With("field", string(field)).
			Errorf("unknown member field %q", field)
	}
	s.records[key] = rec
	return nil
}

// ListMembers returns a sorted copy of all records.
func (s *MemoryMemberStore) ListMembers(_ context.Context) ([]MemberRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MemberRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	SortRecords(out)
	return out, nil
}

// SortRecords orders records by community then user.
func SortRecords(recs []MemberRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CommunityID != recs[j].CommunityID {
			return recs[i].CommunityID < recs[j].CommunityID
		}
		return recs[i].UserID < recs[j].UserID
	})
}
