// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package directory tracks the users, communities, and members the bot knows about
// and resolves their effective trust levels.
//
// A Directory is an explicit context object: nothing here is package-global, so
// tests construct isolated instances. Each registry (users, communities, and the
// members of one community) is guarded by its own mutex.
package directory

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/holobot/internal/trust"
)

// ID is a platform snowflake identifying a user or a community. Zero is invalid.
type ID uint64

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID parses a decimal snowflake.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, oops.Code(CodeInvalidID).
			With("input", s).
			Errorf("%q is not a valid id", s)
	}
	return ID(n), nil
}

// Directory owns the process-wide user and community registries.
type Directory struct {
	store MemberStore

	usersMu sync.RWMutex
	users   map[ID]*User

	communitiesMu sync.Mutex
	communities   map[ID]*Community
}

// New creates a directory persisting member records through store.
func New(store MemberStore) (*Directory, error) {
	if store == nil {
		return nil, oops.Code(CodeStoreFailed).Errorf("member store is required")
	}
	return &Directory{
		store:       store,
		users:       make(map[ID]*User),
		communities: make(map[ID]*Community),
	}, nil
}

// Store returns the member store backing the directory.
func (d *Directory) Store() MemberStore {
	return d.store
}

// NewUser registers a user with the given global level. Registering an id twice
// fails with CodeDuplicateEntity.
func (d *Directory) NewUser(id ID, level trust.Level) (*User, error) {
	if id == 0 {
		return nil, ErrInvalidID("user")
	}
	if !level.Valid() {
		return nil, oops.Code(trust.CodeInvalidLevel).
			With("reason", trust.ReasonRange).
			With("input", int(level)).
			Errorf("the trust level %d is unknown", int(level))
	}

	d.usersMu.Lock()
	defer d.usersMu.Unlock()
	if _, ok := d.users[id]; ok {
		return nil, ErrDuplicateEntity("user", id)
	}
	u := &User{id: id, level: level}
	d.users[id] = u
	return u, nil
}

// User returns the user with id, creating one at the default level on first sight.
func (d *Directory) User(id ID) (*User, error) {
	if id == 0 {
		return nil, ErrInvalidID("user")
	}

	d.usersMu.RLock()
	u, ok := d.users[id]
	d.usersMu.RUnlock()
	if ok {
		return u, nil
	}

	d.usersMu.Lock()
	defer d.usersMu.Unlock()
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	u = &User{id: id, level: trust.Default}
	d.users[id] = u
	return u, nil
}

// LookupUser returns an already known user or fails with CodeNotFound.
func (d *Directory) LookupUser(id ID) (*User, error) {
	if id == 0 {
		return nil, ErrInvalidID("user")
	}
	d.usersMu.RLock()
	defer d.usersMu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, ErrNotFound("user", id)
	}
	return u, nil
}

// Users returns the known users ordered by id.
func (d *Directory) Users() []*User {
	d.usersMu.RLock()
	defer d.usersMu.RUnlock()
	out := make([]*User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b *User) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})
	return out
}

// Community returns the community with id, creating it on first reference.
func (d *Directory) Community(id ID) (*Community, error) {
	if id == 0 {
		return nil, ErrInvalidID("community")
	}
	d.communitiesMu.Lock()
	defer d.communitiesMu.Unlock()
	c, ok := d.communities[id]
	if !ok {
		c = &Community{id: id, dir: d, members: make(map[ID]*Member)}
		d.communities[id] = c
	}
	return c, nil
}

// Member resolves the member for userID inside communityID.
func (d *Directory) Member(ctx context.Context, communityID, userID ID) (*Member, error) {
	c, err := d.Community(communityID)
	if err != nil {
		return nil, err
	}
	return c.Member(ctx, userID)
}

// Seed registers the global levels from bootstrap configuration. An id listed under
// more than one level fails with CodeConfigInvalid before any user is created.
func (d *Directory) Seed(levels map[trust.Level][]ID) error {
	seen := make(map[ID]trust.Level)
	for _, level := range trust.Levels() {
		for _, id := range levels[level] {
			if id == 0 {
				return oops.Code(CodeConfigInvalid).
					With("level", level.String()).
					Errorf("bootstrap configuration lists an invalid user id under %s", level)
			}
			if prev, dup := seen[id]; dup {
				return oops.Code(CodeConfigInvalid).
					With("user_id", uint64(id)).
					With("levels", []string{prev.String(), level.String()}).
					Errorf("user %d is assigned more than one permission level", id)
			}
			seen[id] = level
		}
	}
	for level := range levels {
		if !level.Valid() {
			return oops.Code(CodeConfigInvalid).
				With("level", int(level)).
				Errorf("bootstrap configuration uses unknown level %d", int(level))
		}
	}

	for _, level := range trust.Levels() {
		for _, id := range levels[level] {
			if _, err := d.NewUser(id, level); err != nil {
				return oops.Code(CodeConfigInvalid).
					With("user_id", uint64(id)).
					Wrapf(err, "seed user %d", id)
			}
		}
	}
	return nil
}

// User is a platform account with a global trust level.
type User struct {
	id ID

	mu    sync.RWMutex
	level trust.Level
}

// ID returns the user's id.
func (u *User) ID() ID {
	return u.id
}

// Level returns the global trust level.
func (u *User) Level() trust.Level {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.level
}

// SetLevel changes the global trust level. Global levels are not persisted; they
// come from bootstrap configuration.
func (u *User) SetLevel(level trust.Level) error {
	if !level.Valid() {
		return oops.Code(trust.CodeInvalidLevel).
			With("reason", trust.ReasonRange).
			With("input", int(level)).
			Errorf("the trust level %d is unknown", int(level))
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.level = level
	return nil
}

// Community is a chat workspace and the members materialized inside it.
type Community struct {
	id  ID
	dir *Directory

	mu      sync.Mutex
	members map[ID]*Member
	order   []*Member
}

// ID returns the community id.
func (c *Community) ID() ID {
	return c.id
}

// Member returns the member for userID, loading it from the store or creating and
// persisting a default record on first reference. Repeated calls return the same
// instance.
func (c *Community) Member(ctx context.Context, userID ID) (*Member, error) {
	if userID == 0 {
		return nil, ErrInvalidID("member")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.members[userID]; ok {
		return m, nil
	}

	user, err := c.dir.User(userID)
	if err != nil {
		return nil, err
	}

	rec, found, err := c.dir.store.LoadMember(ctx, userID, c.id)
	if err != nil {
		return nil, oops.Code(CodeStoreFailed).
			With("operation", "load member").
			With("user_id", uint64(userID)).
			With("community_id", uint64(c.id)).
			Wrap(err)
	}
	if !found {
		rec = MemberRecord{UserID: userID, CommunityID: c.id, Level: trust.Default}
		if err := c.dir.store.CreateMember(ctx, rec); err != nil {
			return nil, oops.With("operation", "create member").
				With("user_id", uint64(userID)).
				With("community_id", uint64(c.id)).
				Wrap(err)
		}
	}

	m := &Member{user: user, community: c, local: rec.Level}
	c.members[userID] = m
	c.order = append(c.order, m)
	return m, nil
}

// Members returns the materialized members in first-reference order.
func (c *Community) Members() []*Member {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.order)
}

// Member is a user's standing inside one community.
type Member struct {
	user      *User
	community *Community

	mu    sync.Mutex
	local trust.Level
}

// User returns the member's global identity.
func (m *Member) User() *User {
	return m.user
}

// Community returns the community the member belongs to.
func (m *Member) Community() *Community {
	return m.community
}

// LocalLevel returns the community-local level without the global override.
func (m *Member) LocalLevel() trust.Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.local
}

// Level returns the effective level: the higher of the local and global levels.
func (m *Member) Level() trust.Level {
	return trust.Resolve(m.LocalLevel(), m.user.Level())
}

// HasPermission reports whether the effective level meets required.
func (m *Member) HasPermission(required trust.Level) bool {
	return m.Level().AtLeast(required)
}

// SetLevel persists a new local level and then applies it in memory. The member's
// lock is held across the store write so no reader sees a level the store has not
// accepted. Store failures are returned unchanged in memory.
func (m *Member) SetLevel(ctx context.Context, level trust.Level) error {
	if !level.Valid() {
		return oops.Code(trust.CodeInvalidLevel).
			With("reason", trust.ReasonRange).
			With("input", int(level)).
			Errorf("the trust level %d is unknown", int(level))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.community.dir.store.UpdateMemberField(ctx, m.user.id, m.community.id, FieldPermission, int(level))
	if err != nil {
		return oops.Code(CodeStoreFailed).
			With("operation", "update member permission").
			With("user_id", uint64(m.user.id)).
			With("community_id", uint64(m.community.id)).
			Wrap(err)
	}
	m.local = level
	return nil
}
