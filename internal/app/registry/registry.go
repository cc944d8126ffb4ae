/*
Package registry owns the relay's shared state: the user table, the presence map
(who is online and where to deliver to them) and the chat membership table.

All state lives behind a single mutex. Each exported Registry method is one atomic
step; Update runs a caller-supplied function over a Tx so that a whole command's
registry interaction (check, mutate, snapshot recipients) is atomic with respect to
every other session. No network write happens while the lock is held: callers take
Sink snapshots out of the transaction and deliver to them afterwards.
*/
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"relaychat/internal/app/user"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
)

// Sink is the outbound delivery handle of an online session.
// Send must not block on the network.
type Sink interface {
	Send(msg []byte) error
}

// Hasher is the one-way secret hashing capability.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, digest string) bool
}

// Store persists the user table as a whole.
type Store interface {
	Load(ctx context.Context) ([]user.Record, error)
	Save(ctx context.Context, records []user.Record) error
}

// Registry is the single owner of users, presence entries and chat rooms.
type Registry struct {
	// mu serializes every read and mutation of the tables below.
	mu sync.Mutex

	// users maps a user name to its durable record.
	users map[string]*user.Record

	// online maps a user name to the sink of its active session.
	online map[string]Sink

	// chats maps a chat name to its member set.
	chats map[string]map[string]struct{}

	// generation counts registrations; savedGen is the newest one persisted.
	generation uint64

	// saveMu serializes store writes. It is always taken before mu.
	saveMu   sync.Mutex
	savedGen uint64

	hasher Hasher
	store  Store

	logger zerolog.Logger
}

// New loads the user table from store and returns a ready Registry.
func New(ctx context.Context, store Store, hasher Hasher) (*Registry, error) {
	records, err := store.Load(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrPersistenceFailure, fmt.Errorf("failed to load user table: %w", err))
	}

	r := &Registry{
		users:  make(map[string]*user.Record, len(records)),
		online: make(map[string]Sink),
		chats:  make(map[string]map[string]struct{}),
		hasher: hasher,
		store:  store,
		logger: logx.Component("registry"),
	}

	for _, rec := range records {
		rec := rec.Clone()
		r.users[rec.Name] = &rec
	}

	r.logger.Info().Int("users", len(r.users)).Msg("User table loaded")
	return r, nil
}

// Update runs fn with exclusive access to the registry.
// fn must not perform network I/O or call back into the Registry.
func (r *Registry) Update(fn func(tx *Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return fn(&Tx{r: r})
}

// Register creates a user record for name and persists the full table.
// The secret is hashed and the table saved without holding the lock.
// A failed save rolls the insert back.
func (r *Registry) Register(ctx context.Context, name, secret string) error {
	r.mu.Lock()
	_, exists := r.users[name]
	r.mu.Unlock()
	if exists {
		return errs.NewError(errs.ErrUserAlreadyExists)
	}

	digest, err := r.hasher.Hash(secret)
	if err != nil {
		return errs.Wrap(errs.ErrPersistenceFailure, err)
	}

	rec := &user.Record{Name: name, PasswordDigest: digest}

	r.mu.Lock()
	if _, exists := r.users[name]; exists {
		r.mu.Unlock()
		return errs.NewError(errs.ErrUserAlreadyExists)
	}
	r.users[name] = rec
	r.generation++
	gen := r.generation
	r.mu.Unlock()

	if err := r.persist(ctx, gen); err != nil {
		r.mu.Lock()
		if r.users[name] == rec {
			delete(r.users, name)
		}
		r.mu.Unlock()
		r.logger.Error().Err(err).Str("user", name).Msg("Failed to persist user table, registration rolled back")
		return errs.Wrap(errs.ErrPersistenceFailure, err)
	}

	r.logger.Info().Str("user", name).Msg("User registered")
	return nil
}

// persist writes the user table unless a save covering generation gen already succeeded.
// The store is written outside mu, so presence and chat traffic continue meanwhile.
func (r *Registry) persist(ctx context.Context, gen uint64) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	if gen != 0 && r.savedGen >= gen {
		return nil
	}

	r.mu.Lock()
	records := r.snapshotLocked()
	snapGen := r.generation
	r.mu.Unlock()

	if err := r.store.Save(ctx, records); err != nil {
		return err
	}
	r.savedGen = snapGen
	return nil
}

// Authenticate reports whether secret matches the stored digest for name.
// An unknown name yields ErrUserNotFound.
func (r *Registry) Authenticate(name, secret string) (bool, error) {
	r.mu.Lock()
	rec, ok := r.users[name]
	var digest string
	if ok {
		digest = rec.PasswordDigest
	}
	r.mu.Unlock()

	if !ok {
		return false, errs.NewError(errs.ErrUserNotFound)
	}

	return r.hasher.Verify(secret, digest), nil
}

// Records returns a copy of the user table sorted by name.
func (r *Registry) Records() []user.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.snapshotLocked()
}

// Save persists the current user table, including current-chat changes made since the last save.
func (r *Registry) Save(ctx context.Context) error {
	if err := r.persist(ctx, 0); err != nil {
		return errs.Wrap(errs.ErrPersistenceFailure, err)
	}
	return nil
}

// OnlineCount returns the number of presence entries.
func (r *Registry) OnlineCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.online)
}

func (r *Registry) snapshotLocked() []user.Record {
	records := make([]user.Record, 0, len(r.users))
	for _, rec := range r.users {
		records = append(records, rec.Clone())
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records
}

// SetOnline records sink as the delivery handle for name, replacing any earlier entry.
func (r *Registry) SetOnline(name string, sink Sink) {
	_ = r.Update(func(tx *Tx) error {
		tx.SetOnline(name, sink)
		return nil
	})
}

// SetOffline removes the presence entry for name, if any.
func (r *Registry) SetOffline(name string) {
	_ = r.Update(func(tx *Tx) error {
		tx.SetOffline(name)
		return nil
	})
}

// Release removes the presence entry for name only if it still points at sink.
// It reports whether an entry was removed.
func (r *Registry) Release(name string, sink Sink) bool {
	var released bool
	_ = r.Update(func(tx *Tx) error {
		released = tx.Release(name, sink)
		return nil
	})
	return released
}

// Lookup returns the sink of name's active session.
func (r *Registry) Lookup(name string) (Sink, bool) {
	var (
		sink Sink
		ok   bool
	)
	_ = r.Update(func(tx *Tx) error {
		sink, ok = tx.Lookup(name)
		return nil
	})
	return sink, ok
}

// SetCurrentChat sets or clears name's current chat.
func (r *Registry) SetCurrentChat(name string, chat *string) error {
	return r.Update(func(tx *Tx) error {
		return tx.SetCurrentChat(name, chat)
	})
}

// GetCurrentChat returns name's current chat and whether one is set.
func (r *Registry) GetCurrentChat(name string) (string, bool) {
	var (
		chat string
		ok   bool
	)
	_ = r.Update(func(tx *Tx) error {
		chat, ok = tx.GetCurrentChat(name)
		return nil
	})
	return chat, ok
}

// CreateChat creates chat with founder as its only member.
func (r *Registry) CreateChat(chat, founder string) {
	_ = r.Update(func(tx *Tx) error {
		tx.CreateChat(chat, founder)
		return nil
	})
}

// JoinChat adds member to chat and returns the resulting member set.
func (r *Registry) JoinChat(chat, member string) ([]string, error) {
	var members []string
	err := r.Update(func(tx *Tx) error {
		var err error
		members, err = tx.JoinChat(chat, member)
		return err
	})
	return members, err
}

// QuitChat removes member from chat and returns the member set as it was before removal.
func (r *Registry) QuitChat(chat, member string) ([]string, error) {
	var members []string
	err := r.Update(func(tx *Tx) error {
		var err error
		members, err = tx.QuitChat(chat, member)
		return err
	})
	return members, err
}
