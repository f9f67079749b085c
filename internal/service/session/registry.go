package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/zhouzirui/study-mentor/backend/internal/model/chat"
	"github.com/zhouzirui/study-mentor/backend/internal/model/document"
)

var (
	ErrSessionRequired = errors.New("session id is required")
	ErrMissingField    = errors.New("missing name or age")
)

// ResetHook clears session-scoped state kept outside the registry.
type ResetHook func(ctx context.Context, sessionID string) error

type entry struct {
	// exchange serialises mutations of one session.
	exchange sync.Mutex

	mu        sync.RWMutex
	profile   *chat.Profile
	document  document.Ref
	createdAt time.Time
	lastSeen  time.Time
	// stale is set when the session idled past the ttl; the next Lock
	// resets it before anything else runs.
	stale bool
}

// Registry maps session ids to profiles and document references. Idle
// sessions expire after the configured TTL.
//
// Entries stay stable for the lifetime of a session id: a session that
// returns after idling is reset in place, never replaced, so its lock keeps
// guarding the history and document kept outside the registry.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	// cache is the idle clock; its janitor evicts sessions nobody returns to.
	cache *cache.Cache
	ttl   time.Duration

	hooksMu sync.Mutex
	hooks   []ResetHook

	logger *zap.Logger
}

// NewRegistry creates a registry. A ttl <= 0 keeps sessions forever.
func NewRegistry(ttl time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl < 0 {
		ttl = 0
	}

	expiration, cleanup := cache.NoExpiration, time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl / 2
		if cleanup < time.Minute {
			cleanup = time.Minute
		}
	}

	r := &Registry{
		entries: make(map[string]*entry),
		cache:   cache.New(expiration, cleanup),
		ttl:     ttl,
		logger:  logger.Named("session"),
	}
	r.cache.OnEvicted(r.expire)
	return r
}

// OnReset registers a hook run whenever a session's state must be dropped:
// on profile submission and on expiry.
func (r *Registry) OnReset(hook ResetHook) {
	r.hooksMu.Lock()
	r.hooks = append(r.hooks, hook)
	r.hooksMu.Unlock()
}

// Lock acquires the single-writer lock of a session, creating the session if
// needed. A session that idled past the ttl is reset first. Different
// sessions never block each other.
func (r *Registry) Lock(sessionID string) (unlock func()) {
	e := r.touch(sessionID)
	e.exchange.Lock()
	r.settle(context.Background(), sessionID, e)
	return func() {
		r.refresh(sessionID, e)
		e.exchange.Unlock()
	}
}

// Session returns a snapshot of a live session. It never creates one.
func (r *Registry) Session(sessionID string) (chat.Session, bool) {
	e, ok := r.live(sessionID)
	if !ok {
		return chat.Session{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return chat.Session{
		ID:        sessionID,
		Profile:   profileOrDefault(e.profile),
		CreatedAt: e.createdAt,
		LastSeen:  e.lastSeen,
	}, true
}

// SetProfile replaces the profile of a session and resets its history and
// document through the registered hooks.
func (r *Registry) SetProfile(ctx context.Context, sessionID, name, age string) (chat.Profile, error) {
	if sessionID == "" {
		return chat.Profile{}, ErrSessionRequired
	}
	name, age = strings.TrimSpace(name), strings.TrimSpace(age)
	if name == "" || age == "" {
		return chat.Profile{}, ErrMissingField
	}

	profile := chat.Profile{Name: name, Age: age}
	e := r.touch(sessionID)
	e.mu.Lock()
	e.profile = &profile
	e.document = document.Ref{}
	e.stale = false
	e.mu.Unlock()

	if err := r.runHooks(ctx, sessionID); err != nil {
		return profile, err
	}
	return profile, nil
}

// Profile returns the session profile, or the default profile when none was
// submitted or the session expired. It never creates a session.
func (r *Registry) Profile(sessionID string) chat.Profile {
	e, ok := r.live(sessionID)
	if !ok {
		return chat.DefaultProfile()
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return profileOrDefault(e.profile)
}

// Document returns the document reference of a live session, if any.
func (r *Registry) Document(sessionID string) (document.Ref, bool) {
	e, ok := r.live(sessionID)
	if !ok {
		return document.Ref{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.document, !e.document.IsZero()
}

// SetDocument points the session at ref.
func (r *Registry) SetDocument(sessionID string, ref document.Ref) {
	e := r.touch(sessionID)
	e.mu.Lock()
	e.document = ref
	e.mu.Unlock()
}

// ClearDocument forgets the session's document reference.
func (r *Registry) ClearDocument(sessionID string) {
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	r.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.document = document.Ref{}
	e.mu.Unlock()
}

// Live reports whether the session exists and has not expired.
func (r *Registry) Live(sessionID string) bool {
	_, ok := r.live(sessionID)
	return ok
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Expire drops a session immediately, running the reset hooks. It waits for
// an exchange in flight, and a session that exchange kept active survives.
// It must not be called while holding the session lock.
func (r *Registry) Expire(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *Registry) idle(lastSeen, now time.Time) bool {
	return r.ttl > 0 && now.Sub(lastSeen) > r.ttl
}

func (r *Registry) live(sessionID string) (*entry, bool) {
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}

	e.mu.RLock()
	expired := e.stale || r.idle(e.lastSeen, time.Now().UTC())
	e.mu.RUnlock()
	if expired {
		return nil, false
	}
	return e, true
}

func (r *Registry) touch(sessionID string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	e, ok := r.entries[sessionID]
	if !ok {
		e = &entry{createdAt: now}
		r.entries[sessionID] = e
	}
	e.mu.Lock()
	if ok && r.idle(e.lastSeen, now) {
		e.stale = true
	}
	e.lastSeen = now
	e.mu.Unlock()

	r.cache.SetDefault(sessionID, e)
	return e
}

// refresh restarts the idle clock without the staleness check, so a long
// exchange does not expire the session it served.
func (r *Registry) refresh(sessionID string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[sessionID] != e {
		return
	}
	e.mu.Lock()
	e.lastSeen = time.Now().UTC()
	e.mu.Unlock()
	r.cache.SetDefault(sessionID, e)
}

// settle resets a stale session. The caller holds e.exchange.
func (r *Registry) settle(ctx context.Context, sessionID string, e *entry) {
	e.mu.Lock()
	stale := e.stale
	if stale {
		e.stale = false
		e.profile = nil
		e.document = document.Ref{}
		e.createdAt = e.lastSeen
	}
	e.mu.Unlock()
	if !stale {
		return
	}

	if err := r.runHooks(ctx, sessionID); err != nil {
		r.logger.Warn("failed to clean up expired session", zap.String("session", sessionID), zap.Error(err))
		return
	}
	r.logger.Debug("session expired", zap.String("session", sessionID))
}

// expire runs when the cache drops a session, from the janitor or Expire.
func (r *Registry) expire(sessionID string, v interface{}) {
	e, ok := v.(*entry)
	if !ok {
		return
	}

	// Wait for an in-flight exchange of this session to finish.
	e.exchange.Lock()
	defer e.exchange.Unlock()

	r.mu.Lock()
	if _, fresh := r.cache.Get(sessionID); fresh || r.entries[sessionID] != e {
		r.mu.Unlock()
		return
	}
	e.mu.Lock()
	e.stale = true
	e.mu.Unlock()
	r.mu.Unlock()

	r.settle(context.Background(), sessionID, e)

	r.mu.Lock()
	if _, fresh := r.cache.Get(sessionID); !fresh && r.entries[sessionID] == e {
		delete(r.entries, sessionID)
	}
	r.mu.Unlock()
}

func (r *Registry) runHooks(ctx context.Context, sessionID string) error {
	r.hooksMu.Lock()
	hooks := append([]ResetHook(nil), r.hooks...)
	r.hooksMu.Unlock()

	var errs []error
	for _, hook := range hooks {
		if err := hook(ctx, sessionID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func profileOrDefault(p *chat.Profile) chat.Profile {
	if p == nil {
		return chat.DefaultProfile()
	}
	return *p
}
