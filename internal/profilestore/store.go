package profilestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"apex-portrait/internal/portrait"
)

const (
	DefaultNamespace = "apex_profiles"
	DefaultKeyPrefix = "portrait_profile_"
)

type Options struct {
	KV        KV
	Namespace string
	Logger    *slog.Logger
	Now       func() time.Time
}

// Store keeps every profile in one namespaced KV entry holding a JSON object of
// name -> profile. Writes are whole-mapping read-modify-write, serialized per
// namespace within the process and atomic across processes when the KV is an
// Updater.
type Store struct {
	kv        KV
	namespace string
	logger    *slog.Logger
	now       func() time.Time
	locks     *namespaceLocks
}

type namespaceLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *namespaceLocks) get(namespace string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	mu, ok := l.m[namespace]
	if !ok {
		mu = &sync.Mutex{}
		l.m[namespace] = mu
	}
	return mu
}

func New(opts Options) (*Store, error) {
	if opts.KV == nil {
		return nil, errors.New("kv is nil")
	}

	namespace := strings.TrimSpace(opts.Namespace)
	if namespace == "" {
		namespace = DefaultNamespace
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		kv:        opts.KV,
		namespace: namespace,
		logger:    logger,
		now:       now,
		locks:     &namespaceLocks{m: make(map[string]*sync.Mutex)},
	}, nil
}

// For returns a store over the same KV scoped to owner's own namespace,
// "<namespace>:<owner>". Stores derived from one parent share its locks.
func (s *Store) For(owner string) *Store {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return s
	}
	scoped := *s
	scoped.namespace = s.namespace + ":" + owner
	return &scoped
}

func (s *Store) Namespace() string {
	return s.namespace
}

// DefaultKey is "portrait_profile_" plus the UTC ISO-8601 millisecond timestamp
// with ':' and '.' replaced by '-'.
func DefaultKey(t time.Time) string {
	iso := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return DefaultKeyPrefix + strings.NewReplacer(":", "-", ".", "-").Replace(iso)
}

// Save merges p into the stored mapping under name, or under DefaultKey when
// name is empty, and returns the key used. A failed read fails the save and
// leaves the stored mapping untouched.
func (s *Store) Save(ctx context.Context, p portrait.Profile, name string) (string, error) {
	if name == "" {
		name = DefaultKey(s.now())
	}

	count := 0
	err := s.update(ctx, func(profiles map[string]portrait.Profile) {
		profiles[name] = p
		count = len(profiles)
	})
	if err != nil {
		return "", err
	}
	s.logger.Debug("profile saved", "namespace", s.namespace, "name", name, "count", count)
	return name, nil
}

// List returns the stored mapping. Missing, unreadable or corrupt data yields an
// empty mapping; the cause is logged.
func (s *Store) List(ctx context.Context) map[string]portrait.Profile {
	raw, ok, err := s.kv.Get(ctx, s.namespace)
	if err != nil {
		s.logger.Error("load stored profiles failed", "namespace", s.namespace, "err", err)
		return map[string]portrait.Profile{}
	}
	return s.decode(raw, ok)
}

// decode treats missing, blank and corrupt values as an empty mapping.
func (s *Store) decode(raw string, ok bool) map[string]portrait.Profile {
	if !ok || strings.TrimSpace(raw) == "" {
		return map[string]portrait.Profile{}
	}

	var profiles map[string]portrait.Profile
	if err := json.Unmarshal([]byte(raw), &profiles); err != nil {
		s.logger.Error("stored profiles are corrupt", "namespace", s.namespace, "err", err)
		return map[string]portrait.Profile{}
	}
	if profiles == nil {
		profiles = map[string]portrait.Profile{}
	}
	return profiles
}

// Names returns the stored profile names sorted ascending.
func (s *Store) Names(ctx context.Context) []string {
	profiles := s.List(ctx)
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) Load(ctx context.Context, name string) (portrait.Profile, bool) {
	p, ok := s.List(ctx)[name]
	return p, ok
}

// Delete removes name from the mapping. It reports false when the mapping
// could not be read or written back; removing an absent name succeeds.
func (s *Store) Delete(ctx context.Context, name string) bool {
	err := s.update(ctx, func(profiles map[string]portrait.Profile) {
		delete(profiles, name)
	})
	if err != nil {
		s.logger.Error("delete profile failed", "namespace", s.namespace, "name", name, "err", err)
		return false
	}
	return true
}

// update applies fn to the stored mapping and writes the result back.
func (s *Store) update(ctx context.Context, fn func(map[string]portrait.Profile)) error {
	lock := s.locks.get(s.namespace)
	lock.Lock()
	defer lock.Unlock()

	apply := func(raw string, ok bool) (string, error) {
		profiles := s.decode(raw, ok)
		fn(profiles)
		data, err := json.Marshal(profiles)
		if err != nil {
			return "", fmt.Errorf("encode profiles: %w", err)
		}
		return string(data), nil
	}

	if u, ok := s.kv.(Updater); ok {
		if err := u.Update(ctx, s.namespace, apply); err != nil {
			return fmt.Errorf("update profiles: %w", err)
		}
		return nil
	}

	raw, ok, err := s.kv.Get(ctx, s.namespace)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	next, err := apply(raw, ok)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.namespace, next); err != nil {
		return fmt.Errorf("store profiles: %w", err)
	}
	return nil
}
