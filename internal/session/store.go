package session

import (
	"sync"
	"time"

	"apex-portrait/internal/portrait"
)

type Menu string

const (
	MenuMain     Menu = "main"
	MenuField    Menu = "field"
	MenuPresets  Menu = "presets"
	MenuProfiles Menu = "profiles"
	MenuProfile  Menu = "profile"
)

// Session is one user's editor: the form plus the outputs of the last run.
type Session struct {
	Form portrait.FormData

	Status    string
	Prompt    string
	SavedFile string
	JobID     string

	Menu          Menu
	MenuField     portrait.Field
	MenuProfile   string
	MessageID     int
	AwaitingNotes bool
	AwaitingSeed  bool

	Loading   bool
	UpdatedAt time.Time
}

type key struct {
	ChatID int64
	UserID int64
}

type Store struct {
	mu sync.Mutex
	m  map[key]*Session
}

func NewStore() *Store {
	return &Store{m: make(map[key]*Session)}
}

func (s *Store) Get(chatID, userID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return *s.getOrCreateLocked(chatID, userID)
}

func (s *Store) Update(chatID, userID int64, fn func(*Session)) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(chatID, userID)
	if fn != nil {
		fn(st)
	}
	st.UpdatedAt = time.Now()
	return *st
}

// Reset restores the default form and forgets outputs. The wizard message id
// and an in-flight submission survive.
func (s *Store) Reset(chatID, userID int64) Session {
	return s.Update(chatID, userID, func(st *Session) {
		msgID := st.MessageID
		loading := st.Loading
		*st = defaultSession()
		st.MessageID = msgID
		st.Loading = loading
	})
}

// TryBegin sets the loading flag. It returns false when a run is already in
// flight; nothing is queued.
func (s *Store) TryBegin(chatID, userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(chatID, userID)
	if st.Loading {
		return *st, false
	}
	st.Loading = true
	st.UpdatedAt = time.Now()
	return *st, true
}

func (s *Store) End(chatID, userID int64) {
	s.Update(chatID, userID, func(st *Session) { st.Loading = false })
}

func (s *Store) getOrCreateLocked(chatID, userID int64) *Session {
	k := key{ChatID: chatID, UserID: userID}
	if st, ok := s.m[k]; ok {
		return st
	}
	st := defaultSession()
	s.m[k] = &st
	return s.m[k]
}

func defaultSession() Session {
	return Session{
		Form:      portrait.DefaultForm(),
		Menu:      MenuMain,
		UpdatedAt: time.Now(),
	}
}
