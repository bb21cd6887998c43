package session

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

// Session is the state a source needs to look like one continuous browsing
// session: its cookie jar and correlation id.
type Session struct {
	CorrelationID string
	LastUsed      time.Time

	jar http.CookieJar
}

func newSession() *Session {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		// cookiejar.New never returns an error
		panic(err)
	}
	return &Session{
		// the booking web client sends two uuids joined by an underscore
		CorrelationID: uuid.NewString() + "_" + uuid.NewString(),
		jar:           jar,
	}
}

// Jar is the session cookie jar. Responses handled through it merge their
// cookies into the session.
func (s *Session) Jar() http.CookieJar { return s.jar }

func (s *Session) Cookies(u *url.URL) []*http.Cookie { return s.jar.Cookies(u) }

func (s *Session) SetCookies(u *url.URL, cookies []*http.Cookie) { s.jar.SetCookies(u, cookies) }

// Touch records that the session was used.
func (s *Session) Touch() { s.LastUsed = time.Now() }

type entry struct {
	slot    chan struct{}
	session *Session
}

// Store keeps one Session per source id for the process lifetime and admits
// one acquisition per source at a time.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

func (s *Store) entry(sourceID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sourceID]
	if !ok {
		e = &entry{slot: make(chan struct{}, 1), session: newSession()}
		s.entries[sourceID] = e
	}
	return e
}

// Get returns the session for sourceID, creating it on first access.
func (s *Store) Get(sourceID string) *Session {
	e := s.entry(sourceID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.session
}

// Lease waits until no other acquisition holds sourceID, or until ctx ends.
func (s *Store) Lease(ctx context.Context, sourceID string) (*Lease, error) {
	e := s.entry(sourceID)
	select {
	case e.slot <- struct{}{}:
		return &Lease{store: s, entry: e}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Lease is exclusive access to one source's session.
type Lease struct {
	store *Store
	entry *entry
	once  sync.Once
}

func (l *Lease) Session() *Session {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return l.entry.session
}

// Renew replaces the source's session with a fresh one. The previous session
// is detached, so anything still holding it cannot affect later attempts.
func (l *Lease) Renew() *Session {
	fresh := newSession()
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	l.entry.session = fresh
	return fresh
}

// Release gives the source back to the next waiter. It is safe to call twice.
func (l *Lease) Release() {
	l.once.Do(func() { <-l.entry.slot })
}
