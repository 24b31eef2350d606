package imap

import (
	"log"
	"strings"

	"github.com/emersion/go-imap"
	sortthread "github.com/emersion/go-imap-sortthread"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/responses"

	"github.com/nvoss/mailmind/internal/config"
)

// conn is the protocol surface a Session needs from its connection. The
// live implementation wraps a go-imap client; tests substitute fakes to
// assert which commands a strategy issued.
type conn interface {
	Capability() (map[string]bool, error)
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqSet *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	UidThread(algorithm sortthread.ThreadAlgorithm, criteria *imap.SearchCriteria) ([]*sortthread.Thread, error)
	Execute(cmdr imap.Commander, h responses.Handler) (*imap.StatusResp, error)
	Logout() error
}

// liveConn adapts a go-imap client to the conn interface.
type liveConn struct {
	c *client.Client
}

func (l *liveConn) Capability() (map[string]bool, error) {
	return l.c.Capability()
}

func (l *liveConn) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	return l.c.Select(name, readOnly)
}

func (l *liveConn) UidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	return l.c.UidSearch(criteria)
}

func (l *liveConn) UidFetch(seqSet *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	return l.c.UidFetch(seqSet, items, ch)
}

func (l *liveConn) UidThread(algorithm sortthread.ThreadAlgorithm, criteria *imap.SearchCriteria) ([]*sortthread.Thread, error) {
	return sortthread.NewThreadClient(l.c).UidThread(algorithm, criteria)
}

func (l *liveConn) Execute(cmdr imap.Commander, h responses.Handler) (*imap.StatusResp, error) {
	return l.c.Execute(cmdr, h)
}

func (l *liveConn) Logout() error {
	return l.c.Logout()
}

// Session is one exclusively-owned, authenticated connection. The selected
// mailbox is hidden server-side state: one single slot per session, mutated
// by Select. Sessions must never be shared between goroutines.
type Session struct {
	conn     conn
	selected string
	caps     map[string]bool
	capsDone bool
}

// Acquire establishes a fresh, isolated, authenticated session. Each
// logical operation gets its own session; there is no pooling, which would
// invite mailbox-selection races.
func Acquire(creds config.Credentials) (*Session, error) {
	c, err := connect(creds.Server, creds.UseTLS)
	if err != nil {
		return nil, err
	}

	if err := login(c, creds.Username, creds.Password); err != nil {
		if logoutErr := c.Logout(); logoutErr != nil {
			log.Printf("Warning: failed to log out after login failure: %v", logoutErr)
		}
		return nil, err
	}

	return &Session{conn: &liveConn{c: c}}, nil
}

// WithSession acquires a session, runs fn, and guarantees release on every
// exit path. Release failures are logged, never propagated: the connection
// is being discarded either way.
func WithSession(creds config.Credentials, fn func(*Session) error) error {
	s, err := Acquire(creds)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

// Select changes the session's selected mailbox. On failure the previous
// selection is assumed lost; callers must not issue message commands until
// a Select succeeds again.
func (s *Session) Select(mailbox string, readOnly bool) error {
	if _, err := s.conn.Select(mailbox, readOnly); err != nil {
		s.selected = ""
		return protoErr("select "+mailbox, err)
	}

	s.selected = mailbox
	return nil
}

// SelectedMailbox returns the currently selected mailbox, or "" when none
// has been selected yet.
func (s *Session) SelectedMailbox() string {
	return s.selected
}

// Capabilities returns the server-advertised extension tokens, uppercase,
// queried once and cached for the session lifetime. A failed query yields
// an empty set: downstream code treats "capability absent" and "query
// failed" identically, skipping capability-gated strategies.
func (s *Session) Capabilities() map[string]bool {
	if s.capsDone {
		return s.caps
	}

	s.capsDone = true
	s.caps = make(map[string]bool)

	caps, err := s.conn.Capability()
	if err != nil {
		log.Printf("Warning: capability query failed: %v", err)
		return s.caps
	}

	for name := range caps {
		s.caps[strings.ToUpper(name)] = true
	}
	return s.caps
}

// HasCapability reports whether the server advertises the given extension.
func (s *Session) HasCapability(name string) bool {
	return s.Capabilities()[strings.ToUpper(name)]
}

// Close logs the session out. Safe to call on every exit path.
func (s *Session) Close() {
	if err := s.conn.Logout(); err != nil {
		log.Printf("Warning: failed to log out session: %v", err)
	}
}
