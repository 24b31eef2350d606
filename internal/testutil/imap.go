package testutil

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"

	"github.com/nvoss/mailmind/internal/config"
)

// TestIMAPServer represents a test IMAP server instance.
type TestIMAPServer struct {
	Server   *server.Server
	Address  string
	Backend  *memory.Backend
	cleanup  func()
	username string
	password string
}

// NewTestIMAPServer creates a new test IMAP server with an in-memory backend.
// The memory backend creates a default user with username "username" and
// password "password".
func NewTestIMAPServer(t *testing.T) *TestIMAPServer {
	t.Helper()

	be := memory.New()

	s := server.New(be)
	s.AllowInsecureAuth = true

	// Start server on random port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	addr := listener.Addr().String()

	go func() {
		if err := s.Serve(listener); err != nil {
			t.Logf("IMAP server error: %v", err)
		}
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	cleanup := func() {
		err := s.Close()
		if err != nil {
			return
		}
	}

	return &TestIMAPServer{
		Server:   s,
		Address:  addr,
		Backend:  be,
		cleanup:  cleanup,
		username: "username",
		password: "password",
	}
}

// Close shuts down the test IMAP server.
func (s *TestIMAPServer) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// Credentials returns non-TLS credentials for the test server, in the form
// the session manager consumes.
func (s *TestIMAPServer) Credentials() config.Credentials {
	return config.Credentials{
		Server:   s.Address,
		Username: s.username,
		Password: s.password,
		UseTLS:   false,
	}
}

// Connect creates a new IMAP client connection to the test server.
func (s *TestIMAPServer) Connect(t *testing.T) (*imapclient.Client, func()) {
	t.Helper()

	client, err := imapclient.Dial(s.Address)
	if err != nil {
		t.Fatalf("Failed to connect to test server: %v", err)
	}

	if err := client.Login(s.username, s.password); err != nil {
		_ = client.Logout()
		t.Fatalf("Failed to login: %v", err)
	}

	cleanup := func() {
		_ = client.Logout()
	}

	return client, cleanup
}

// EnsureMailbox ensures the named mailbox exists for the default user.
func (s *TestIMAPServer) EnsureMailbox(t *testing.T, name string) {
	t.Helper()

	client, cleanup := s.Connect(t)
	defer cleanup()

	if _, err := client.Select(name, false); err != nil {
		if err := client.Create(name); err != nil {
			t.Fatalf("Failed to create mailbox %s: %v", name, err)
		}
		if _, err := client.Select(name, false); err != nil {
			t.Fatalf("Failed to select mailbox %s: %v", name, err)
		}
	}
}

// Message describes a test message for AddMessage.
type Message struct {
	MessageID  string
	Subject    string
	From       string
	To         string
	Date       time.Time
	InReplyTo  string
	References []string
	Body       string
}

// AddMessage appends a test message to the given mailbox and returns its UID.
func (s *TestIMAPServer) AddMessage(t *testing.T, mailbox string, msg Message) uint32 {
	t.Helper()

	client, cleanup := s.Connect(t)
	defer cleanup()

	if _, err := client.Select(mailbox, false); err != nil {
		t.Fatalf("Failed to select mailbox: %v", err)
	}

	body := msg.Body
	if body == "" {
		body = "Test message body."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Message-ID: %s\r\n", msg.MessageID)
	fmt.Fprintf(&sb, "Date: %s\r\n", msg.Date.Format(time.RFC1123Z))
	fmt.Fprintf(&sb, "From: %s\r\n", msg.From)
	fmt.Fprintf(&sb, "To: %s\r\n", msg.To)
	fmt.Fprintf(&sb, "Subject: %s\r\n", msg.Subject)
	if msg.InReplyTo != "" {
		fmt.Fprintf(&sb, "In-Reply-To: %s\r\n", msg.InReplyTo)
	}
	if len(msg.References) > 0 {
		fmt.Fprintf(&sb, "References: %s\r\n", strings.Join(msg.References, " "))
	}
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")

	flags := []string{imap.SeenFlag}
	if err := client.Append(mailbox, flags, time.Now(), strings.NewReader(sb.String())); err != nil {
		t.Fatalf("Failed to append message: %v", err)
	}

	// Search for the message we just added to get its UID
	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("Message-Id", msg.MessageID)
	uids, err := client.UidSearch(criteria)
	if err != nil {
		t.Fatalf("Failed to search for message: %v", err)
	}

	if len(uids) == 0 {
		t.Fatalf("Message not found after append")
	}

	return uids[0]
}
