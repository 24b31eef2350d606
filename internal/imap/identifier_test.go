package imap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvoss/mailmind/internal/testutil"
)

func TestContextualIDRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		mailbox string
		uid     uint32
	}{
		{name: "inbox", mailbox: "INBOX", uid: 42},
		{name: "all mail", mailbox: "[Gmail]/All Mail", uid: 1},
		{name: "folder with spaces", mailbox: "Project Fishbowl", uid: 4294967295},
		{name: "folder with colon", mailbox: "odd:name", uid: 7},
		{name: "unicode folder", mailbox: "Entwürfe", uid: 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := EncodeContextualID(tt.mailbox, tt.uid)
			mailbox, uid := DecodeContextualID(encoded)
			assert.Equal(t, tt.mailbox, mailbox)
			assert.Equal(t, tt.uid, uid)
		})
	}
}

func TestDecodeContextualIDMalformed(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantMailbox string
		wantUID     uint32
	}{
		{name: "bare digits fall back to default mailbox", input: "123", wantMailbox: DefaultMailbox, wantUID: 123},
		{name: "invalid base64 part", input: "!!!:42", wantMailbox: DefaultMailbox, wantUID: 0},
		{name: "non-digit sequence part", input: "SU5CT1g=:abc", wantMailbox: DefaultMailbox, wantUID: 0},
		{name: "empty string", input: "", wantMailbox: DefaultMailbox, wantUID: 0},
		{name: "colon only", input: ":", wantMailbox: DefaultMailbox, wantUID: 0},
		{name: "message id form", input: "<msg@example.com>", wantMailbox: DefaultMailbox, wantUID: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Must never panic, whatever the input.
			mailbox, uid := DecodeContextualID(tt.input)
			assert.Equal(t, tt.wantMailbox, mailbox)
			assert.Equal(t, tt.wantUID, uid)
		})
	}
}

func TestParseIdentifier(t *testing.T) {
	t.Run("contextual form", func(t *testing.T) {
		id := ParseIdentifier("SU5CT1g=:42")
		assert.Equal(t, KindContextual, id.Kind)
		assert.Equal(t, "INBOX", id.Mailbox)
		assert.Equal(t, uint32(42), id.UID)
	})

	t.Run("plain uid form", func(t *testing.T) {
		id := ParseIdentifier("17")
		assert.Equal(t, KindPlainUID, id.Kind)
		assert.Equal(t, DefaultMailbox, id.Mailbox)
		assert.Equal(t, uint32(17), id.UID)
	})

	t.Run("message id form", func(t *testing.T) {
		id := ParseIdentifier("<abc@example.com>")
		assert.Equal(t, KindMessageID, id.Kind)
		assert.Equal(t, "<abc@example.com>", id.MessageID)
	})

	t.Run("invalid contextual falls through to message id", func(t *testing.T) {
		id := ParseIdentifier("not-base64!:42")
		assert.Equal(t, KindMessageID, id.Kind)
	})
}

func TestResolveIdentifierContextualNeedsNoNetwork(t *testing.T) {
	// A session whose conn counts every command: "SU5CT1g=:42" must
	// resolve without any of them firing.
	f := newFakeConn()
	s := &Session{conn: f}

	mailbox, uid, err := ResolveIdentifier(s, ParseIdentifier("SU5CT1g=:42"))
	require.NoError(t, err)
	assert.Equal(t, "INBOX", mailbox)
	assert.Equal(t, uint32(42), uid)
	assert.Zero(t, f.totalCalls())
}

func TestResolveIdentifierMessageID(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	t.Cleanup(server.Close)
	server.EnsureMailbox(t, "INBOX")

	uid := server.AddMessage(t, "INBOX", testutil.Message{
		MessageID: "<lookup-target@test>",
		Subject:   "Find me",
		From:      "from@test.com",
		To:        "to@test.com",
		Date:      time.Now(),
	})

	s, err := Acquire(server.Credentials())
	require.NoError(t, err)
	defer s.Close()

	t.Run("finds message in first candidate mailbox", func(t *testing.T) {
		mailbox, got, err := ResolveIdentifier(s, ParseIdentifier("<lookup-target@test>"))
		require.NoError(t, err)
		assert.Equal(t, "INBOX", mailbox)
		assert.Equal(t, uid, got)
	})

	t.Run("returns ErrNotFound for unknown message id", func(t *testing.T) {
		_, _, err := ResolveIdentifier(s, ParseIdentifier("<no-such-message@test>"))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestBracketMessageID(t *testing.T) {
	assert.Equal(t, "<a@b>", bracketMessageID("a@b"))
	assert.Equal(t, "<a@b>", bracketMessageID("<a@b>"))
	assert.Equal(t, "<a@b>", bracketMessageID("  <a@b>  "))
}
