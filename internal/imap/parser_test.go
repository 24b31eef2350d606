package imap

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAddress(t *testing.T) {
	t.Run("formats address with personal name", func(t *testing.T) {
		address := &imap.Address{
			PersonalName: "John Doe",
			MailboxName:  "john",
			HostName:     "example.com",
		}
		assert.Equal(t, "John Doe <john@example.com>", formatAddress(address))
	})

	t.Run("formats address without personal name", func(t *testing.T) {
		address := &imap.Address{
			MailboxName: "jane",
			HostName:    "example.com",
		}
		assert.Equal(t, "jane@example.com", formatAddress(address))
	})

	t.Run("returns empty string for nil address", func(t *testing.T) {
		assert.Empty(t, formatAddress(nil))
	})

	t.Run("returns empty string for empty address", func(t *testing.T) {
		assert.Empty(t, formatAddress(&imap.Address{}))
	})
}

func TestFormatAddressList(t *testing.T) {
	addresses := []*imap.Address{
		{MailboxName: "user1", HostName: "example.com"},
		{PersonalName: "User Two", MailboxName: "user2", HostName: "example.com"},
		nil,
	}

	result := formatAddressList(addresses)
	assert.Equal(t, []string{"user1@example.com", "User Two <user2@example.com>"}, result)
}

func TestParseMessage(t *testing.T) {
	sentAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	t.Run("nil message", func(t *testing.T) {
		assert.Nil(t, ParseMessage(nil, "INBOX", nil))
	})

	t.Run("envelope fields and labels", func(t *testing.T) {
		imapMsg := &imap.Message{
			Uid: 42,
			Envelope: &imap.Envelope{
				Date:      sentAt,
				Subject:   "Quarterly numbers",
				From:      []*imap.Address{{PersonalName: "Alice", MailboxName: "alice", HostName: "test.com"}},
				To:        []*imap.Address{{MailboxName: "bob", HostName: "test.com"}},
				MessageId: "<q1@test.com>",
				InReplyTo: "<root@test.com>",
			},
			Items: map[imap.FetchItem]interface{}{
				fetchItemGmailLabels: []interface{}{imap.RawString(`\\Inbox`), "Finance"},
			},
		}

		msg := ParseMessage(imapMsg, "INBOX", nil)
		require.NotNil(t, msg)
		assert.Equal(t, uint32(42), msg.UID)
		assert.Equal(t, "INBOX", msg.Mailbox)
		assert.Equal(t, EncodeContextualID("INBOX", 42), msg.ContextualID)
		assert.Equal(t, "Alice <alice@test.com>", msg.From)
		assert.Equal(t, []string{"bob@test.com"}, msg.To)
		assert.Equal(t, "<q1@test.com>", msg.MessageID)
		assert.Equal(t, []string{"<root@test.com>"}, msg.InReplyTo)
		assert.Equal(t, []string{`\Inbox`, "Finance"}, msg.Labels)
		require.NotNil(t, msg.SentAt)
		assert.True(t, msg.SentAt.Equal(sentAt))
		assert.False(t, msg.IsSent)
	})

	t.Run("body and references from the raw message", func(t *testing.T) {
		raw := "Message-ID: <q1@test.com>\r\n" +
			"References: <root@test.com> <mid@test.com>\r\n" +
			"Subject: Quarterly numbers\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"\r\n" +
			"Here are the numbers.\r\n" +
			"\r\n" +
			"On Fri, Mar 13, 2026, Bob wrote:\r\n" +
			"> What are the numbers?\r\n"

		section := &imap.BodySectionName{Peek: true}
		respSection := &imap.BodySectionName{}
		imapMsg := &imap.Message{
			Uid:  42,
			Body: map[*imap.BodySectionName]imap.Literal{respSection: bytes.NewBufferString(raw)},
		}

		msg := ParseMessage(imapMsg, "INBOX", section)
		require.NotNil(t, msg)
		assert.Equal(t, "<q1@test.com>", msg.MessageID)
		assert.Equal(t, []string{"<root@test.com>", "<mid@test.com>"}, msg.References)
		assert.Contains(t, msg.BodyText, "Here are the numbers.")
		assert.Equal(t, "Here are the numbers.", msg.CleanedBody)
	})
}

func TestCleanReplyBody(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips quoted lines",
			input: "New content.\n> old line one\n> old line two",
			want:  "New content.",
		},
		{
			name:  "stops at attribution line",
			input: "Reply text.\n\nOn Thu, Mar 12, 2026, Alice wrote:\nsomething quoted anyway",
			want:  "Reply text.",
		},
		{
			name:  "stops at original message marker",
			input: "Reply text.\n-----Original Message-----\nFrom: someone",
			want:  "Reply text.",
		},
		{
			name:  "plain body unchanged",
			input: "Just a normal\nmultiline body.",
			want:  "Just a normal\nmultiline body.",
		},
		{
			name:  "empty body",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanReplyBody(tt.input))
		})
	}
}

func TestIsSentMessage(t *testing.T) {
	assert.True(t, isSentMessage(SentMailbox, nil))
	assert.True(t, isSentMessage("INBOX", []string{`\Sent`}))
	assert.False(t, isSentMessage("INBOX", []string{`\Inbox`}))
	assert.False(t, isSentMessage("INBOX", nil))
}
