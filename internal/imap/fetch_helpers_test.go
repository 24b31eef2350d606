package imap

import (
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"

	"github.com/nvoss/mailmind/internal/testutil"
)

// appendDraft appends a message without a Message-ID header and returns its
// uid.
func appendDraft(t *testing.T, server *testutil.TestIMAPServer, mailbox string) uint32 {
	t.Helper()

	c, cleanup := server.Connect(t)
	defer cleanup()

	if _, err := c.Select(mailbox, false); err != nil {
		t.Fatalf("Failed to select mailbox: %v", err)
	}

	raw := strings.Join([]string{
		"Date: " + time.Now().Format(time.RFC1123Z),
		"From: from@test.com",
		"To: to@test.com",
		"Subject: Draft without id",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Draft body.",
		"",
	}, "\r\n")

	if err := c.Append(mailbox, nil, time.Now(), strings.NewReader(raw)); err != nil {
		t.Fatalf("Failed to append draft: %v", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("Subject", "Draft without id")
	uids, err := c.UidSearch(criteria)
	if err != nil {
		t.Fatalf("Failed to search for draft: %v", err)
	}
	if len(uids) == 0 {
		t.Fatal("Draft not found after append")
	}

	return uids[len(uids)-1]
}
