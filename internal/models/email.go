package models

import "time"

// RawMessage is one fetched email message. Values are detached from the
// session that fetched them; callers own them outright.
type RawMessage struct {
	// UID is the server-assigned identifier within Mailbox. It is not
	// stable across mailboxes.
	UID uint32 `json:"uid"`
	// Mailbox is the folder the message was fetched from.
	Mailbox string `json:"mailbox"`
	// ContextualID is the portable reference for this message
	// (base64(mailbox) + ":" + uid). Collaborators hand this form back to
	// retrieve full thread context later.
	ContextualID string `json:"contextual_id"`

	MessageID  string   `json:"message_id"`
	InReplyTo  []string `json:"in_reply_to,omitempty"`
	References []string `json:"references,omitempty"`

	From    string     `json:"from"`
	To      []string   `json:"to,omitempty"`
	Cc      []string   `json:"cc,omitempty"`
	Bcc     []string   `json:"bcc,omitempty"`
	Subject string     `json:"subject"`
	SentAt  *time.Time `json:"sent_at,omitempty"`

	// Labels are server-specific conversation/folder tags (e.g. Gmail
	// X-GM-LABELS values) attached to the message.
	Labels []string `json:"labels,omitempty"`

	// BodyText is the best-effort plain-text body. CleanedBody is the same
	// body with quoted replies and attribution lines trimmed, preferred for
	// LLM consumption.
	BodyText    string `json:"body_text"`
	CleanedBody string `json:"cleaned_body"`

	// IsSent reports whether the message was sent by the account owner,
	// derived from the mailbox name and label set.
	IsSent bool `json:"is_sent"`
}

// EmailThread is an assembled conversation: deduplicated, chronologically
// ordered messages plus the participants and folders the thread spans.
type EmailThread struct {
	// ThreadID is the vendor-assigned numeric thread identifier rendered as
	// a string when available, otherwise the root message's Message-ID.
	ThreadID     string       `json:"thread_id"`
	Messages     []RawMessage `json:"messages"`
	Participants []string     `json:"participants"`
	Folders      []string     `json:"folders"`
}

// Len reports the number of messages in the thread.
func (t *EmailThread) Len() int {
	return len(t.Messages)
}
