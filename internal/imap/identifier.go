package imap

import (
	"encoding/base64"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
)

const (
	// DefaultMailbox is where bare sequence identifiers are assumed to live.
	DefaultMailbox = "INBOX"
	// AllMailMailbox is the canonical archive spanning every non-draft
	// message; vendor thread-id searches run against it.
	AllMailMailbox = "[Gmail]/All Mail"
	// SentMailbox holds the account's outgoing messages.
	SentMailbox = "[Gmail]/Sent Mail"
)

// candidateMailboxes is the fixed ordered list searched when resolving a
// Message-ID header value to a concrete (mailbox, uid) pair.
var candidateMailboxes = []string{DefaultMailbox, AllMailMailbox, SentMailbox}

// IdentifierKind discriminates the accepted forms of an external message
// reference.
type IdentifierKind int

const (
	// KindContextual is this system's own portable form:
	// base64(mailbox) + ":" + decimal uid. Decodable without network access.
	KindContextual IdentifierKind = iota
	// KindPlainUID is a bare decimal uid, implicitly in the default mailbox.
	KindPlainUID
	// KindMessageID is an RFC 5322 Message-ID header value, an opaque
	// cross-mailbox reference that requires a search to resolve.
	KindMessageID
)

// MessageIdentifier is a parsed external message reference.
type MessageIdentifier struct {
	Kind      IdentifierKind
	Mailbox   string
	UID       uint32
	MessageID string
}

// EncodeContextualID renders the portable reference for a message.
func EncodeContextualID(mailbox string, uid uint32) string {
	return fmt.Sprintf("%s:%d", base64.StdEncoding.EncodeToString([]byte(mailbox)), uid)
}

// DecodeContextualID parses a contextual identifier. Ill-formed input never
// fails: it degrades to the default mailbox with the identifier reparsed as
// a bare uid (zero when not numeric).
func DecodeContextualID(raw string) (string, uint32) {
	if mailbox, uid, ok := splitContextualID(raw); ok {
		return mailbox, uid
	}

	uid, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return DefaultMailbox, 0
	}
	return DefaultMailbox, uint32(uid)
}

// splitContextualID validates the contextual-id grammar: the part before the
// colon must be valid base64 and the part after must be all digits. Anything
// else is rejected as contextual and falls through to the other forms.
func splitContextualID(raw string) (string, uint32, bool) {
	encoded, digits, found := strings.Cut(raw, ":")
	if !found || encoded == "" || digits == "" {
		return "", 0, false
	}

	mailbox, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(mailbox) == 0 {
		return "", 0, false
	}

	uid, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return "", 0, false
	}

	return string(mailbox), uint32(uid), true
}

// ParseIdentifier classifies an externally-supplied reference into one of
// the three accepted forms. It never fails; unrecognized input is treated
// as a Message-ID header value.
func ParseIdentifier(raw string) MessageIdentifier {
	raw = strings.TrimSpace(raw)

	if mailbox, uid, ok := splitContextualID(raw); ok {
		return MessageIdentifier{Kind: KindContextual, Mailbox: mailbox, UID: uid}
	}

	if uid, err := strconv.ParseUint(raw, 10, 32); err == nil {
		return MessageIdentifier{Kind: KindPlainUID, Mailbox: DefaultMailbox, UID: uint32(uid)}
	}

	return MessageIdentifier{Kind: KindMessageID, MessageID: raw}
}

// bracketMessageID ensures a Message-ID value carries its angle brackets,
// matching how servers store the header.
func bracketMessageID(value string) string {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "<") {
		value = "<" + value
	}
	if !strings.HasSuffix(value, ">") {
		value = value + ">"
	}
	return value
}

// ResolveIdentifier normalizes a parsed reference into a concrete
// (mailbox, uid) pair. Contextual and plain forms resolve without network
// access; Message-ID values are searched across the fixed candidate
// mailboxes in order, returning the first match or ErrNotFound.
func ResolveIdentifier(s *Session, id MessageIdentifier) (string, uint32, error) {
	switch id.Kind {
	case KindContextual, KindPlainUID:
		return id.Mailbox, id.UID, nil
	case KindMessageID:
		return resolveMessageID(s, id.MessageID)
	default:
		return "", 0, fmt.Errorf("unknown identifier kind %d", id.Kind)
	}
}

func resolveMessageID(s *Session, messageID string) (string, uint32, error) {
	bracketed := bracketMessageID(messageID)

	for _, mailbox := range candidateMailboxes {
		if err := s.Select(mailbox, true); err != nil {
			log.Printf("Warning: could not select %s while resolving %s: %v", mailbox, bracketed, err)
			continue
		}

		criteria := imap.NewSearchCriteria()
		criteria.Header.Add("Message-Id", bracketed)

		uids, err := s.conn.UidSearch(criteria)
		if err != nil {
			log.Printf("Warning: Message-ID search failed in %s: %v", mailbox, err)
			continue
		}

		if len(uids) > 0 {
			return mailbox, uids[0], nil
		}
	}

	return "", 0, ErrNotFound
}
