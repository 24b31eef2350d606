package imap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"

	"github.com/nvoss/mailmind/internal/models"
)

// threadingHeaders is the subset of headers the client-side reconstruction
// layer needs from the target message.
type threadingHeaders struct {
	MessageID  string
	References []string
	InReplyTo  []string
}

// fetchThreadingHeaders fetches just the header block of one message and
// extracts its Message-ID, References, and In-Reply-To values.
func fetchThreadingHeaders(s *Session, uid uint32) (*threadingHeaders, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{Specifier: imap.HeaderSpecifier},
		Peek:         true,
	}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- s.conn.UidFetch(seqSet, items, messages)
	}()

	var target *imap.Message
	for msg := range messages {
		if msg.Uid == uid || target == nil {
			target = msg
		}
	}

	if err := <-done; err != nil {
		return nil, protoErr("fetch headers", err)
	}
	if target == nil {
		return nil, fmt.Errorf("uid %d: %w", uid, ErrNotFound)
	}

	body := target.GetBody(section)
	if body == nil {
		return nil, protoErr("fetch headers", fmt.Errorf("server returned no header section for uid %d", uid))
	}

	envelope, err := enmime.ReadEnvelope(body)
	if err != nil {
		return nil, protoErr("fetch headers", fmt.Errorf("failed to parse header block: %w", err))
	}

	return &threadingHeaders{
		MessageID:  strings.TrimSpace(envelope.GetHeader("Message-Id")),
		References: splitMessageIDList(envelope.GetHeader("References")),
		InReplyTo:  splitMessageIDList(envelope.GetHeader("In-Reply-To")),
	}, nil
}

// splitMessageIDList splits a References-style header into its individual
// angle-bracketed identifiers.
func splitMessageIDList(header string) []string {
	var ids []string
	for _, field := range strings.Fields(header) {
		field = strings.TrimSpace(field)
		if strings.HasPrefix(field, "<") && strings.HasSuffix(field, ">") {
			ids = append(ids, field)
		}
	}
	return ids
}

// FetchMessages retrieves the given uids from the session's selected mailbox
// in one round trip and parses each into a RawMessage. Messages with an
// empty Message-ID header are drafts and are dropped.
//
// Addressing uses an explicit comma-joined uid list by default: a min-max
// range silently includes any uids between the endpoints that were not
// requested, which is wrong whenever the set has gaps. The range form is
// used only after the set is verified contiguous.
func FetchMessages(s *Session, uids []uint32) ([]models.RawMessage, error) {
	if len(uids) == 0 {
		return []models.RawMessage{}, nil
	}

	mailbox := s.SelectedMailbox()
	if mailbox == "" {
		return nil, protoErr("fetch messages", fmt.Errorf("no mailbox selected"))
	}

	seqSet := buildSeqSet(uids)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchUid,
		fetchItemGmailLabels,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- s.conn.UidFetch(seqSet, items, messages)
	}()

	var result []models.RawMessage
	for imapMsg := range messages {
		msg := ParseMessage(imapMsg, mailbox, section)
		if msg == nil {
			continue
		}
		if msg.MessageID == "" {
			// Drafts have no Message-ID and never appear in a thread.
			continue
		}
		result = append(result, *msg)
	}

	if err := <-done; err != nil {
		return nil, protoErr("fetch messages", err)
	}

	return result, nil
}

// buildSeqSet addresses the uids explicitly, one by one. When the sorted set
// turns out to be gap-free the contiguous range form is used instead as a
// lower-overhead equivalent; the two address exactly the same messages.
func buildSeqSet(uids []uint32) *imap.SeqSet {
	seqSet := new(imap.SeqSet)

	sorted := make([]uint32, len(uids))
	copy(sorted, uids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if isContiguous(sorted) {
		seqSet.AddRange(sorted[0], sorted[len(sorted)-1])
		return seqSet
	}

	for _, uid := range sorted {
		seqSet.AddNum(uid)
	}
	return seqSet
}

// isContiguous reports whether a sorted uid set has no gaps or duplicates.
func isContiguous(sorted []uint32) bool {
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1]+1 {
			return false
		}
	}
	return len(sorted) > 0
}
