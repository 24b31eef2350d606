package imap

import (
	"fmt"
	"strconv"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/responses"
)

// Capability tokens gating the optional strategy layers.
const (
	// capThreadReferences advertises server-side REFERENCES threading.
	capThreadReferences = "THREAD=REFERENCES"
	// capGmailExt advertises the Gmail vendor extensions (X-GM-THRID,
	// X-GM-LABELS, X-GM-RAW).
	capGmailExt = "X-GM-EXT-1"
)

// Gmail extension fetch items.
const (
	fetchItemGmailThreadID imap.FetchItem = "X-GM-THRID"
	fetchItemGmailLabels   imap.FetchItem = "X-GM-LABELS"
)

// FetchGmailThreadID fetches the vendor-assigned numeric thread identifier
// for one message in the currently selected mailbox.
func FetchGmailThreadID(s *Session, uid uint32) (uint64, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	items := []imap.FetchItem{imap.FetchUid, fetchItemGmailThreadID}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- s.conn.UidFetch(seqSet, items, messages)
	}()

	var field interface{}
	for msg := range messages {
		if v, ok := msg.Items[fetchItemGmailThreadID]; ok {
			field = v
		}
	}

	if err := <-done; err != nil {
		return 0, protoErr("fetch thread id", err)
	}

	if field == nil {
		return 0, protoErr("fetch thread id", fmt.Errorf("server returned no %s for uid %d", fetchItemGmailThreadID, uid))
	}

	threadID, err := parseGmailThreadID(field)
	if err != nil {
		return 0, protoErr("fetch thread id", err)
	}

	return threadID, nil
}

// SearchGmailThreadID finds every message carrying the given vendor thread
// identifier in the currently selected mailbox. Draft-only folders are
// excluded from the query. Built on go-imap's raw command plumbing because
// SearchCriteria has no slot for vendor predicates.
func SearchGmailThreadID(s *Session, threadID uint64) ([]uint32, error) {
	cmd := &imap.Command{
		Name: "UID SEARCH",
		Arguments: []interface{}{
			imap.RawString("X-GM-THRID"),
			imap.RawString(strconv.FormatUint(threadID, 10)),
			imap.RawString("X-GM-RAW"),
			"-in:drafts",
		},
	}

	res := new(responses.Search)

	status, err := s.conn.Execute(cmd, res)
	if err != nil {
		return nil, protoErr("thread id search", err)
	}
	if err := status.Err(); err != nil {
		return nil, protoErr("thread id search", err)
	}

	return res.Ids, nil
}
