package imap

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/emersion/go-imap"
	sortthread "github.com/emersion/go-imap-sortthread"
)

// errMailboxRestore marks the one strategy failure promoted to fatal:
// the vendor lookup switched mailboxes, failed, and could not switch back.
// Continuing would leave the session on a selection the caller never asked
// for, so the chain stops instead of trying further layers.
var errMailboxRestore = errors.New("failed to restore selected mailbox")

// ThreadResolution is the outcome of the strategy chain: the uids making up
// the conversation and the mailbox they are scoped to. GmailThreadID is set
// only when the vendor lookup produced the thread.
type ThreadResolution struct {
	UIDs          []uint32
	Mailbox       string
	GmailThreadID uint64
}

// ThreadIDString renders the thread identifier for assembly, or "" when the
// thread was not resolved through the vendor extension.
func (r *ThreadResolution) ThreadIDString() string {
	if r.GmailThreadID == 0 {
		return ""
	}
	return strconv.FormatUint(r.GmailThreadID, 10)
}

// ResolveThreadUIDs runs the three-layer strategy chain against a session
// whose selected mailbox contains the target uid. Layers are tried in order
// until one succeeds; individual failures are logged and swallowed because
// they are expected (capability absent, header missing, mailbox unknown are
// not transient, so there are no per-layer retries). The terminal fallback
// is a one-message thread anchored at the original mailbox.
func ResolveThreadUIDs(s *Session, mailbox string, uid uint32) (*ThreadResolution, error) {
	if s.HasCapability(capThreadReferences) {
		res, err := threadByReferences(s, mailbox, uid)
		if err == nil {
			return res, nil
		}
		log.Printf("Warning: reference-graph threading failed for uid %d in %s: %v", uid, mailbox, err)
	}

	if s.HasCapability(capGmailExt) {
		res, err := threadByGmailThreadID(s, mailbox, uid)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, errMailboxRestore) {
			// Cannot safely continue on an unknown selection. Surface the
			// target as a single-message thread rather than risk silent
			// misbehavior in later layers.
			log.Printf("Warning: %v; degrading uid %d to a single-message thread", err, uid)
			return &ThreadResolution{UIDs: []uint32{uid}, Mailbox: mailbox}, nil
		}
		log.Printf("Warning: vendor thread-id lookup failed for uid %d in %s: %v", uid, mailbox, err)
	}

	return threadByHeaders(s, mailbox, uid)
}

// threadByReferences issues the server-side UID THREAD command over the
// selected mailbox and returns the group containing the target, verbatim.
func threadByReferences(s *Session, mailbox string, uid uint32) (*ThreadResolution, error) {
	threads, err := s.conn.UidThread(sortthread.References, imap.NewSearchCriteria())
	if err != nil {
		return nil, protoErr("thread command", err)
	}

	for _, thread := range threads {
		group := flattenThread(thread)
		for _, member := range group {
			if member == uid {
				return &ThreadResolution{UIDs: group, Mailbox: mailbox}, nil
			}
		}
	}

	return nil, fmt.Errorf("uid %d not present in any thread group", uid)
}

// flattenThread collects every uid in a thread tree, root first.
func flattenThread(thread *sortthread.Thread) []uint32 {
	if thread == nil {
		return nil
	}

	uids := []uint32{thread.Id}
	for _, child := range thread.Children {
		uids = append(uids, flattenThread(child)...)
	}
	return uids
}

// threadByGmailThreadID fetches the vendor thread identifier for the target,
// switches to the all-mail archive, and searches for every message carrying
// that identifier. On any failure after the switch the previous selection is
// restored; failing that, errMailboxRestore is returned and the chain stops.
func threadByGmailThreadID(s *Session, mailbox string, uid uint32) (*ThreadResolution, error) {
	threadID, err := FetchGmailThreadID(s, uid)
	if err != nil {
		return nil, err
	}

	if err := s.Select(AllMailMailbox, true); err != nil {
		// A failed SELECT discards the previous selection too.
		return nil, restoreOrFatal(s, mailbox, err)
	}

	uids, err := SearchGmailThreadID(s, threadID)
	if err != nil {
		return nil, restoreOrFatal(s, mailbox, err)
	}
	if len(uids) == 0 {
		return nil, restoreOrFatal(s, mailbox, fmt.Errorf("no messages carry thread id %d", threadID))
	}

	return &ThreadResolution{UIDs: uids, Mailbox: AllMailMailbox, GmailThreadID: threadID}, nil
}

// restoreOrFatal reselects the mailbox that was current before the vendor
// layer began. Callers and later layers assume mailbox state is unchanged on
// failure, so an unrestorable selection upgrades the original error to fatal.
func restoreOrFatal(s *Session, mailbox string, cause error) error {
	if err := s.Select(mailbox, true); err != nil {
		return fmt.Errorf("%w after %v: %v", errMailboxRestore, cause, err)
	}
	return cause
}

// threadByHeaders reconstructs the thread client-side from the target's own
// Message-ID, References, and In-Reply-To headers. Universal fallback: needs
// no capability. An empty search yields the degenerate one-message thread.
func threadByHeaders(s *Session, mailbox string, uid uint32) (*ThreadResolution, error) {
	single := &ThreadResolution{UIDs: []uint32{uid}, Mailbox: mailbox}

	target, err := fetchThreadingHeaders(s, uid)
	if err != nil {
		log.Printf("Warning: could not fetch threading headers for uid %d: %v", uid, err)
		return single, nil
	}

	candidates := make([]string, 0, len(target.References)+len(target.InReplyTo)+1)
	if target.MessageID != "" {
		candidates = append(candidates, target.MessageID)
	}
	candidates = append(candidates, target.References...)
	candidates = append(candidates, target.InReplyTo...)

	if len(candidates) == 0 {
		return single, nil
	}

	criteria := buildHeaderCriteria(target.MessageID, candidates)

	uids, err := s.conn.UidSearch(criteria)
	if err != nil {
		log.Printf("Warning: header reconstruction search failed for uid %d: %v", uid, err)
		return single, nil
	}

	merged := dedupeUIDs(append(uids, uid))
	if len(merged) == 0 {
		return single, nil
	}

	return &ThreadResolution{UIDs: merged, Mailbox: mailbox}, nil
}

// buildHeaderCriteria joins header-equality clauses with logical OR: a
// Message-ID or References match for every candidate, plus a "References
// contains the target's own Message-ID" clause to catch replies.
func buildHeaderCriteria(targetMessageID string, candidates []string) *imap.SearchCriteria {
	var clauses []*imap.SearchCriteria

	for _, candidate := range candidates {
		byMessageID := imap.NewSearchCriteria()
		byMessageID.Header.Add("Message-Id", candidate)
		clauses = append(clauses, byMessageID)

		byReferences := imap.NewSearchCriteria()
		byReferences.Header.Add("References", candidate)
		clauses = append(clauses, byReferences)
	}

	if targetMessageID != "" {
		replies := imap.NewSearchCriteria()
		replies.Header.Add("In-Reply-To", targetMessageID)
		clauses = append(clauses, replies)
	}

	return orCriteria(clauses)
}

// orCriteria folds a clause list into go-imap's pairwise Or representation.
func orCriteria(clauses []*imap.SearchCriteria) *imap.SearchCriteria {
	if len(clauses) == 0 {
		return imap.NewSearchCriteria()
	}

	result := clauses[0]
	for _, clause := range clauses[1:] {
		combined := imap.NewSearchCriteria()
		combined.Or = [][2]*imap.SearchCriteria{{result, clause}}
		result = combined
	}
	return result
}

func dedupeUIDs(uids []uint32) []uint32 {
	seen := make(map[uint32]bool, len(uids))
	result := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		if !seen[uid] {
			seen[uid] = true
			result = append(result, uid)
		}
	}
	return result
}
