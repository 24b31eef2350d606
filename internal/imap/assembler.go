package imap

import (
	"sort"
	"time"

	"github.com/nvoss/mailmind/internal/models"
)

// AssembleThread turns fetched messages into an ordered conversation.
// Messages are deduplicated by (mailbox, uid) and sorted ascending by
// normalized date, uid as tiebreak. Participants are the union of
// from/to/cc addresses; folders are the union of mailbox names and label
// sets. When threadID is empty the root message's Message-ID is used.
func AssembleThread(messages []models.RawMessage, threadID string) *models.EmailThread {
	deduped := dedupeMessages(messages)

	sort.Slice(deduped, func(i, j int) bool {
		di, dj := normalizedDate(&deduped[i]), normalizedDate(&deduped[j])
		if di != dj {
			return di < dj
		}
		return deduped[i].UID < deduped[j].UID
	})

	if threadID == "" && len(deduped) > 0 {
		threadID = deduped[0].MessageID
	}

	return &models.EmailThread{
		ThreadID:     threadID,
		Messages:     deduped,
		Participants: collectParticipants(deduped),
		Folders:      collectFolders(deduped),
	}
}

func dedupeMessages(messages []models.RawMessage) []models.RawMessage {
	type key struct {
		mailbox string
		uid     uint32
	}

	seen := make(map[key]bool, len(messages))
	result := make([]models.RawMessage, 0, len(messages))
	for _, msg := range messages {
		k := key{mailbox: msg.Mailbox, uid: msg.UID}
		if seen[k] {
			continue
		}
		seen[k] = true
		result = append(result, msg)
	}
	return result
}

// normalizedDate renders the declared date in a form whose lexicographic
// order matches chronological order. The raw Date header is not sortable as
// free text, so the parsed time is re-rendered as RFC 3339 in UTC.
func normalizedDate(msg *models.RawMessage) string {
	if msg.SentAt == nil {
		return ""
	}
	return msg.SentAt.UTC().Format(time.RFC3339)
}

func collectParticipants(messages []models.RawMessage) []string {
	set := make(map[string]bool)
	for _, msg := range messages {
		if msg.From != "" {
			set[msg.From] = true
		}
		for _, addr := range msg.To {
			set[addr] = true
		}
		for _, addr := range msg.Cc {
			set[addr] = true
		}
	}
	return sortedKeys(set)
}

func collectFolders(messages []models.RawMessage) []string {
	set := make(map[string]bool)
	for _, msg := range messages {
		if msg.Mailbox != "" {
			set[msg.Mailbox] = true
		}
		for _, label := range msg.Labels {
			set[label] = true
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
