package imap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
)

// This file centralizes every assumption about the loosely-structured
// Gmail extension fields. go-imap hands back unknown FETCH items as raw
// interface{} fields: sometimes decoded lists, sometimes the textual wire
// form. Nothing outside this file may parse those shapes.

// parseGmailThreadID extracts the numeric X-GM-THRID value from a raw fetch
// item field.
func parseGmailThreadID(v interface{}) (uint64, error) {
	switch field := v.(type) {
	case string:
		return strconv.ParseUint(strings.TrimSpace(field), 10, 64)
	case imap.RawString:
		return strconv.ParseUint(strings.TrimSpace(string(field)), 10, 64)
	case uint64:
		return field, nil
	case uint32:
		return uint64(field), nil
	case int64:
		if field < 0 {
			return 0, fmt.Errorf("negative thread id %d", field)
		}
		return uint64(field), nil
	default:
		return 0, fmt.Errorf("unexpected thread id field type %T", v)
	}
}

// parseGmailLabels extracts the X-GM-LABELS value from a raw fetch item
// field. The field arrives either as an already-decoded list or as the
// textual wire form, a parenthesized list of quoted tokens.
func parseGmailLabels(v interface{}) []string {
	switch field := v.(type) {
	case []interface{}:
		labels := make([]string, 0, len(field))
		for _, item := range field {
			switch label := item.(type) {
			case string:
				labels = append(labels, unescapeLabel(label))
			case imap.RawString:
				labels = append(labels, unescapeLabel(string(label)))
			}
		}
		return labels
	case string:
		return tokenizeLabelList(field)
	case imap.RawString:
		return tokenizeLabelList(string(field))
	default:
		return nil
	}
}

// tokenizeLabelList splits the textual form of a label list into tokens.
// Tokens are space-separated; a token may be quoted, in which case it can
// contain spaces and backslash-escaped characters.
func tokenizeLabelList(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "(")
	raw = strings.TrimSuffix(raw, ")")

	var tokens []string
	var current strings.Builder
	inQuotes := false
	escaped := false
	hasToken := false

	flush := func() {
		if hasToken {
			tokens = append(tokens, unescapeLabel(current.String()))
			current.Reset()
			hasToken = false
		}
	}

	for _, r := range raw {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && inQuotes:
			escaped = true
			hasToken = true
		case r == '"':
			inQuotes = !inQuotes
			hasToken = true
		case r == ' ' && !inQuotes:
			flush()
		default:
			current.WriteRune(r)
			hasToken = true
		}
	}
	flush()

	return tokens
}

// unescapeLabel collapses doubled escape characters left over from the wire
// encoding, so "\\Inbox" becomes "\Inbox".
func unescapeLabel(label string) string {
	return strings.ReplaceAll(label, `\\`, `\`)
}
