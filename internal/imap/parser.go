package imap

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"

	"github.com/nvoss/mailmind/internal/models"
)

// ParseMessage converts a fetched IMAP message into a RawMessage scoped to
// the mailbox it was fetched from. Returns nil when the server response
// carried nothing usable.
func ParseMessage(imapMsg *imap.Message, mailbox string, section *imap.BodySectionName) *models.RawMessage {
	if imapMsg == nil {
		return nil
	}

	msg := &models.RawMessage{
		UID:          imapMsg.Uid,
		Mailbox:      mailbox,
		ContextualID: EncodeContextualID(mailbox, imapMsg.Uid),
	}

	if imapMsg.Envelope != nil {
		if len(imapMsg.Envelope.From) > 0 {
			msg.From = formatAddress(imapMsg.Envelope.From[0])
		}

		msg.To = formatAddressList(imapMsg.Envelope.To)
		msg.Cc = formatAddressList(imapMsg.Envelope.Cc)
		msg.Bcc = formatAddressList(imapMsg.Envelope.Bcc)
		msg.Subject = imapMsg.Envelope.Subject
		msg.MessageID = strings.TrimSpace(imapMsg.Envelope.MessageId)
		msg.InReplyTo = splitMessageIDList(imapMsg.Envelope.InReplyTo)

		if !imapMsg.Envelope.Date.IsZero() {
			date := imapMsg.Envelope.Date
			msg.SentAt = &date
		}
	}

	if field, ok := imapMsg.Items[fetchItemGmailLabels]; ok {
		msg.Labels = parseGmailLabels(field)
	}

	msg.IsSent = isSentMessage(mailbox, msg.Labels)

	if section != nil {
		if bodyReader := imapMsg.GetBody(section); bodyReader != nil {
			if err := parseBody(bodyReader, msg); err != nil {
				// Keep the headers even when the body is unparseable.
				log.Printf("Warning: failed to parse body of uid %d in %s: %v", imapMsg.Uid, mailbox, err)
			}
		}
	}

	return msg
}

// parseBody extracts the best-effort text body and threading headers using
// enmime.
func parseBody(bodyReader io.Reader, msg *models.RawMessage) error {
	envelope, err := enmime.ReadEnvelope(bodyReader)
	if err != nil {
		return fmt.Errorf("failed to parse email body: %w", err)
	}

	msg.BodyText = envelope.Text
	msg.CleanedBody = cleanReplyBody(envelope.Text)

	if refs := splitMessageIDList(envelope.GetHeader("References")); len(refs) > 0 {
		msg.References = refs
	}
	if msg.MessageID == "" {
		msg.MessageID = strings.TrimSpace(envelope.GetHeader("Message-Id"))
	}
	if len(msg.InReplyTo) == 0 {
		msg.InReplyTo = splitMessageIDList(envelope.GetHeader("In-Reply-To"))
	}

	return nil
}

// cleanReplyBody strips quoted reply text and attribution lines, leaving
// just the new content of the message.
func cleanReplyBody(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ">") {
			continue
		}
		if isAttributionLine(trimmed) {
			break
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// isAttributionLine recognizes the common "On <date>, <sender> wrote:"
// separator that precedes quoted reply text.
func isAttributionLine(line string) bool {
	if strings.HasPrefix(line, "On ") && strings.HasSuffix(line, "wrote:") {
		return true
	}
	return line == "-----Original Message-----"
}

// isSentMessage reports whether a message was sent by the account owner,
// judged from its mailbox and label set.
func isSentMessage(mailbox string, labels []string) bool {
	if mailbox == SentMailbox {
		return true
	}
	for _, label := range labels {
		if label == `\Sent` {
			return true
		}
	}
	return false
}

// formatAddress formats an IMAP address to a string.
func formatAddress(address *imap.Address) string {
	if address == nil {
		return ""
	}

	if address.MailboxName == "" && address.HostName == "" {
		return ""
	}

	if address.PersonalName != "" {
		return fmt.Sprintf("%s <%s@%s>", address.PersonalName, address.MailboxName, address.HostName)
	}

	return fmt.Sprintf("%s@%s", address.MailboxName, address.HostName)
}

// formatAddressList formats a list of IMAP addresses.
func formatAddressList(addresses []*imap.Address) []string {
	result := make([]string, 0, len(addresses))
	for _, address := range addresses {
		formatted := formatAddress(address)
		if formatted != "" {
			result = append(result, formatted)
		}
	}
	return result
}
