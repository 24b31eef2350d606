package imap

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nvoss/mailmind/internal/config"
	"github.com/nvoss/mailmind/internal/models"
)

// CredentialsProvider supplies the endpoint and credentials used to acquire
// sessions. The config package provides the production implementation.
type CredentialsProvider interface {
	IMAPCredentials() config.Credentials
}

// Resolver answers the one question the engine exists for: given a
// reference to one email, what is the complete, ordered, deduplicated set
// of messages in the same conversation, and which mailbox do they live in.
//
// Every resolution runs on its own exclusively-owned session. The protocol
// connection is single-threaded and carries hidden selected-mailbox state,
// so sessions are never shared or pooled.
type Resolver struct {
	provider CredentialsProvider
}

// NewResolver creates a resolver backed by the given credentials provider.
func NewResolver(provider CredentialsProvider) *Resolver {
	return &Resolver{provider: provider}
}

// ResolveThread resolves an external identifier (contextual id, bare uid,
// or Message-ID header value) to its full conversation thread. Returns
// ErrNotFound when the identifier matches no message.
func (r *Resolver) ResolveThread(ctx context.Context, identifier string) (*models.EmailThread, error) {
	return r.resolve(ctx, ParseIdentifier(identifier))
}

// FetchThreadByMessageID resolves a protocol Message-ID header value to its
// full conversation thread, searching the candidate mailboxes in order.
func (r *Resolver) FetchThreadByMessageID(ctx context.Context, headerValue string) (*models.EmailThread, error) {
	return r.resolve(ctx, MessageIdentifier{Kind: KindMessageID, MessageID: headerValue})
}

// ResolveThreads resolves several identifiers concurrently, one session per
// identifier. Identifiers that resolve to nothing leave a nil slot; any
// other failure cancels the remaining work.
func (r *Resolver) ResolveThreads(ctx context.Context, identifiers []string) ([]*models.EmailThread, error) {
	threads := make([]*models.EmailThread, len(identifiers))

	g, ctx := errgroup.WithContext(ctx)
	for i, identifier := range identifiers {
		i, identifier := i, identifier
		g.Go(func() error {
			thread, err := r.ResolveThread(ctx, identifier)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					return nil
				}
				return fmt.Errorf("failed to resolve %q: %w", identifier, err)
			}
			threads[i] = thread
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return threads, nil
}

func (r *Resolver) resolve(ctx context.Context, id MessageIdentifier) (*models.EmailThread, error) {
	var thread *models.EmailThread

	err := WithSession(r.provider.IMAPCredentials(), func(s *Session) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		mailbox, uid, err := ResolveIdentifier(s, id)
		if err != nil {
			return err
		}

		if s.SelectedMailbox() != mailbox {
			if err := s.Select(mailbox, true); err != nil {
				return err
			}
		}

		resolution, err := ResolveThreadUIDs(s, mailbox, uid)
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		// The chain may have moved the session (vendor lookup) or lost the
		// selection (restore failure); fetch against the resolution's own
		// mailbox explicitly.
		if s.SelectedMailbox() != resolution.Mailbox {
			if err := s.Select(resolution.Mailbox, true); err != nil {
				return err
			}
		}

		messages, err := FetchMessages(s, resolution.UIDs)
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			return ErrNotFound
		}

		thread = AssembleThread(messages, resolution.ThreadIDString())
		return nil
	})
	if err != nil {
		return nil, err
	}

	return thread, nil
}
