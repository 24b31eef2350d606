package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/nvoss/mailmind/internal/config"
	"github.com/nvoss/mailmind/internal/imap"
	"github.com/nvoss/mailmind/internal/models"
)

func main() {
	identifier := flag.String("id", "", "contextual id, bare uid, or Message-ID of a message in the thread")
	messageID := flag.String("message-id", "", "Message-ID header value to resolve across mailboxes")
	flag.Parse()

	if *identifier == "" && *messageID == "" {
		log.Fatal("Error: either -id or -message-id is required")
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	resolver := imap.NewResolver(cfg)
	ctx := context.Background()

	thread, err := resolveRequested(ctx, resolver, *identifier, *messageID)
	if err != nil {
		log.Fatalf("Failed to resolve thread: %v", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(thread); err != nil {
		log.Fatalf("Failed to encode thread: %v", err)
	}
}

func resolveRequested(ctx context.Context, resolver *imap.Resolver, identifier, messageID string) (*models.EmailThread, error) {
	if identifier != "" {
		return resolver.ResolveThread(ctx, identifier)
	}
	return resolver.FetchThreadByMessageID(ctx, messageID)
}
