// Package agent exposes the thread-resolution engine to the platform's
// tool-calling loop. The loop itself (LLM orchestration, prompt handling)
// lives outside this repository; it consumes tools through the small
// surface defined here.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nvoss/mailmind/internal/imap"
	"github.com/nvoss/mailmind/internal/models"
)

// ThreadResolver is the engine surface the tools consume.
type ThreadResolver interface {
	ResolveThread(ctx context.Context, identifier string) (*models.EmailThread, error)
	FetchThreadByMessageID(ctx context.Context, headerValue string) (*models.EmailThread, error)
}

// ParameterSpec describes one tool parameter to the tool-calling loop.
type ParameterSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolResult is the outcome of one tool invocation.
type ToolResult struct {
	InvocationID string      `json:"invocation_id"`
	Success      bool        `json:"success"`
	Error        string      `json:"error,omitempty"`
	Data         interface{} `json:"data,omitempty"`
}

// ThreadContextTool fetches full conversation context for a message
// reference. Callers doing similarity search hand back the contextual_id
// they were given; a plain uid or Message-ID header value also works.
type ThreadContextTool struct {
	resolver ThreadResolver
}

// NewThreadContextTool creates the tool backed by the given resolver.
func NewThreadContextTool(resolver ThreadResolver) *ThreadContextTool {
	return &ThreadContextTool{resolver: resolver}
}

func (t *ThreadContextTool) Name() string { return "mail.thread_context" }

func (t *ThreadContextTool) Description() string {
	return "Fetch the complete conversation thread for an email reference. " +
		"Accepts a contextual id, a bare uid, or a Message-ID header value."
}

func (t *ThreadContextTool) Parameters() []ParameterSpec {
	return []ParameterSpec{
		{Name: "identifier", Type: "string", Description: "Contextual id, uid, or Message-ID of any message in the thread", Required: true},
	}
}

// Execute resolves the identifier argument to a full thread. Resolution
// failures are reported in the result, not as errors: the loop relays them
// to the model, which can try another reference.
func (t *ThreadContextTool) Execute(ctx context.Context, args map[string]interface{}) (*ToolResult, error) {
	result := &ToolResult{InvocationID: uuid.NewString()}

	identifier, ok := args["identifier"].(string)
	if !ok || identifier == "" {
		result.Error = "identifier is required"
		return result, nil
	}

	thread, err := t.resolver.ResolveThread(ctx, identifier)
	if err != nil {
		if errors.Is(err, imap.ErrNotFound) {
			result.Error = fmt.Sprintf("no message found for %q", identifier)
			return result, nil
		}
		return nil, err
	}

	result.Success = true
	result.Data = thread
	return result, nil
}
