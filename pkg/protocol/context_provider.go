package protocol

import "context"

// ContextProvider exposes read-only conversation- and user-level context from
// the context-management collaborator, consumed by the execution context
// builder when assembling engine payloads.
type ContextProvider interface {
	ConversationContext(ctx context.Context, conversationID, tenantID string) (map[string]any, error)
	UserContext(ctx context.Context, userID, tenantID string) (map[string]any, error)
}
