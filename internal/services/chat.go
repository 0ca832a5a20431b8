package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tohum-ai/tohum/internal/model"
)

// Intent labels attached to a handled turn.
const (
	IntentRemember = "remember"
	IntentChat     = "chat"
)

// rememberTriggers are matched as prefixes of the lower-cased utterance.
// Both the dotted and dotless Turkish spelling are accepted because ASCII
// lower-casing maps "HATIRLA" to "hatirla".
var rememberTriggers = []string{"hatırla:", "hatirla:", "remember:"}

// ChatTurn is the outcome of one handled utterance.
type ChatTurn struct {
	Reply         string            `json:"reply"`
	Intent        string            `json:"intent"`
	UserMessageID string            `json:"userMessageId"`
	MessageID     string            `json:"messageId"`
	MemoryID      string            `json:"memoryId,omitempty"`
	Context       []model.MemoryHit `json:"context"`
}

// ChatService routes utterances: remember-triggered ones become memory
// writes, everything else becomes a context-grounded chat reply. Every
// turn, either way, is recorded as a user message plus an assistant
// message in the session transcript.
type ChatService struct {
	memory *MemoryService
	log    zerolog.Logger
	topK   int
}

func NewChatService(memory *MemoryService, log zerolog.Logger, topK int) *ChatService {
	if topK <= 0 {
		topK = 5
	}
	return &ChatService{memory: memory, log: log, topK: topK}
}

// HandleMessage processes one utterance inside sessionID. mode is free-form
// caller context ("text", "voice") carried into memory metadata.
func (s *ChatService) HandleMessage(ctx context.Context, sessionID, message, mode string, userID *string) (*ChatTurn, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("handle_message: empty message: %w", model.ErrValidation)
	}
	if err := s.memory.EnsureSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	userMsg, err := s.memory.AppendMessage(ctx, sessionID, model.RoleUser, &message, nil)
	if err != nil {
		return nil, err
	}

	turn := &ChatTurn{UserMessageID: userMsg.ID, Context: []model.MemoryHit{}}
	if isRememberIntent(message) {
		turn.Intent = IntentRemember
		if err := s.handleRemember(ctx, sessionID, message, mode, turn); err != nil {
			return nil, err
		}
	} else {
		turn.Intent = IntentChat
		if err := s.handleChat(ctx, sessionID, message, turn); err != nil {
			return nil, err
		}
	}

	reply := turn.Reply
	assistantMsg, err := s.memory.AppendMessage(ctx, sessionID, model.RoleAssistant, &reply, nil)
	if err != nil {
		return nil, err
	}
	turn.MessageID = assistantMsg.ID
	return turn, nil
}

func (s *ChatService) handleRemember(ctx context.Context, sessionID, message, mode string, turn *ChatTurn) error {
	payload, tags := extractRememberPayload(message)
	meta := map[string]interface{}{"source": defaultSource}
	if mode != "" {
		meta["mode"] = mode
	}
	item, err := s.memory.Remember(ctx, RememberRequest{
		Text:      payload,
		Tags:      tags,
		Metadata:  meta,
		SessionID: &sessionID,
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("sessionId", sessionID).Str("memoryId", item.ID).
		Strs("tags", tags).Msg("stored memory from chat")
	turn.MemoryID = item.ID
	turn.Reply = fmt.Sprintf("Not ettim (%s…). Başka ne ekleyelim?", shortID(item.ID))
	return nil
}

func (s *ChatService) handleChat(ctx context.Context, sessionID, message string, turn *ChatTurn) error {
	hits, err := s.memory.SearchMemory(ctx, SearchRequest{
		Query:     message,
		Limit:     s.topK,
		SessionID: &sessionID,
	})
	if err != nil {
		return err
	}
	turn.Context = hits
	turn.Reply = composeReply(message, hits)
	return nil
}

// isRememberIntent reports whether the utterance starts with a remember
// trigger, case-insensitively.
func isRememberIntent(message string) bool {
	normalized := strings.ToLower(strings.TrimSpace(message))
	for _, trigger := range rememberTriggers {
		if strings.HasPrefix(normalized, trigger) {
			return true
		}
	}
	return false
}

// extractRememberPayload strips the trigger prefix and parses an optional
// trailing "[tag1, tag2]" block. A malformed bracket block degrades to the
// whole body with no tags; so does a body that would be emptied by the
// strip.
func extractRememberPayload(message string) (string, []string) {
	body := strings.TrimSpace(message)
	if i := strings.Index(body, ":"); i >= 0 {
		body = strings.TrimSpace(body[i+1:])
	}
	tags := []string{}
	if strings.HasSuffix(body, "]") {
		if i := strings.LastIndex(body, "["); i >= 0 {
			for _, t := range strings.Split(strings.Trim(body[i+1:], "[] "), ",") {
				if t = strings.TrimSpace(t); t != "" {
					tags = append(tags, t)
				}
			}
			if stripped := strings.TrimSpace(body[:i]); stripped != "" {
				body = stripped
			} else {
				tags = []string{}
			}
		}
	}
	return body, tags
}

// composeReply builds the assistant text: an echo when nothing is recalled,
// otherwise the top recalled texts followed by the utterance.
func composeReply(message string, hits []model.MemoryHit) string {
	if len(hits) == 0 {
		return fmt.Sprintf("Mesajını aldım: %s", message)
	}
	n := len(hits)
	if n > 2 {
		n = 2
	}
	texts := make([]string, 0, n)
	for _, h := range hits[:n] {
		texts = append(texts, h.Text)
	}
	return fmt.Sprintf("Daha önce not aldıkların: %s. Sorunla ilgili birlikte düşünelim: %s",
		strings.Join(texts, "; "), message)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
