package services

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestChatService(t *testing.T) (*ChatService, *MemoryService) {
	t.Helper()
	mem := newTestMemoryService(t)
	return NewChatService(mem, zerolog.Nop(), 5), mem
}

func TestIsRememberIntent(t *testing.T) {
	cases := []struct {
		message string
		want    bool
	}{
		{"hatırla: proje teslim tarihi 5 Mayıs", true},
		{"Hatırla: toplantı yarın", true},
		{"HATIRLA: büyük harf", true},
		{"hatirla: asciisiz yazım", true},
		{"remember: simple fact", true},
		{"  Remember: leading space", true},
		{"merhaba, nasılsın?", false},
		{"hatırlamak istiyorum", false},
		{"bunu hatırla: ortada tetik", false},
	}
	for _, tc := range cases {
		if got := isRememberIntent(tc.message); got != tc.want {
			t.Errorf("isRememberIntent(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}

func TestExtractRememberPayload(t *testing.T) {
	cases := []struct {
		message  string
		wantBody string
		wantTags []string
	}{
		{"hatırla: proje teslim tarihi 5 Mayıs [iş, takip]", "proje teslim tarihi 5 Mayıs", []string{"iş", "takip"}},
		{"remember: simple fact", "simple fact", []string{}},
		{"hatırla: etiketi bozuk [iş, takip", "etiketi bozuk [iş, takip", []string{}},
		{"hatırla: boş etiket []", "boş etiket", []string{}},
		{"hatırla: tek [ev]", "tek", []string{"ev"}},
	}
	for _, tc := range cases {
		body, tags := extractRememberPayload(tc.message)
		if body != tc.wantBody {
			t.Errorf("body(%q) = %q, want %q", tc.message, body, tc.wantBody)
		}
		if !reflect.DeepEqual(tags, tc.wantTags) {
			t.Errorf("tags(%q) = %#v, want %#v", tc.message, tags, tc.wantTags)
		}
	}
}

func TestHandleMessageRememberTurn(t *testing.T) {
	chat, mem := newTestChatService(t)
	ctx := context.Background()
	session := "sess-chat-remember"

	turn, err := chat.HandleMessage(ctx, session, "hatırla: kahveyi sütsüz içiyorum [kahve]", "text", nil)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if turn.Intent != IntentRemember {
		t.Errorf("intent = %q, want %q", turn.Intent, IntentRemember)
	}
	if turn.MemoryID == "" {
		t.Error("expected a stored memory id")
	}
	if !strings.HasPrefix(turn.Reply, "Not ettim (") || !strings.HasSuffix(turn.Reply, "Başka ne ekleyelim?") {
		t.Errorf("unexpected ack reply %q", turn.Reply)
	}

	items, err := mem.ListMemoryItems(ctx, &session, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d memory items, want 1", len(items))
	}
	if items[0].Text != "kahveyi sütsüz içiyorum" {
		t.Errorf("stored text = %q", items[0].Text)
	}
	if !reflect.DeepEqual(items[0].Tags, []string{"kahve"}) {
		t.Errorf("stored tags = %#v", items[0].Tags)
	}
	if items[0].Metadata["mode"] != "text" {
		t.Errorf("metadata mode = %v, want text", items[0].Metadata["mode"])
	}

	// Transcript records both sides of the turn.
	msgs, err := mem.ListMessages(ctx, session, 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want user+assistant", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("roles = %q,%q", msgs[0].Role, msgs[1].Role)
	}
	if msgs[1].ID != turn.MessageID {
		t.Errorf("assistant message id mismatch")
	}
}

func TestHandleMessageChatWithoutContext(t *testing.T) {
	chat, _ := newTestChatService(t)
	ctx := context.Background()

	turn, err := chat.HandleMessage(ctx, "sess-chat-empty", "merhaba, nasılsın?", "text", nil)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if turn.Intent != IntentChat {
		t.Errorf("intent = %q, want %q", turn.Intent, IntentChat)
	}
	if turn.Reply != "Mesajını aldım: merhaba, nasılsın?" {
		t.Errorf("reply = %q", turn.Reply)
	}
	if len(turn.Context) != 0 {
		t.Errorf("context = %#v, want empty", turn.Context)
	}
}

func TestHandleMessageChatRecallsStoredMemory(t *testing.T) {
	chat, _ := newTestChatService(t)
	ctx := context.Background()
	session := "sess-chat-recall"

	if _, err := chat.HandleMessage(ctx, session, "hatırla: kahve siparişim çekirdek latte", "text", nil); err != nil {
		t.Fatalf("remember turn: %v", err)
	}

	turn, err := chat.HandleMessage(ctx, session, "kahve siparişim neydi?", "text", nil)
	if err != nil {
		t.Fatalf("chat turn: %v", err)
	}
	if turn.Intent != IntentChat {
		t.Fatalf("intent = %q", turn.Intent)
	}
	if len(turn.Context) == 0 {
		t.Fatal("expected recalled context")
	}
	if !strings.Contains(turn.Reply, "Daha önce not aldıkların:") {
		t.Errorf("reply = %q, want recalled prefix", turn.Reply)
	}
	if !strings.Contains(turn.Reply, "kahve siparişim çekirdek latte") {
		t.Errorf("reply = %q, want recalled text inside", turn.Reply)
	}
	if !strings.Contains(turn.Reply, "kahve siparişim neydi?") {
		t.Errorf("reply = %q, want the utterance echoed", turn.Reply)
	}
}

func TestHandleMessageRejectsBlankUtterance(t *testing.T) {
	chat, _ := newTestChatService(t)
	if _, err := chat.HandleMessage(context.Background(), "sess-blank", "   ", "text", nil); err == nil {
		t.Fatal("expected validation error for blank message")
	}
}
