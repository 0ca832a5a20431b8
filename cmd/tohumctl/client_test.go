package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRunChatPrintsReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req["sessionId"] != "cli-session" {
			t.Errorf("sessionId = %v", req["sessionId"])
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"reply": "Mesajını aldım: merhaba"})
	}))
	defer srv.Close()

	var out bytes.Buffer
	if err := runChat(srv.URL, "cli-session", "merhaba", &out); err != nil {
		t.Fatalf("runChat: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "Mesajını aldım: merhaba" {
		t.Errorf("output = %q", got)
	}
}

func TestRunRememberSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Bad Request","code":400}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := runRemember(srv.URL, "cli-session", "x", nil, &out)
	if err == nil || !strings.Contains(err.Error(), "http 400") {
		t.Fatalf("err = %v, want http 400", err)
	}
}

func TestRunSearchOmitsSessionWhenGlobal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if _, ok := req["sessionId"]; ok {
			t.Error("global search must not send sessionId")
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"results": []interface{}{}, "count": 0})
	}))
	defer srv.Close()

	var out bytes.Buffer
	if err := runSearch(srv.URL, "", "kahve", nil, 5, &out); err != nil {
		t.Fatalf("runSearch: %v", err)
	}
}
