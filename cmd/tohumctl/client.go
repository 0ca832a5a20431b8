package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

func postJSON(apiURL, path string, payload interface{}) (io.ReadCloser, error) {
	body, _ := json.Marshal(payload)
	resp, err := http.Post(apiURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}
	return resp.Body, nil
}

func runChat(apiURL, sessionID, message string, out io.Writer) error {
	if message == "" {
		return fmt.Errorf("message cannot be empty")
	}
	body, err := postJSON(apiURL, "/api/chat", map[string]interface{}{
		"sessionId": sessionID,
		"message":   message,
		"mode":      "text",
	})
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	var turn struct {
		Reply string `json:"reply"`
	}
	if err := json.NewDecoder(body).Decode(&turn); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, turn.Reply)
	return err
}

func runRemember(apiURL, sessionID, text string, tags []string, out io.Writer) error {
	if text == "" {
		return fmt.Errorf("text cannot be empty")
	}
	payload := map[string]interface{}{"text": text, "tags": tags}
	if sessionID != "" {
		payload["sessionId"] = sessionID
	}
	body, err := postJSON(apiURL, "/api/memory/remember", payload)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	var item struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(body).Decode(&item); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "stored %s\n", item.ID)
	return err
}

func runSearch(apiURL, sessionID, query string, tags []string, topK int, out io.Writer) error {
	if query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	payload := map[string]interface{}{"query": query, "topK": topK}
	if sessionID != "" {
		payload["sessionId"] = sessionID
	}
	if len(tags) > 0 {
		payload["tags"] = tags
	}
	body, err := postJSON(apiURL, "/api/memory/search", payload)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()
	_, err = io.Copy(out, body)
	return err
}
