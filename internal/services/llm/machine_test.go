package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMachineTranslatorQuotesReply(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"translatedText": "今天天气很好"})
	}))
	defer server.Close()

	mt, err := NewMachineTranslator(server.URL, "", "Simplified Chinese", time.Second)
	if err != nil {
		t.Fatalf("NewMachineTranslator: %v", err)
	}
	reply, err := mt.Complete(context.Background(), []Message{
		System("ignored"),
		User(`Translate:"The weather is nice today."`),
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if reply != `"今天天气很好"` {
		t.Fatalf("unexpected reply %q", reply)
	}
	if got["q"] != "The weather is nice today." || got["target"] != "zh" {
		t.Fatalf("unexpected request %v", got)
	}
}

func TestMachineTranslatorRejectsUnknownLanguage(t *testing.T) {
	if _, err := NewMachineTranslator("http://localhost", "", "Klingon", 0); err == nil {
		t.Fatal("expected error for unknown language")
	}
}

func TestMachineTranslatorSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "quota"})
	}))
	defer server.Close()

	mt, err := NewMachineTranslator(server.URL, "k", "en", time.Second)
	if err != nil {
		t.Fatalf("NewMachineTranslator: %v", err)
	}
	if _, err := mt.Translate(context.Background(), "hola"); err == nil {
		t.Fatal("expected api error")
	}
}
