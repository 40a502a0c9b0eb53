package platforms

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

const discordEndpoint = "https://discord.example/api/webhooks/wid/wtoken"

func TestDiscordAdapterPayload(t *testing.T) {
	var got map[string]any
	client := newTestHTTPClient(func(r *http.Request) (*http.Response, error) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return emptyResponse(http.StatusNoContent), nil
	})

	err := NewDiscordAdapter(client).Send(context.Background(), "https://discord.example/webhook", "", Message{
		Title:       "Match Settled",
		Content:     "x beat y",
		Description: "x wins 2-1",
		Color:       12345,
		Timestamp:   "2026-01-01T00:00:00Z",
		Footer:      "agent-arena",
		Fields: []Field{
			{Name: "Stake", Value: "100", Inline: true},
			{Name: "Seed hash", Value: "abc", Inline: false},
		},
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got["content"] != "x beat y" {
		t.Fatalf("unexpected content: %v", got["content"])
	}
	embeds, ok := got["embeds"].([]any)
	if !ok || len(embeds) != 1 {
		t.Fatalf("unexpected embeds: %#v", got["embeds"])
	}
	embed := embeds[0].(map[string]any)
	if embed["description"] != "x wins 2-1" || embed["color"] != float64(12345) || embed["timestamp"] != "2026-01-01T00:00:00Z" {
		t.Fatalf("unexpected embed: %#v", embed)
	}
	if footer, ok := embed["footer"].(map[string]any); !ok || footer["text"] != "agent-arena" {
		t.Fatalf("unexpected footer: %#v", embed["footer"])
	}
	fields, ok := embed["fields"].([]any)
	if !ok || len(fields) != 2 || fields[1].(map[string]any)["inline"] != false {
		t.Fatalf("unexpected fields: %#v", embed["fields"])
	}
}

func TestDiscordAdapterPanelEditsThenForgets(t *testing.T) {
	var methods, paths []string
	client := newTestHTTPClient(func(r *http.Request) (*http.Response, error) {
		methods = append(methods, r.Method)
		paths = append(paths, r.URL.Path+"?"+r.URL.RawQuery)
		if r.Method == http.MethodPost {
			return jsonResponse(http.StatusOK, `{"id":"m123"}`), nil
		}
		return emptyResponse(http.StatusOK), nil
	})

	adapter := NewDiscordAdapter(client)
	msg := Message{PanelKey: "match|pvp_1", Title: "t", Description: "d"}
	for i := 0; i < 2; i++ {
		if err := adapter.Send(context.Background(), discordEndpoint, "", msg); err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
	}
	adapter.ForgetPanel(discordEndpoint, msg.PanelKey)
	if adapter.panels.len() != 0 {
		t.Fatal("panel id should be forgotten")
	}
	if err := adapter.Send(context.Background(), discordEndpoint, "", msg); err != nil {
		t.Fatalf("third send failed: %v", err)
	}

	if strings.Join(methods, ",") != "POST,PATCH,POST" {
		t.Fatalf("unexpected methods: %v", methods)
	}
	if !strings.Contains(paths[0], "wait=true") {
		t.Fatalf("create should wait for the message id: %s", paths[0])
	}
	if !strings.HasPrefix(paths[1], "/api/webhooks/wid/wtoken/messages/m123") {
		t.Fatalf("unexpected edit path: %s", paths[1])
	}
}

func TestDiscordAdapterRecreatesDeletedPanel(t *testing.T) {
	var methods []string
	client := newTestHTTPClient(func(r *http.Request) (*http.Response, error) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodPatch {
			return emptyResponse(http.StatusNotFound), nil
		}
		return jsonResponse(http.StatusOK, `{"id":"m`+string(rune('0'+len(methods)))+`"}`), nil
	})

	adapter := NewDiscordAdapter(client)
	msg := Message{PanelKey: "match|pvp_2", Title: "t"}
	for i := 0; i < 2; i++ {
		if err := adapter.Send(context.Background(), discordEndpoint, "", msg); err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
	}
	if strings.Join(methods, ",") != "POST,PATCH,POST" {
		t.Fatalf("unexpected methods: %v", methods)
	}
	if got := adapter.panels.get(discordEndpoint, msg.PanelKey); got != "m3" {
		t.Fatalf("panel id = %q, want m3", got)
	}
}

func TestDiscordAdapterSurfacesServerErrors(t *testing.T) {
	client := newTestHTTPClient(func(*http.Request) (*http.Response, error) {
		return emptyResponse(http.StatusInternalServerError), nil
	})
	if err := NewDiscordAdapter(client).Send(context.Background(), discordEndpoint, "", Message{Title: "t"}); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestDiscordEditURL(t *testing.T) {
	if _, ok := discordEditURL("https://discord.example/hooks/x", "m1"); ok {
		t.Fatal("non-webhook path should not produce an edit url")
	}
	got, ok := discordEditURL(discordEndpoint+"?thread_id=9", "m1")
	if !ok || got != "https://discord.example/api/webhooks/wid/wtoken/messages/m1" {
		t.Fatalf("edit url = %q %v", got, ok)
	}
}
