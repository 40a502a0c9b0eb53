package platforms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFeishuAdapterPayloadAndHeader(t *testing.T) {
	var got map[string]any
	var headerSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headerSig = r.Header.Get("X-Lark-Signature")
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	adapter := NewFeishuAdapter(NewHTTPClient(time.Second))
	err := adapter.Send(context.Background(), srv.URL, "sig-1", Message{
		Title:       "Match Found",
		Description: "x vs y",
		Fields:      []Field{{Name: "Stake", Value: "100", Inline: true}},
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if headerSig != "sig-1" {
		t.Fatalf("unexpected signature header: %s", headerSig)
	}
	if got["msg_type"] != "interactive" {
		t.Fatalf("unexpected msg_type: %v", got["msg_type"])
	}
	card := got["card"].(map[string]any)
	elements := card["elements"].([]any)
	if len(elements) != 2 || elements[1].(map[string]any)["text"] != "**Stake**: 100" {
		t.Fatalf("unexpected elements: %#v", elements)
	}
}

func TestFeishuAdapterPanelUpsertUsesPatch(t *testing.T) {
	var methods, paths []string
	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		paths = append(paths, r.URL.Path)
		if r.Method == http.MethodPatch {
			authHeader = r.Header.Get("Authorization")
		}
		if r.Method == http.MethodPost {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"message_id":"f001"}}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	endpoint := srv.URL + "/open-apis/bot/v2/hook/abc"
	adapter := NewFeishuAdapter(NewHTTPClient(time.Second))
	msg := Message{PanelKey: "match|pvp_1", Title: "t", Description: "summary"}
	secret := "sig:sig-1;bearer:token-1"
	if err := adapter.Send(context.Background(), endpoint, secret, msg); err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if err := adapter.Send(context.Background(), endpoint, secret, msg); err != nil {
		t.Fatalf("second send failed: %v", err)
	}
	adapter.ForgetPanel(endpoint, msg.PanelKey)
	if err := adapter.Send(context.Background(), endpoint, secret, msg); err != nil {
		t.Fatalf("third send failed: %v", err)
	}

	if strings.Join(methods, ",") != "POST,PATCH,POST" {
		t.Fatalf("unexpected method sequence: %v", methods)
	}
	if paths[1] != "/open-apis/im/v1/messages/f001" {
		t.Fatalf("unexpected patch path: %s", paths[1])
	}
	if authHeader != "Bearer token-1" {
		t.Fatalf("unexpected auth header: %s", authHeader)
	}
}

func TestParseFeishuSecret(t *testing.T) {
	cases := []struct {
		in, sig, bearer string
	}{
		{"", "", ""},
		{"plain", "plain", ""},
		{"sig:a;bearer:b", "a", "b"},
		{" bearer: b ", "", "b"},
	}
	for _, tc := range cases {
		sig, bearer := parseFeishuSecret(tc.in)
		if sig != tc.sig || bearer != tc.bearer {
			t.Fatalf("parseFeishuSecret(%q) = %q %q", tc.in, sig, bearer)
		}
	}
}

func TestFirstMessageID(t *testing.T) {
	if got := firstMessageID(map[string]any{"message_id": "a"}); got != "a" {
		t.Fatalf("top-level id = %q", got)
	}
	if got := firstMessageID(map[string]any{"data": map[string]any{"id": "b"}}); got != "b" {
		t.Fatalf("nested id = %q", got)
	}
	if got := firstMessageID(map[string]any{"code": 0}); got != "" {
		t.Fatalf("missing id = %q", got)
	}
}
