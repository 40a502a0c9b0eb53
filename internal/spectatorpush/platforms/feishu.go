package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

type FeishuAdapter struct {
	client *HTTPClient
	panels *panelIDs
}

func NewFeishuAdapter(client *HTTPClient) *FeishuAdapter {
	return &FeishuAdapter{client: client, panels: newPanelIDs()}
}

func (a *FeishuAdapter) Name() string { return "feishu" }

// Send posts an interactive card. secret is either a bare signature or
// "sig:<signature>;bearer:<token>", the bearer token being needed to edit
// panel messages.
func (a *FeishuAdapter) Send(ctx context.Context, endpoint, secret string, msg Message) error {
	signature, bearer := parseFeishuSecret(secret)
	headers := map[string]string{}
	if signature != "" {
		headers["X-Lark-Signature"] = signature
	}
	payload := feishuPayload(msg)
	if strings.TrimSpace(msg.PanelKey) == "" {
		return a.client.PostJSON(ctx, endpoint, headers, payload)
	}
	if msgID := a.panels.get(endpoint, msg.PanelKey); msgID != "" {
		if editURL, ok := feishuEditURL(endpoint, msgID); ok {
			patchHeaders := map[string]string{}
			if bearer != "" {
				patchHeaders["Authorization"] = "Bearer " + bearer
			}
			status, _, err := a.client.SendJSON(ctx, http.MethodPatch, editURL, patchHeaders, payload)
			if err == nil || status != http.StatusNotFound {
				return err
			}
		}
	}
	_, body, err := a.client.SendJSON(ctx, http.MethodPost, endpoint, headers, payload)
	if err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return err
	}
	msgID := firstMessageID(raw)
	if msgID == "" {
		return errors.New("feishu create message missing id")
	}
	a.panels.set(endpoint, msg.PanelKey, msgID)
	return nil
}

func (a *FeishuAdapter) ForgetPanel(endpoint, panelKey string) {
	a.panels.forget(endpoint, panelKey)
}

func feishuPayload(msg Message) map[string]any {
	lead := msg.Description
	if lead == "" {
		lead = msg.Content
	}
	elements := []map[string]string{{"tag": "markdown", "text": lead}}
	for _, f := range msg.Fields {
		elements = append(elements, map[string]string{
			"tag":  "markdown",
			"text": "**" + f.Name + "**: " + f.Value,
		})
	}
	return map[string]any{
		"msg_type": "interactive",
		"card": map[string]any{
			"header": map[string]any{
				"title":    map[string]any{"tag": "plain_text", "content": msg.Title},
				"template": "blue",
			},
			"elements": elements,
		},
	}
}

func parseFeishuSecret(secret string) (signature, bearer string) {
	s := strings.TrimSpace(secret)
	if s == "" {
		return "", ""
	}
	parts := strings.Split(s, ";")
	for _, p := range parts {
		p = strings.TrimSpace(p)
		switch {
		case strings.HasPrefix(p, "sig:"):
			signature = strings.TrimSpace(strings.TrimPrefix(p, "sig:"))
		case strings.HasPrefix(p, "bearer:"):
			bearer = strings.TrimSpace(strings.TrimPrefix(p, "bearer:"))
		case len(parts) == 1:
			signature = p
		}
	}
	return signature, bearer
}

func feishuEditURL(endpoint, msgID string) (string, bool) {
	if strings.TrimSpace(msgID) == "" {
		return "", false
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false
	}
	u.Path = "/open-apis/im/v1/messages/" + msgID
	u.RawQuery = ""
	return u.String(), true
}

func firstMessageID(raw map[string]any) string {
	for _, m := range []map[string]any{raw, asObject(raw["data"])} {
		for _, k := range []string{"message_id", "id"} {
			if v, ok := m[k].(string); ok && strings.TrimSpace(v) != "" {
				return v
			}
		}
	}
	return ""
}

func asObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
