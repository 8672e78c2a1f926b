package event

import "fmt"

// ChatEvent is one captured live chat message resource.
// Raw keeps the original record so it can be re-emitted with verdict fields attached.
type ChatEvent struct {
	ID             string                 `json:"id"`
	Type           string                 `json:"type"` // snippet.type: "textMessageEvent", "superChatEvent", etc.
	ChannelID      string                 `json:"channel_id"`
	ChannelURL     string                 `json:"channel_url"`
	DisplayName    string                 `json:"display_name"`
	DisplayMessage string                 `json:"display_message"`
	Snippet        map[string]interface{} `json:"-"` // type-dependent payload
	Raw            map[string]interface{} `json:"-"`
}

// FromRaw builds a ChatEvent from a decoded liveChatMessage item.
// Only the id is mandatory; every other field degrades to an empty value.
func FromRaw(raw map[string]interface{}) (*ChatEvent, error) {
	id, _ := raw["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("event: item without id")
	}
	ev := &ChatEvent{ID: id, Raw: raw}
	if snippet, ok := raw["snippet"].(map[string]interface{}); ok {
		ev.Snippet = snippet
		ev.Type, _ = snippet["type"].(string)
		ev.DisplayMessage, _ = snippet["displayMessage"].(string)
	}
	if author, ok := raw["authorDetails"].(map[string]interface{}); ok {
		ev.ChannelID, _ = author["channelId"].(string)
		ev.ChannelURL, _ = author["channelUrl"].(string)
		ev.DisplayName, _ = author["displayName"].(string)
	}
	return ev, nil
}

// Lookup walks path through nested maps starting at m.
// It reports false when any key is absent or an intermediate value is not a map.
func Lookup(m map[string]interface{}, path []string) (interface{}, bool) {
	if m == nil || len(path) == 0 {
		return nil, false
	}
	val, ok := m[path[0]]
	if !ok {
		return nil, false
	}
	if len(path) == 1 {
		return val, true
	}
	sub, ok := val.(map[string]interface{})
	if !ok {
		return nil, false
	}
	return Lookup(sub, path[1:])
}
