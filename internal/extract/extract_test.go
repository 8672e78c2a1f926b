package extract_test

import (
	"errors"
	"testing"

	"github.com/gyaneshwarpardhi/ngjudge/internal/event"
	"github.com/gyaneshwarpardhi/ngjudge/internal/extract"
)

func makeEvent(typ string, snippet map[string]interface{}) *event.ChatEvent {
	if snippet == nil {
		snippet = map[string]interface{}{}
	}
	snippet["type"] = typ
	return &event.ChatEvent{ID: "evt-1", Type: typ, Snippet: snippet}
}

func TestText(t *testing.T) {
	cases := []struct {
		name string
		ev   *event.ChatEvent
		want string
	}{
		{
			name: "text message",
			ev: makeEvent("textMessageEvent", map[string]interface{}{
				"textMessageDetails": map[string]interface{}{"messageText": "hello"},
			}),
			want: "hello",
		},
		{
			name: "super chat with comment",
			ev: makeEvent("superChatEvent", map[string]interface{}{
				"superChatDetails": map[string]interface{}{"userComment": "thanks!", "amountMicros": "1000000"},
			}),
			want: "thanks!",
		},
		{
			name: "super chat without comment",
			ev: makeEvent("superChatEvent", map[string]interface{}{
				"superChatDetails": map[string]interface{}{"amountMicros": "1000000"},
			}),
			want: "",
		},
		{
			name: "super chat without details",
			ev:   makeEvent("superChatEvent", nil),
			want: "",
		},
		{
			name: "new sponsor carries no text",
			ev:   makeEvent("newSponsorEvent", map[string]interface{}{"displayMessage": "welcome!"}),
			want: "",
		},
		{
			name: "sticker carries no text",
			ev: makeEvent("superStickerEvent", map[string]interface{}{
				"superStickerDetails": map[string]interface{}{
					"superStickerMetadata": map[string]interface{}{"altText": "cat"},
				},
			}),
			want: "",
		},
		{
			name: "non-string leaf",
			ev: makeEvent("textMessageEvent", map[string]interface{}{
				"textMessageDetails": map[string]interface{}{"messageText": float64(3)},
			}),
			want: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extract.Text(tc.ev)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Text() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestText_Unclassified(t *testing.T) {
	ev := makeEvent("pollEvent", nil)
	_, err := extract.Text(ev)
	if err == nil {
		t.Fatal("expected error for unregistered type")
	}
	if !errors.Is(err, extract.ErrUnclassified) {
		t.Errorf("error should match ErrUnclassified: %v", err)
	}
	var ue *extract.UnclassifiedEventTypeError
	if !errors.As(err, &ue) {
		t.Fatalf("error should be *UnclassifiedEventTypeError, got %T", err)
	}
	if ue.EventID != "evt-1" || ue.Type != "pollEvent" {
		t.Errorf("unexpected error fields: %+v", ue)
	}
}

func TestPath(t *testing.T) {
	if _, ok := extract.Path("textMessageEvent"); !ok {
		t.Errorf("textMessageEvent should have a path")
	}
	if _, ok := extract.Path(""); ok {
		t.Errorf("empty type should have no path")
	}
	if p, ok := extract.Path("newSponsorEvent"); !ok || len(p) != 0 {
		t.Errorf("newSponsorEvent should have an empty path, got %v %v", p, ok)
	}
}
