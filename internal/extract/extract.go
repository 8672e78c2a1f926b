package extract

import (
	"errors"
	"fmt"

	"github.com/gyaneshwarpardhi/ngjudge/internal/event"
)

// EventType is a registered snippet.type value.
type EventType string

const (
	TypeTextMessage          EventType = "textMessageEvent"
	TypeSuperChat            EventType = "superChatEvent"
	TypeSuperSticker         EventType = "superStickerEvent"
	TypeNewSponsor           EventType = "newSponsorEvent"
	TypeMemberMilestone      EventType = "memberMilestoneChatEvent"
	TypeMembershipGifting    EventType = "membershipGiftingEvent"
	TypeGiftMembershipReward EventType = "giftMembershipReceivedEvent"
)

// textPaths maps each registered type to the keys under snippet that lead to its text.
// An empty path means the type carries no judgeable text.
var textPaths = map[EventType][]string{
	TypeTextMessage:          {"textMessageDetails", "messageText"},
	TypeSuperChat:            {"superChatDetails", "userComment"},
	TypeMemberMilestone:      {"memberMilestoneChatDetails", "userComment"},
	TypeSuperSticker:         {},
	TypeNewSponsor:           {},
	TypeMembershipGifting:    {},
	TypeGiftMembershipReward: {},
}

// ErrUnclassified matches any UnclassifiedEventTypeError via errors.Is.
var ErrUnclassified = errors.New("unclassified event type")

// UnclassifiedEventTypeError reports an event whose type has no registered text path.
type UnclassifiedEventTypeError struct {
	EventID string
	Type    string
}

func (e *UnclassifiedEventTypeError) Error() string {
	return fmt.Sprintf("event %s: unclassified event type %q", e.EventID, e.Type)
}

func (e *UnclassifiedEventTypeError) Is(target error) bool { return target == ErrUnclassified }

// Path returns the snippet key path for typ.
func Path(typ string) ([]string, bool) {
	p, ok := textPaths[EventType(typ)]
	return p, ok
}

// Text returns the literal text ev should be judged on.
// A partially absent path (e.g. a Super Chat without a comment) yields "".
func Text(ev *event.ChatEvent) (string, error) {
	path, ok := Path(ev.Type)
	if !ok {
		return "", &UnclassifiedEventTypeError{EventID: ev.ID, Type: ev.Type}
	}
	if len(path) == 0 {
		return "", nil
	}
	val, ok := event.Lookup(ev.Snippet, path)
	if !ok {
		return "", nil
	}
	s, _ := val.(string)
	return s, nil
}
