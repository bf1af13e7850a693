// Package domain contains core concepts of the presence layer.
// This file defines the chat message as it travels through the router.
// Messages are never stored: the payload is forwarded verbatim.
package domain

import (
	"encoding/json"

	"github.com/samber/lo"
)

type MessageRoom struct {
	ID      RoomID   `json:"id"`
	Members []Member `json:"members" validate:"required,min=1,dive"`
}

// NewMessage carries the room's already-resolved member list. Raw keeps the
// exact bytes received so that recipients get the payload untouched,
// including fields this package knows nothing about.
type NewMessage struct {
	Room    MessageRoom     `json:"room"`
	Sender  Member          `json:"sender"`
	Content string          `json:"content"`
	Raw     json.RawMessage `json:"-"`
}

func (NewMessage) Kind() InboundKind { return KindNewMessage }

// MemberIDs returns the distinct member identities, in order of first appearance.
func (m NewMessage) MemberIDs() []UserID {
	return lo.Uniq(lo.Map(m.Room.Members, func(item Member, _ int) UserID {
		return item.ID
	}))
}

// Payload returns the bytes to echo to recipients.
func (m NewMessage) Payload() (json.RawMessage, error) {
	if len(m.Raw) > 0 {
		return m.Raw, nil
	}
	return json.Marshal(m)
}
