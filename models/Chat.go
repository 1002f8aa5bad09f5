package models

import "gorm.io/datatypes"

type ChatContext string

const (
	ChatContextProperty ChatContext = "property"
	ChatContextBooking  ChatContext = "booking"
	ChatContextSupport  ChatContext = "support"
)

// ChatMetadata optionally links a chat to the marketplace object it was
// started about.
type ChatMetadata struct {
	PropertyID string      `json:"propertyId,omitempty"`
	BookingID  string      `json:"bookingId,omitempty"`
	Type       ChatContext `json:"type,omitempty"`
}

// Chat is a conversation thread between a fixed set of participants.
// Chats are append-only: messages are added through the messenger service,
// never updated or deleted.
type Chat struct {
	ID string `json:"id" gorm:"primaryKey;size:36"`
	// CreatorID is the user who opened the chat. The creator always sees the
	// chat in their index even when not listed in Participants, matching the
	// per-user index path users/{userID}/chats.
	CreatorID    string   `json:"creatorId" gorm:"size:36;index"`
	Participants []string `json:"participants" gorm:"serializer:json;type:jsonb"`

	// LastMessage is a denormalized snapshot of the newest message; the
	// authoritative rows live in the messages table.
	LastMessage *Message `json:"lastMessage" gorm:"serializer:json;type:jsonb"`
	UnreadCount int      `json:"unreadCount"`

	// Epoch milliseconds. UpdatedAt advances whenever a message is appended.
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" gorm:"index"`

	Metadata datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`
}

// Involves reports whether userID is the creator or a participant.
func (c *Chat) Involves(userID string) bool {
	if c.CreatorID == userID {
		return true
	}
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Audience is the set of users whose chat index carries this chat:
// the creator plus every participant, deduplicated.
func (c *Chat) Audience() []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(c.Participants)+1)
	if c.CreatorID != "" {
		seen[c.CreatorID] = true
		out = append(out, c.CreatorID)
	}
	for _, p := range c.Participants {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
