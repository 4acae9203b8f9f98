package domain

import "time"

const displayLayout = "02.01.2006 15:04"

// ChatSummary is one row of GET /chats/.
type ChatSummary struct {
	ID                    string  `json:"id"`
	UserOneID             string  `json:"userOneId"`
	UserTwoID             string  `json:"userTwoId"`
	CreatedAt             string  `json:"createdAt"`
	LastMessage           *string `json:"lastMessage,omitempty"`
	LastMessageAt         *string `json:"lastMessageAt,omitempty"`
	LastMessageSenderName *string `json:"lastMessageSenderName,omitempty"`
	LastMessageIsViewed   *bool   `json:"lastMessageIsViewed,omitempty"`
	ParticipantName       *string `json:"participantName,omitempty"`
}

func (c ChatSummary) FormattedDate() string {
	if c.LastMessageAt == nil {
		return ""
	}
	return FormatTimestamp(*c.LastMessageAt)
}

// ChatMessage is one entry of GET /messages/by-chat/{id}.
type ChatMessage struct {
	ID         string `json:"id"`
	ChatID     string `json:"chatId"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName,omitempty"`
	Content    string `json:"content"`
	CreatedAt  string `json:"createdAt"`
	IsViewed   bool   `json:"isViewed"`
}

// FormatTimestamp renders an RFC 3339 timestamp (with or without fractional
// seconds) as "dd.MM.yyyy HH:mm"; unparsable input is returned unchanged.
func FormatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.Format(displayLayout)
}
