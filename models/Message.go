package models

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeDocument MessageType = "document"
	MessageTypePayment  MessageType = "payment"
)

type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

// statusRank orders the delivery states; a message never moves backwards.
var statusRank = map[MessageStatus]int{
	MessageStatusSent:      1,
	MessageStatusDelivered: 2,
	MessageStatusRead:      3,
}

// StatusAdvances reports whether moving from current to next is a forward
// transition (sent -> delivered -> read).
func StatusAdvances(current, next MessageStatus) bool {
	return statusRank[next] > statusRank[current]
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// FileInfo is the payload carried by image and document messages.
type FileInfo struct {
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	MimeType string `json:"mimeType"`
}

// PaymentInfo is the payload carried by payment messages.
type PaymentInfo struct {
	Amount   float64       `json:"paymentAmount"`
	Currency string        `json:"paymentCurrency"`
	Status   PaymentStatus `json:"paymentStatus"`
}

// Message is a single timestamped unit of content within a Chat. A message is
// immutable once created except for Status and Payment.Status. The payload is
// a tagged variant keyed by Type: File for image/document, Payment for
// payment, neither for plain text.
type Message struct {
	ID       string      `json:"id" gorm:"primaryKey;size:36"`
	ChatID   string      `json:"chatID" gorm:"size:36;index"`
	SenderID string      `json:"senderId" gorm:"size:36;index"`
	Content  string      `json:"content" gorm:"type:text"`
	Type     MessageType `json:"type" gorm:"size:16"`
	// Timestamp is epoch milliseconds; precise enough for stable date
	// grouping and same-sender-adjacency detection on clients.
	Timestamp int64         `json:"timestamp" gorm:"index"`
	Status    MessageStatus `json:"status" gorm:"size:16;index"`

	File    *FileInfo    `json:"metadata,omitempty" gorm:"serializer:json;type:jsonb"`
	Payment *PaymentInfo `json:"payment,omitempty" gorm:"serializer:json;type:jsonb"`

	// Seq breaks ties between messages sharing a millisecond, preserving
	// per-chat send order.
	Seq int64 `json:"-" gorm:"autoIncrement"`
}
