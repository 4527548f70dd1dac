package event

import "time"

const (
	RoutingKeyAgreementStatus = "agreement.status"
	RoutingKeyReminderDue     = "reminder.due"
	RoutingKeyChatOutbound    = "chat.outbound"
	RoutingKeyChatInbound     = "chat.inbound"
)

type AgreementStatusChangedEvent struct {
	AgreementID   int64     `json:"agreementId"`
	LenderID      int64     `json:"lenderId"`
	BorrowerPhone string    `json:"borrowerPhone"`
	OldStatus     string    `json:"oldStatus"`
	NewStatus     string    `json:"newStatus"`
	Timestamp     time.Time `json:"timestamp"`
}

// ReminderDueEvent is consumed by the delivery service, which formats and
// sends the actual reminder.
type ReminderDueEvent struct {
	JobID     string    `json:"jobId"`
	Kind      string    `json:"kind"`
	Recipient string    `json:"recipient"`
	Name      string    `json:"name"`
	Amount    int64     `json:"amount"`
	DueDate   string    `json:"dueDate"`
	DaysUntil int       `json:"daysUntil"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatMessageEvent struct {
	To        string    `json:"to"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// InboundChatMessageEvent is published by the chat gateway for every message
// a user sends to the service number.
type InboundChatMessageEvent struct {
	From      string    `json:"from"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
