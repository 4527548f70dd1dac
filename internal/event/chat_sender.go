package event

import (
	"context"
	"time"
)

// ChatSender publishes outbound chat messages for the transport gateway.
type ChatSender struct {
	Publisher EventPublisher
}

func (s ChatSender) Send(ctx context.Context, to, text string) error {
	return s.Publisher.PublishChatMessage(ctx, ChatMessageEvent{To: to, Text: text, Timestamp: time.Now()})
}
