package dto

type ChatMessageRequest struct {
	From string `json:"from" validate:"required"`
	Text string `json:"text" validate:"required"`
}

type ChatMessageResponse struct {
	Handled bool `json:"handled"`
}
