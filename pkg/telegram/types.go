package telegram

// SendPhotoRequest is the sendPhoto payload.
type SendPhotoRequest struct {
	ChatID    string `json:"chat_id"`
	Photo     string `json:"photo"`
	Caption   string `json:"caption,omitempty"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// Response is the Bot API envelope.
type Response[T any] struct {
	OK          bool   `json:"ok"`
	Result      T      `json:"result"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// Message is the subset of a sent message we keep.
type Message struct {
	MessageID int64 `json:"message_id"`
	Date      int64 `json:"date"`
}
