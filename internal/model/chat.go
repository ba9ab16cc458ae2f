package model

// ChatReply is the budgeting assistant's answer to one question.
type ChatReply struct {
	Reply        string `json:"reply"`
	Model        string `json:"model"`
	FinishReason string `json:"finish_reason,omitempty"`
}
