package model

import "time"

// ConversationTurn 代表一次完整的问答交互。
type ConversationTurn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"askedAt"`
}
