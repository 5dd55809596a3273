package model

const (
	SenderHuman = "human"
	SenderAI    = "ai"
)

type Message struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Metadata  string `json:"metadata"`
	Ctime     int64  `json:"ctime"`
}
