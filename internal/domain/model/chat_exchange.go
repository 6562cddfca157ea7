package model

import "time"

// ChatExchange is one question/answer pair about a completed job's aggregate.
type ChatExchange struct {
	ID        string
	JobID     string
	Question  string
	Answer    string
	CreatedAt time.Time
}
