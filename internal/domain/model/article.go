package model

import "time"

// Article is the persisted result of a successful generation job.
type Article struct {
	ID        string
	JobID     string
	TopicID   string
	Title     string
	Body      string
	WordCount int
	SEOScore  int
	Provider  string
	CreatedAt time.Time
}
