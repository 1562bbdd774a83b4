package api

import "time"

// Event is the wire representation of one stored event
type Event struct {
	ID        int64     `json:"id"`
	UUID      string    `json:"uuid,omitempty"`
	Channel   string    `json:"channel"`
	Data      string    `json:"data"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Health is the health check response
type Health struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
