package store

import "time"

// AlertRecord is one persisted alert.
type AlertRecord struct {
	ID        string    `json:"id"`
	Resource  string    `json:"resource"`
	Message   string    `json:"message"`
	Threshold int       `json:"threshold"`
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}
