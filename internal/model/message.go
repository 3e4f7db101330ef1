package model

import "time"

// ContactMessage is a single contact-form submission. The timestamp is kept
// in nanoseconds since the Unix epoch so it round-trips through every store
// driver as a plain integer.
type ContactMessage struct {
	ID             string `json:"id" db:"id"`
	Name           string `json:"name" db:"name"`
	Email          string `json:"email" db:"email"`
	Message        string `json:"message" db:"message"`
	TimestampNanos int64  `json:"timestamp_nanos" db:"timestamp_nanos"`
}

// Time returns the submission time in UTC.
func (m ContactMessage) Time() time.Time {
	return time.Unix(0, m.TimestampNanos).UTC()
}

// NewMessageRequest is the payload accepted by the submit endpoint.
type NewMessageRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required"`
}
