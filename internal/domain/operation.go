package domain

import "time"

// PendingOperation is the durable marker written before a multi-record
// workflow update. It is removed in the same batch that applies the update.
type PendingOperation struct {
	ID        string
	Kind      string
	ClientID  string
	Writes    []byte
	Attempts  int
	LastError string
	CreatedAt time.Time
}
