// Package model contains the domain entities shared across ports and adapters.
package model

import "time"

// Deal is a source-side CRM deal record. Read-only to this system; fetched
// fresh on every run and never cached beyond it.
type Deal struct {
	ID     string
	Name   string
	Stage  string
	Amount float64
}

// Attachment is a binary file attached to exactly one source deal.
type Attachment struct {
	ID          string
	FileName    string
	Size        int64
	CreatedTime time.Time
}
