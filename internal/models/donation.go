package models

import "time"

// DonationEvent is one webhook delivery recorded in the local ledger
type DonationEvent struct {
	ID            int64
	TransactionID string
	Email         string
	Amount        float64
	Currency      string
	Frequency     string
	Forwarded     bool
	ForwardError  string
	ReceivedAt    time.Time
}
