package repository

import (
	"database/sql"
	"fmt"
	"time"

	"loveinaction/internal/database"
	"loveinaction/internal/models"
)

// DonationRepository is the local ledger of donation webhook deliveries
type DonationRepository struct {
	db *database.DB
}

// NewDonationRepository creates a new donation repository
func NewDonationRepository(db *database.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

// GetByTransactionID returns the ledger row for a transaction, or nil
func (r *DonationRepository) GetByTransactionID(transactionID string) (*models.DonationEvent, error) {
	query := `
		SELECT id, transaction_id, email, amount, currency, frequency, forwarded, forward_error, received_at
		FROM donation_events
		WHERE transaction_id = ?
	`
	event := &models.DonationEvent{}
	err := r.db.QueryRow(query, transactionID).Scan(
		&event.ID,
		&event.TransactionID,
		&event.Email,
		&event.Amount,
		&event.Currency,
		&event.Frequency,
		&event.Forwarded,
		&event.ForwardError,
		&event.ReceivedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get donation event: %w", err)
	}
	return event, nil
}

// Record inserts a new ledger row. When a concurrent delivery of the same
// transaction won the insert, event is filled from the stored row instead.
func (r *DonationRepository) Record(event *models.DonationEvent) error {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}
	query := `
		INSERT INTO donation_events (transaction_id, email, amount, currency, frequency, forwarded, forward_error, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, event.TransactionID, event.Email, event.Amount, event.Currency,
		event.Frequency, event.Forwarded, event.ForwardError, event.ReceivedAt)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return r.loadExisting(event)
		}
		return fmt.Errorf("failed to record donation event: %w", err)
	}
	event.ID = id
	return nil
}

func (r *DonationRepository) loadExisting(event *models.DonationEvent) error {
	existing, err := r.GetByTransactionID(event.TransactionID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("donation event %s vanished after duplicate insert", event.TransactionID)
	}
	*event = *existing
	return nil
}

// MarkForwarded stores the outcome of forwarding an existing ledger row
func (r *DonationRepository) MarkForwarded(id int64, forwarded bool, forwardError string) error {
	_, err := r.db.Exec("UPDATE donation_events SET forwarded = ?, forward_error = ? WHERE id = ?",
		forwarded, forwardError, id)
	if err != nil {
		return fmt.Errorf("failed to update donation event: %w", err)
	}
	return nil
}
