package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"loveinaction/internal/cms"
	"loveinaction/internal/metrics"
	"loveinaction/internal/models"
)

// ErrForwardFailed means the CMS rejected a forwarded donation
var ErrForwardFailed = errors.New("failed to forward to Strapi")

// ZeffyWebhookPath is the CMS endpoint receiving normalized donations
const ZeffyWebhookPath = "/api/zeffy/webhook"

// DonationPayload is the normalized donation forwarded to the CMS
type DonationPayload struct {
	TransactionID   string          `json:"transaction_id"`
	Amount          float64         `json:"amount"`
	Currency        string          `json:"currency"`
	Frequency       string          `json:"frequency"`
	CreatedAt       string          `json:"created_at"`
	FormName        string          `json:"form_name"`
	Donor           DonationDonor   `json:"donor"`
	Address         DonationAddress `json:"address"`
	CustomQuestions any             `json:"custom_questions"`
	UTM             DonationUTM     `json:"utm"`
}

type DonationDonor struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type DonationAddress struct {
	Line1   string `json:"line1"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type DonationUTM struct {
	Source   string `json:"source"`
	Medium   string `json:"medium"`
	Campaign string `json:"campaign"`
}

// DonationLedger records webhook deliveries locally
type DonationLedger interface {
	GetByTransactionID(transactionID string) (*models.DonationEvent, error)
	Record(event *models.DonationEvent) error
	MarkForwarded(id int64, forwarded bool, forwardError string) error
}

// ForwardResult is the outcome of one webhook delivery
type ForwardResult struct {
	Duplicate      bool
	CMSResponse    json.RawMessage
	ForwardDetails string
}

// DonationService maps Zeffy webhooks and forwards them to the CMS
type DonationService struct {
	cms     *cms.Client
	secret  string
	ledger  DonationLedger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewDonationService creates a new donation service. ledger may be nil.
func NewDonationService(client *cms.Client, secret string, ledger DonationLedger, m *metrics.Metrics) *DonationService {
	return &DonationService{
		cms:     client.Anonymous(),
		secret:  secret,
		ledger:  ledger,
		metrics: m,
		now:     time.Now,
	}
}

// MapZeffyPayload normalizes a Zeffy webhook body. Top-level fields win over
// the nested donor and address objects.
func MapZeffyPayload(z map[string]any, now time.Time) DonationPayload {
	donor, _ := z["donor"].(map[string]any)
	address, _ := z["address"].(map[string]any)

	frequency := "one_time"
	if truthy(z["recurring"]) {
		frequency = "monthly"
	}

	custom := z["custom_questions"]
	if custom == nil {
		custom = []any{}
	}

	return DonationPayload{
		TransactionID: firstString(idString(z["id"]), idString(z["transaction_id"])),
		Amount:        number(z["amount"]),
		Currency:      firstString(z["currency"], "USD"),
		Frequency:     frequency,
		CreatedAt:     firstString(z["created_at"], now.UTC().Format(time.RFC3339)),
		FormName:      firstString(z["form_name"], "Zeffy Donation"),
		Donor: DonationDonor{
			FirstName: firstString(z["first_name"], donor["first_name"]),
			LastName:  firstString(z["last_name"], donor["last_name"]),
			Email:     firstString(z["email"], donor["email"]),
			Phone:     firstString(z["phone"], donor["phone"]),
		},
		Address: DonationAddress{
			Line1:   firstString(z["address"], address["line1"]),
			City:    firstString(z["city"], address["city"]),
			Country: firstString(z["country"], address["country"], "US"),
		},
		CustomQuestions: custom,
		UTM: DonationUTM{
			Source:   str(z["utm_source"]),
			Medium:   str(z["utm_medium"]),
			Campaign: str(z["utm_campaign"]),
		},
	}
}

// Forward maps and forwards one webhook body. A transaction that was already
// forwarded is acknowledged without calling the CMS again.
func (s *DonationService) Forward(ctx context.Context, body map[string]any) (*ForwardResult, error) {
	payload := MapZeffyPayload(body, s.now())

	event, err := s.ledgerEntry(payload)
	if err != nil {
		log.Printf("Donation ledger unavailable for %s: %v", payload.TransactionID, err)
	}
	if event != nil && event.Forwarded {
		log.Printf("Donation %s already forwarded, skipping", payload.TransactionID)
		s.metrics.DonationForward("duplicate")
		return &ForwardResult{Duplicate: true}, nil
	}

	header := http.Header{}
	header.Set("X-Auth-Token", s.secret)

	var resp json.RawMessage
	if err := s.cms.PostRaw(ctx, ZeffyWebhookPath, header, payload, &resp); err != nil {
		details := err.Error()
		var apiErr *cms.APIError
		if errors.As(err, &apiErr) {
			details = apiErr.Body
		}
		s.markForwarded(event, false, details)
		s.metrics.DonationForward("failed")
		return &ForwardResult{ForwardDetails: details}, fmt.Errorf("%w: %v", ErrForwardFailed, err)
	}

	s.markForwarded(event, true, "")
	s.metrics.DonationForward("forwarded")
	return &ForwardResult{CMSResponse: resp}, nil
}

// ledgerEntry returns the existing row for the transaction or records a new one
func (s *DonationService) ledgerEntry(p DonationPayload) (*models.DonationEvent, error) {
	if s.ledger == nil || p.TransactionID == "" {
		return nil, nil
	}
	existing, err := s.ledger.GetByTransactionID(p.TransactionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	event := &models.DonationEvent{
		TransactionID: p.TransactionID,
		Email:         p.Donor.Email,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Frequency:     p.Frequency,
		ReceivedAt:    s.now(),
	}
	if err := s.ledger.Record(event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *DonationService) markForwarded(event *models.DonationEvent, forwarded bool, details string) {
	if event == nil {
		return
	}
	if err := s.ledger.MarkForwarded(event.ID, forwarded, details); err != nil {
		log.Printf("Error updating donation ledger for %s: %v", event.TransactionID, err)
	}
}

// idString renders JSON ids, which Zeffy may send as numbers or strings
func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	return ""
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != "" && t != "false"
	case float64:
		return t != 0
	}
	return v != nil
}
