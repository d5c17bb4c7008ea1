package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"loveinaction/internal/cms"
	"loveinaction/internal/metrics"
	"loveinaction/internal/models"
)

var (
	ErrRelationNotLinked = errors.New("sponsorship relation could not be linked")
	ErrRecordNotFound    = errors.New("sponsorship or sponsor not found")
	ErrEnsureUpdate      = errors.New("failed to update bidirectional relations")
)

// RelationShape renders the value written to a sponsor's sponsorship field.
// Strapi accepts different relation payloads depending on version and
// relation kind, so several are tried in order.
type RelationShape struct {
	Name  string
	Value func(id int64, documentID string) any
}

// RelationShapes is the ordered list of payloads tried when linking
var RelationShapes = []RelationShape{
	{"id", func(id int64, _ string) any { return id }},
	{"object-id", func(id int64, _ string) any { return map[string]any{"id": id} }},
	{"document-id", func(_ int64, doc string) any { return doc }},
	{"connect-id", func(id int64, _ string) any { return map[string]any{"connect": []int64{id}} }},
	{"set-id", func(id int64, _ string) any { return map[string]any{"set": []int64{id}} }},
	{"connect-object-id", func(id int64, _ string) any {
		return map[string]any{"connect": []map[string]any{{"id": id}}}
	}},
	{"connect-document-id", func(_ int64, doc string) any { return map[string]any{"connect": []string{doc}} }},
	{"array-id", func(id int64, _ string) any { return []int64{id} }},
	{"array-object-id", func(id int64, _ string) any { return []map[string]any{{"id": id}} }},
	{"object-document-id", func(_ int64, doc string) any { return map[string]any{"documentId": doc} }},
}

// LinkResult describes how a link attempt went
type LinkResult struct {
	Shape    string
	Attempts int
	Verified bool
}

// RelationLinker is the single write path for Sponsor.sponsorship.
// It remembers the last shape that verified and tries it first next time.
type RelationLinker struct {
	cms       *cms.Client
	metrics   *metrics.Metrics
	preferred atomic.Int32 // index+1 into RelationShapes, 0 when unknown
}

// NewRelationLinker creates a linker writing through client
func NewRelationLinker(client *cms.Client, m *metrics.Metrics) *RelationLinker {
	return &RelationLinker{cms: client, metrics: m}
}

func (l *RelationLinker) order() []int {
	order := make([]int, 0, len(RelationShapes))
	first := int(l.preferred.Load()) - 1
	if first >= 0 && first < len(RelationShapes) {
		order = append(order, first)
	}
	for i := range RelationShapes {
		if i != first {
			order = append(order, i)
		}
	}
	return order
}

// Link points the sponsor identified by sponsorDocID at sponsorship.
// With requireVerified a shape only counts once a re-read shows the
// back-relation; otherwise the first accepted write wins.
func (l *RelationLinker) Link(ctx context.Context, sponsorDocID string, sponsorship *models.Sponsorship, requireVerified bool) (*LinkResult, error) {
	if sponsorDocID == "" || sponsorship == nil {
		return nil, fmt.Errorf("%w: missing sponsor or sponsorship", ErrRelationNotLinked)
	}

	result := &LinkResult{}
	var lastErr error
	for _, i := range l.order() {
		shape := RelationShapes[i]
		result.Attempts++

		data := map[string]any{"sponsorship": shape.Value(sponsorship.ID, sponsorship.DocumentID)}
		if err := l.cms.Update(ctx, "sponsors", sponsorDocID, data, nil); err != nil {
			lastErr = err
			log.Printf("Relation shape %s rejected for sponsor %s: %v", shape.Name, sponsorDocID, err)
			continue
		}

		verified, err := l.Verify(ctx, sponsorDocID)
		if err != nil {
			log.Printf("Error verifying relation for sponsor %s: %v", sponsorDocID, err)
		}
		if verified {
			l.preferred.Store(int32(i + 1))
			result.Shape = shape.Name
			result.Verified = true
			l.metrics.RepairOutcome(true, shape.Name)
			return result, nil
		}
		if !requireVerified {
			log.Printf("Relation write accepted for sponsor %s but verification did not show it", sponsorDocID)
			result.Shape = shape.Name
			l.metrics.RepairOutcome(true, shape.Name)
			return result, nil
		}
		lastErr = fmt.Errorf("shape %s accepted but relation not found on re-read", shape.Name)
	}

	l.metrics.RepairOutcome(false, "")
	if lastErr == nil {
		lastErr = ErrRelationNotLinked
	}
	return result, fmt.Errorf("%w: %v", ErrRelationNotLinked, lastErr)
}

// Verify re-reads the sponsor and reports whether its sponsorship resolves
func (l *RelationLinker) Verify(ctx context.Context, sponsorDocID string) (bool, error) {
	var sponsor models.Sponsor
	if err := l.cms.FindOne(ctx, "sponsors", sponsorDocID, cms.NewQuery().Populate("sponsorship"), &sponsor); err != nil {
		return false, err
	}
	return sponsor.HasSponsorship(), nil
}

// OrphanedSponsorship is a sponsorship whose sponsor lacks the back-relation
type OrphanedSponsorship struct {
	SponsorshipID         int64  `json:"sponsorshipId"`
	SponsorshipDocumentID string `json:"sponsorshipDocumentId"`
	SponsorID             int64  `json:"sponsorId"`
	SponsorDocumentID     string `json:"sponsorDocumentId"`
	SponsorEmail          string `json:"sponsorEmail"`
	SponsorshipStatus     string `json:"sponsorshipStatus"`
	NumberOfChildren      int    `json:"numberOfChildren"`
}

// DetectResult is the outcome of a scan
type DetectResult struct {
	TotalChecked         int                   `json:"totalChecked"`
	OrphanedFound        int                   `json:"orphanedFound"`
	OrphanedSponsorships []OrphanedSponsorship `json:"orphanedSponsorships"`
}

// RepairDetail is the per-orphan outcome of a repair
type RepairDetail struct {
	SponsorshipID int64  `json:"sponsorshipId"`
	SponsorEmail  string `json:"sponsorEmail"`
	Success       bool   `json:"success"`
	Attempts      int    `json:"attempts"`
	Shape         string `json:"shape,omitempty"`
	Error         string `json:"error,omitempty"`
}

// RepairResult summarizes a repair run
type RepairResult struct {
	TotalChecked      int            `json:"totalChecked"`
	OrphanedFound     int            `json:"orphanedFound"`
	RepairsAttempted  int            `json:"repairsAttempted"`
	RepairsSuccessful int            `json:"repairsSuccessful"`
	RepairsFailed     int            `json:"repairsFailed"`
	Details           []RepairDetail `json:"details"`
}

// EnsureResult is returned by Ensure
type EnsureResult struct {
	Success               bool   `json:"success"`
	Message               string `json:"message"`
	Verified              bool   `json:"verified"`
	SponsorshipDocumentID string `json:"sponsorshipDocumentId"`
	SponsorDocumentID     string `json:"sponsorDocumentId"`
}

// RepairRecorder persists repair runs
type RepairRecorder interface {
	Record(run *models.RepairRun) error
}

// RelationService detects and repairs one-sided sponsor/sponsorship relations
type RelationService struct {
	cms      *cms.Client
	linker   *RelationLinker
	recorder RepairRecorder
}

// NewRelationService creates a new relation service. recorder may be nil.
func NewRelationService(client *cms.Client, linker *RelationLinker, recorder RepairRecorder) *RelationService {
	return &RelationService{cms: client, linker: linker, recorder: recorder}
}

// Detect scans every sponsorship for a sponsor missing the back-relation
func (s *RelationService) Detect(ctx context.Context) (*DetectResult, error) {
	started := time.Now()
	result, err := s.detect(ctx)
	if err != nil {
		return nil, err
	}
	s.record(&models.RepairRun{
		Mode:          models.RepairModeDetect,
		TotalChecked:  result.TotalChecked,
		OrphanedFound: result.OrphanedFound,
		StartedAt:     started,
	})
	return result, nil
}

func (s *RelationService) detect(ctx context.Context) (*DetectResult, error) {
	var sponsorships []models.Sponsorship
	q := cms.NewQuery().Populate("sponsor").PageSize(100)
	if err := s.cms.Find(ctx, "sponsorships", q, &sponsorships); err != nil {
		return nil, fmt.Errorf("failed to fetch sponsorships: %w", err)
	}

	result := &DetectResult{
		TotalChecked:         len(sponsorships),
		OrphanedSponsorships: []OrphanedSponsorship{},
	}
	for _, sp := range sponsorships {
		if sp.Sponsor == nil || sp.Sponsor.DocumentID == "" {
			continue
		}
		linked, err := s.linker.Verify(ctx, sp.Sponsor.DocumentID)
		if err != nil {
			log.Printf("Error checking sponsor %s for sponsorship %d: %v", sp.Sponsor.DocumentID, sp.ID, err)
			continue
		}
		if linked {
			continue
		}
		result.OrphanedSponsorships = append(result.OrphanedSponsorships, OrphanedSponsorship{
			SponsorshipID:         sp.ID,
			SponsorshipDocumentID: sp.DocumentID,
			SponsorID:             sp.Sponsor.ID,
			SponsorDocumentID:     sp.Sponsor.DocumentID,
			SponsorEmail:          sp.Sponsor.Email,
			SponsorshipStatus:     sp.SponsorshipStatus,
			NumberOfChildren:      sp.NumberOfChildren,
		})
	}
	result.OrphanedFound = len(result.OrphanedSponsorships)
	return result, nil
}

// Repair detects orphans and links each one through the linker
func (s *RelationService) Repair(ctx context.Context) (*RepairResult, error) {
	started := time.Now()
	detected, err := s.detect(ctx)
	if err != nil {
		return nil, err
	}

	result := &RepairResult{
		TotalChecked:  detected.TotalChecked,
		OrphanedFound: detected.OrphanedFound,
		Details:       []RepairDetail{},
	}
	for _, orphan := range detected.OrphanedSponsorships {
		result.RepairsAttempted++
		sp := &models.Sponsorship{ID: orphan.SponsorshipID, DocumentID: orphan.SponsorshipDocumentID}
		link, err := s.linker.Link(ctx, orphan.SponsorDocumentID, sp, true)

		detail := RepairDetail{SponsorshipID: orphan.SponsorshipID, SponsorEmail: orphan.SponsorEmail}
		if link != nil {
			detail.Attempts = link.Attempts
			detail.Shape = link.Shape
		}
		if err != nil {
			result.RepairsFailed++
			detail.Error = err.Error()
		} else {
			result.RepairsSuccessful++
			detail.Success = true
		}
		result.Details = append(result.Details, detail)
	}

	s.record(&models.RepairRun{
		Mode:              models.RepairModeRepair,
		TotalChecked:      result.TotalChecked,
		OrphanedFound:     result.OrphanedFound,
		RepairsSuccessful: result.RepairsSuccessful,
		RepairsFailed:     result.RepairsFailed,
		StartedAt:         started,
	})
	return result, nil
}

// Ensure writes both sides of the relation between one sponsorship and one
// sponsor using documentIds, then verifies the sponsor side.
func (s *RelationService) Ensure(ctx context.Context, sponsorshipID, sponsorID string) (*EnsureResult, error) {
	started := time.Now()

	var sponsorship models.Sponsorship
	var sponsors []models.Sponsor
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.cms.FindOne(gctx, "sponsorships", sponsorshipID, nil, &sponsorship)
	})
	g.Go(func() error {
		return s.cms.Find(gctx, "sponsors", cms.NewQuery().Eq("id", sponsorID), &sponsors)
	})
	if err := g.Wait(); err != nil {
		if cms.StatusCode(err) == 404 {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to fetch entities: %w", err)
	}
	if sponsorship.DocumentID == "" || len(sponsors) == 0 {
		return nil, ErrRecordNotFound
	}
	sponsor := sponsors[0]

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.cms.Update(gctx, "sponsorships", sponsorship.DocumentID, map[string]any{"sponsor": sponsor.DocumentID}, nil)
	})
	g.Go(func() error {
		return s.cms.Update(gctx, "sponsors", sponsor.DocumentID, map[string]any{"sponsorship": sponsorship.DocumentID}, nil)
	})
	if err := g.Wait(); err != nil {
		s.record(&models.RepairRun{Mode: models.RepairModeEnsure, TotalChecked: 1, RepairsFailed: 1, StartedAt: started})
		return nil, fmt.Errorf("%w: %v", ErrEnsureUpdate, err)
	}

	result := &EnsureResult{
		Success:               true,
		SponsorshipDocumentID: sponsorship.DocumentID,
		SponsorDocumentID:     sponsor.DocumentID,
	}
	verified, err := s.linker.Verify(ctx, sponsor.DocumentID)
	if err != nil {
		log.Printf("Error verifying relation for sponsor %s: %v", sponsor.DocumentID, err)
		result.Message = "Relations updated but verification failed"
	} else {
		result.Message = "Bidirectional relation ensured"
		result.Verified = verified
	}

	run := &models.RepairRun{Mode: models.RepairModeEnsure, TotalChecked: 1, StartedAt: started}
	if result.Verified {
		run.RepairsSuccessful = 1
	} else {
		run.RepairsFailed = 1
	}
	s.record(run)
	return result, nil
}

func (s *RelationService) record(run *models.RepairRun) {
	if s.recorder == nil {
		return
	}
	run.FinishedAt = time.Now()
	if err := s.recorder.Record(run); err != nil {
		log.Printf("Error recording %s repair run: %v", run.Mode, err)
	}
}
