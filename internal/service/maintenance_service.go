package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"loveinaction/internal/cms"
	"loveinaction/internal/media"
	"loveinaction/internal/models"
)

// ErrPublicRoleNotFound means the users-permissions plugin has no public role
var ErrPublicRoleNotFound = errors.New("public role not found")

const (
	childImageRef   = "api::child.child"
	childImageField = "images"
	seedBatchSize   = 5
	exportPageSize  = 100
)

// PublicContentTypes are opened to anonymous find/findOne by FixPermissions
var PublicContentTypes = []string{
	"api::home-page.home-page",
	"api::about-us.about-us",
	"api::event.event",
	"api::cause.cause",
	"api::service.service",
	"api::stat.stat",
	"api::link.link",
	"api::blog.blog",
	"api::gallery.gallery",
	"api::alert.alert",
}

// SeedFile is the YAML document accepted by Seed. Records are sent to the
// CMS as-is.
type SeedFile struct {
	Children []map[string]any `yaml:"children"`
	Blogs    []map[string]any `yaml:"blogs"`
	Services []map[string]any `yaml:"services"`
	Events   []map[string]any `yaml:"events"`
	Causes   []map[string]any `yaml:"causes"`
}

// SeedResult summarizes one collection of a seed run
type SeedResult struct {
	Collection string   `json:"collection"`
	Created    int      `json:"created"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

// ImageReport summarizes an upload or link run
type ImageReport struct {
	Linked    int      `json:"linked"`
	Uploaded  int      `json:"uploaded"`
	Failed    int      `json:"failed"`
	Unmatched []string `json:"unmatched,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// DuplicateGroup is a set of children sharing a normalized name
type DuplicateGroup struct {
	Name     string         `json:"name"`
	Children []models.Child `json:"children"`
}

// ExportData is a JSON snapshot of the sponsorship records
type ExportData struct {
	Version      string               `json:"version"`
	ExportedAt   time.Time            `json:"exported_at"`
	CMSURL       string               `json:"cms_url"`
	Sponsors     []models.Sponsor     `json:"sponsors"`
	Sponsorships []models.Sponsorship `json:"sponsorships"`
	Children     []models.Child       `json:"children"`
}

// MaintenanceService runs operator tasks against the CMS with the system token
type MaintenanceService struct {
	cms *cms.Client
	now func() time.Time
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(client *cms.Client) *MaintenanceService {
	return &MaintenanceService{cms: client, now: time.Now}
}

// LoadSeedFile parses a YAML seed document
func LoadSeedFile(r io.Reader) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}
	return &seed, nil
}

// Seed creates every record of the seed file, a few at a time per collection
func (s *MaintenanceService) Seed(ctx context.Context, seed *SeedFile) []SeedResult {
	collections := []struct {
		name    string
		records []map[string]any
	}{
		{"children", seed.Children},
		{"blogs", seed.Blogs},
		{"services", seed.Services},
		{"events", seed.Events},
		{"causes", seed.Causes},
	}

	var results []SeedResult
	for _, c := range collections {
		if len(c.records) == 0 {
			continue
		}
		log.Printf("Seeding %d %s in batches of %d", len(c.records), c.name, seedBatchSize)
		results = append(results, s.seedCollection(ctx, c.name, c.records))
	}
	return results
}

func (s *MaintenanceService) seedCollection(ctx context.Context, collection string, records []map[string]any) SeedResult {
	result := SeedResult{Collection: collection}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(seedBatchSize)
	for _, record := range records {
		g.Go(func() error {
			err := s.cms.Create(gctx, collection, record, nil)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", recordLabel(record), err))
				return nil
			}
			result.Created++
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(result.Errors)
	return result
}

func recordLabel(record map[string]any) string {
	return firstString(record["fullName"], record["title"], record["Heading"], record["name"], "record")
}

// UploadImages uploads every image in dir and attaches it to the child its
// filename names. Files for unknown children are not uploaded.
func (s *MaintenanceService) UploadImages(ctx context.Context, dir string) (*ImageReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}

	children, err := s.childrenByKey(ctx)
	if err != nil {
		return nil, err
	}

	report := &ImageReport{}
	order, groups := media.GroupByChild(files, func(name string) string { return name })
	for _, key := range order {
		group := groups[key]
		child, ok := children[key]
		if !ok {
			log.Printf("No matching child profile found for: %s", group.Name)
			report.Unmatched = append(report.Unmatched, group.Name)
			continue
		}

		uploaded := 0
		for _, name := range group.Items {
			if err := s.uploadOne(ctx, filepath.Join(dir, name), child); err != nil {
				report.Failed++
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", name, err))
				continue
			}
			uploaded++
		}
		report.Uploaded += uploaded
		if uploaded > 0 {
			report.Linked++
		}
	}
	return report, nil
}

func (s *MaintenanceService) uploadOne(ctx context.Context, path string, child models.Child) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = s.cms.Upload(ctx, filepath.Base(path), f, &cms.UploadTarget{
		Ref:   childImageRef,
		RefID: child.ID,
		Field: childImageField,
	})
	return err
}

// LinkImages attaches media already in the library to children by filename
func (s *MaintenanceService) LinkImages(ctx context.Context) (*ImageReport, error) {
	children, err := s.childrenByKey(ctx)
	if err != nil {
		return nil, err
	}
	files, err := s.cms.ListUploads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list media files: %w", err)
	}
	if len(children) == 0 || len(files) == 0 {
		log.Printf("Nothing to link: %d children, %d media files", len(children), len(files))
		return &ImageReport{}, nil
	}

	report := &ImageReport{}
	order, groups := media.GroupByChild(files, func(m models.Media) string { return m.Name })
	for _, key := range order {
		group := groups[key]
		child, ok := children[key]
		if !ok {
			report.Unmatched = append(report.Unmatched, group.Name)
			continue
		}

		ids := make([]int64, 0, len(group.Items))
		for _, m := range group.Items {
			ids = append(ids, m.ID)
		}
		if err := s.cms.Update(ctx, "children", recordID(child.DocumentID, child.ID), map[string]any{"images": ids}, nil); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", child.DisplayName(), err))
			continue
		}
		log.Printf("Linked %d images to %s", len(ids), child.DisplayName())
		report.Linked++
	}
	return report, nil
}

// CheckDuplicates returns groups of children whose names match ignoring case
func (s *MaintenanceService) CheckDuplicates(ctx context.Context) ([]DuplicateGroup, error) {
	children, err := findAll[models.Child](ctx, s.cms, "children", cms.NewQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch children: %w", err)
	}

	var order []string
	byName := map[string][]models.Child{}
	for _, c := range children {
		name := strings.ToLower(strings.TrimSpace(c.DisplayName()))
		if name == "" {
			continue
		}
		if _, seen := byName[name]; !seen {
			order = append(order, name)
		}
		byName[name] = append(byName[name], c)
	}

	var dups []DuplicateGroup
	for _, name := range order {
		if len(byName[name]) > 1 {
			dups = append(dups, DuplicateGroup{Name: name, Children: byName[name]})
		}
	}
	return dups, nil
}

// Export writes sponsors, sponsorships and children to w as indented JSON
func (s *MaintenanceService) Export(ctx context.Context, w io.Writer) (*ExportData, error) {
	data := &ExportData{
		Version:    "1.0",
		ExportedAt: s.now().UTC(),
		CMSURL:     s.cms.BaseURL(),
	}

	var err error
	if data.Sponsors, err = findAll[models.Sponsor](ctx, s.cms, "sponsors", cms.NewQuery().Populate("sponsorship", "children")); err != nil {
		return nil, fmt.Errorf("failed to export sponsors: %w", err)
	}
	if data.Sponsorships, err = findAll[models.Sponsorship](ctx, s.cms, "sponsorships", cms.NewQuery().Populate("sponsor")); err != nil {
		return nil, fmt.Errorf("failed to export sponsorships: %w", err)
	}
	if data.Children, err = findAll[models.Child](ctx, s.cms, "children", cms.NewQuery().Populate("sponsor")); err != nil {
		return nil, fmt.Errorf("failed to export children: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}

	log.Printf("Exported: %d sponsors, %d sponsorships, %d children",
		len(data.Sponsors), len(data.Sponsorships), len(data.Children))
	return data, nil
}

type permissionRole struct {
	ID          int64          `json:"id"`
	Type        string         `json:"type"`
	Permissions map[string]any `json:"permissions,omitempty"`
}

// FixPermissions enables find and findOne for contentTypes on the public role
func (s *MaintenanceService) FixPermissions(ctx context.Context, contentTypes []string) error {
	raw, err := s.cms.Raw(ctx, http.MethodGet, "/api/users-permissions/roles", nil, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch roles: %w", err)
	}
	var roles struct {
		Roles []permissionRole `json:"roles"`
	}
	if err := json.Unmarshal(raw, &roles); err != nil {
		return fmt.Errorf("failed to decode roles: %w", err)
	}

	var public *permissionRole
	for i := range roles.Roles {
		if roles.Roles[i].Type == "public" {
			public = &roles.Roles[i]
			break
		}
	}
	if public == nil {
		return ErrPublicRoleNotFound
	}

	rolePath := "/api/users-permissions/roles/" + strconv.FormatInt(public.ID, 10)
	raw, err = s.cms.Raw(ctx, http.MethodGet, rolePath, nil, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch permissions: %w", err)
	}
	var current struct {
		Role permissionRole `json:"role"`
	}
	if err := json.Unmarshal(raw, &current); err != nil {
		return fmt.Errorf("failed to decode permissions: %w", err)
	}

	permissions := current.Role.Permissions
	if permissions == nil {
		permissions = map[string]any{}
	}
	for _, ct := range contentTypes {
		entry, _ := permissions[ct].(map[string]any)
		if entry == nil {
			entry = map[string]any{}
		}
		controllers, _ := entry["controllers"].(map[string]any)
		if controllers == nil {
			controllers = map[string]any{}
		}
		controllers[controllerName(ct)] = map[string]any{
			"find":    map[string]any{"enabled": true},
			"findOne": map[string]any{"enabled": true},
		}
		entry["controllers"] = controllers
		permissions[ct] = entry
		log.Printf("Setting permissions for %s", ct)
	}

	if _, err := s.cms.Raw(ctx, http.MethodPut, rolePath, nil, map[string]any{"permissions": permissions}, nil); err != nil {
		return fmt.Errorf("failed to update permissions: %w", err)
	}
	return nil
}

// controllerName maps api::event.event to event
func controllerName(contentType string) string {
	name := contentType
	if i := strings.Index(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	return name
}

func (s *MaintenanceService) childrenByKey(ctx context.Context) (map[string]models.Child, error) {
	var children []models.Child
	if err := s.cms.Find(ctx, "children", cms.NewQuery().PageSize(200), &children); err != nil {
		return nil, fmt.Errorf("failed to fetch children: %w", err)
	}
	byKey := make(map[string]models.Child, len(children))
	for _, c := range children {
		if name := c.DisplayName(); name != "" {
			byKey[media.Key(name)] = c
		}
	}
	return byKey, nil
}

// findAll pages through a collection until a short page comes back
func findAll[T any](ctx context.Context, client *cms.Client, collection string, q *cms.Query) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		var batch []T
		if err := client.Find(ctx, collection, q.PageSize(exportPageSize).Page(page), &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < exportPageSize {
			return all, nil
		}
	}
}

func recordID(documentID string, id int64) string {
	if documentID != "" {
		return documentID
	}
	return strconv.FormatInt(id, 10)
}
