package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"loveinaction/internal/cache"
	"loveinaction/internal/cms"
	"loveinaction/internal/models"
)

// markdown renders blog bodies. Raw HTML in the source is omitted because
// WithUnsafe is not set.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// ContentService reads marketing content, optionally through a cache
type ContentService struct {
	cms   *cms.Client
	cache cache.Cache
	now   func() time.Time
}

// NewContentService creates a new content service. A nil cache disables caching.
func NewContentService(client *cms.Client, c cache.Cache) *ContentService {
	if c == nil {
		c = cache.Noop{}
	}
	return &ContentService{cms: client.Anonymous(), cache: c, now: time.Now}
}

// list reads collection through the cache
func list[T any](ctx context.Context, s *ContentService, collection string, q *cms.Query) ([]T, error) {
	key := collection + "?" + q.Encode()
	var items []T
	if hit, err := s.cache.Get(ctx, key, &items); err != nil {
		log.Printf("Cache read failed for %s: %v", key, err)
	} else if hit {
		return items, nil
	}

	if err := s.cms.Find(ctx, collection, q, &items); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", collection, err)
	}
	if items == nil {
		items = []T{}
	}
	if err := s.cache.Set(ctx, key, items); err != nil {
		log.Printf("Cache write failed for %s: %v", key, err)
	}
	return items, nil
}

// Services lists services oldest first. featured limits the list to four.
func (s *ContentService) Services(ctx context.Context, limit int, featured bool) ([]models.Service, error) {
	q := cms.NewQuery().Sort("createdAt:asc").PopulateAll()
	if featured {
		limit = 4
	}
	if limit > 0 {
		q.Limit(limit)
	}
	return list[models.Service](ctx, s, "services", q)
}

// Events lists events by date. featured keeps featured events, at most four.
func (s *ContentService) Events(ctx context.Context, limit int, featured bool) ([]models.Event, error) {
	q := cms.NewQuery().Sort("date:asc").PopulateAll()
	if featured {
		q.Eq("featured", true)
		limit = 4
	}
	if limit > 0 {
		q.Limit(limit)
	}
	return list[models.Event](ctx, s, "events", q)
}

// UpcomingEvents lists events dated from now on
func (s *ContentService) UpcomingEvents(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 4
	}
	today := s.now().UTC().Truncate(time.Minute).Format(time.RFC3339)
	q := cms.NewQuery().Filter(today, "date", "$gte").Sort("date:asc").PopulateAll().Limit(limit)
	return list[models.Event](ctx, s, "events", q)
}

// Causes lists causes newest first. featured limits the list to five.
func (s *ContentService) Causes(ctx context.Context, limit int, featured bool) ([]models.Cause, error) {
	q := cms.NewQuery().Sort("createdAt:desc").PopulateAll()
	if featured {
		limit = 5
	}
	if limit > 0 {
		q.Limit(limit)
	}
	return list[models.Cause](ctx, s, "causes", q)
}

// Stats lists stats, optionally of one category such as "impact"
func (s *ContentService) Stats(ctx context.Context, category string) ([]models.Stat, error) {
	q := cms.NewQuery().Sort("createdAt:asc").PopulateAll()
	if category != "" {
		q.Eq("category", category)
	}
	return list[models.Stat](ctx, s, "stats", q)
}

// Links lists links, optionally of one type (cta, navigation, social)
func (s *ContentService) Links(ctx context.Context, linkType string) ([]models.Link, error) {
	q := cms.NewQuery().Sort("createdAt:asc").PopulateAll()
	if linkType != "" {
		q.Eq("type", linkType)
	}
	return list[models.Link](ctx, s, "links", q)
}

// Blogs lists posts newest first
func (s *ContentService) Blogs(ctx context.Context, limit int) ([]models.Blog, error) {
	q := cms.NewQuery().Populate("cover").Sort("publishedAt:desc")
	if limit > 0 {
		q.Limit(limit)
	}
	return list[models.Blog](ctx, s, "blogs", q)
}

// Blog fetches one post and renders its Markdown body. A missing post is nil, nil.
func (s *ContentService) Blog(ctx context.Context, id string) (*models.Blog, error) {
	key := "blogs/" + id
	var blog models.Blog
	if hit, err := s.cache.Get(ctx, key, &blog); err == nil && hit {
		return &blog, nil
	}

	if err := s.cms.FindOne(ctx, "blogs", id, cms.NewQuery().Populate("cover"), &blog); err != nil {
		if cms.StatusCode(err) == 404 {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch blog %s: %w", id, err)
	}
	if blog.ID == 0 && blog.DocumentID == "" {
		return nil, nil
	}

	html, err := RenderMarkdown(blog.Content)
	if err != nil {
		return nil, err
	}
	blog.ContentHTML = html

	if err := s.cache.Set(ctx, key, blog); err != nil {
		log.Printf("Cache write failed for %s: %v", key, err)
	}
	return &blog, nil
}

// RenderMarkdown converts Markdown to HTML, dropping raw HTML from the source
func RenderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}
