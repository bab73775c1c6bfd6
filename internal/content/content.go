package content

import (
	"cmp"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/portfolio-api/internal/common"
)

//go:embed content.yaml
var defaultDocument []byte

// Link is an external profile link.
type Link struct {
	Label string `koanf:"label" json:"label"`
	URL   string `koanf:"url" json:"url"`
}

// Profile describes the site owner.
type Profile struct {
	Name     string   `koanf:"name" json:"name"`
	Headline string   `koanf:"headline" json:"headline"`
	Bio      string   `koanf:"bio" json:"bio"`
	Location string   `koanf:"location" json:"location,omitempty"`
	Email    string   `koanf:"email" json:"email,omitempty"`
	Avatar   string   `koanf:"avatar" json:"avatar,omitempty"`
	Links    []Link   `koanf:"links" json:"links"`
	Skills   []string `koanf:"skills" json:"skills"`
}

// Project is a portfolio entry.
type Project struct {
	Slug        string   `koanf:"slug" json:"slug"`
	Title       string   `koanf:"title" json:"title"`
	Summary     string   `koanf:"summary" json:"summary"`
	Description string   `koanf:"description" json:"description,omitempty"`
	Tags        []string `koanf:"tags" json:"tags"`
	RepoURL     string   `koanf:"repo_url" json:"repoUrl,omitempty"`
	LiveURL     string   `koanf:"live_url" json:"liveUrl,omitempty"`
	Featured    bool     `koanf:"featured" json:"featured"`
	Year        int      `koanf:"year" json:"year"`
}

// Page is a static text page such as a policy.
type Page struct {
	Slug      string `koanf:"slug" json:"slug"`
	Title     string `koanf:"title" json:"title"`
	Body      string `koanf:"body" json:"body"`
	UpdatedAt string `koanf:"updated_at" json:"updatedAt"`
}

// PageSummary is the list view of a Page.
type PageSummary struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updatedAt"`
}

type document struct {
	Profile  Profile   `koanf:"profile"`
	Projects []Project `koanf:"projects"`
	Pages    []Page    `koanf:"pages"`
}

// Store is the immutable, validated content document.
type Store struct {
	profile  Profile
	projects []Project
	pages    []Page
	etag     string
}

// Load reads the document at path, or the embedded default when path is empty.
func Load(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Parse(defaultDocument)
	}
	raw, err := file.Provider(path).ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("load content %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse builds a Store from a YAML document.
func Parse(raw []byte) (*Store, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(raw), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}

	var doc document
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	if strings.TrimSpace(doc.Profile.Name) == "" {
		return nil, errors.New("content: profile.name is required")
	}
	if err := uniqueSlugs("project", doc.Projects, func(p Project) string { return p.Slug }); err != nil {
		return nil, err
	}
	if err := uniqueSlugs("page", doc.Pages, func(p Page) string { return p.Slug }); err != nil {
		return nil, err
	}

	projects := slices.Clone(doc.Projects)
	slices.SortStableFunc(projects, compareProjects)

	return &Store{
		profile:  doc.Profile,
		projects: projects,
		pages:    slices.Clone(doc.Pages),
		etag:     `"` + common.Sha256Hex(raw) + `"`,
	}, nil
}

func uniqueSlugs[T any](kind string, items []T, slug func(T) string) error {
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		s := strings.TrimSpace(slug(item))
		if s == "" {
			return fmt.Errorf("content: %s #%d has no slug", kind, i+1)
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("content: duplicate %s slug %q", kind, s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

// compareProjects orders featured projects first, then newest, then by title.
func compareProjects(a, b Project) int {
	if a.Featured != b.Featured {
		if a.Featured {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(b.Year, a.Year); c != 0 {
		return c
	}
	return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
}

// ETag identifies the loaded document revision.
func (s *Store) ETag() string { return s.etag }

// Profile returns the owner profile.
func (s *Store) Profile() Profile { return s.profile }

// Projects lists projects, optionally filtered by tag (case-insensitive).
func (s *Store) Projects(tag string) []Project {
	tag = strings.TrimSpace(tag)
	out := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		if tag == "" || slices.ContainsFunc(p.Tags, func(t string) bool { return strings.EqualFold(t, tag) }) {
			out = append(out, p)
		}
	}
	return out
}

// Project returns a single project by slug.
func (s *Store) Project(slug string) (Project, error) {
	for _, p := range s.projects {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Project{}, common.NotFound("project not found")
}

// Pages lists page summaries in document order.
func (s *Store) Pages() []PageSummary {
	out := make([]PageSummary, 0, len(s.pages))
	for _, p := range s.pages {
		out = append(out, PageSummary{Slug: p.Slug, Title: p.Title, UpdatedAt: p.UpdatedAt})
	}
	return out
}

// Page returns a single page by slug.
func (s *Store) Page(slug string) (Page, error) {
	for _, p := range s.pages {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Page{}, common.NotFound("page not found")
}
