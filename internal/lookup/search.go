package lookup

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nhle/tech-tracker/internal/model"
	"github.com/nhle/tech-tracker/internal/validation"
)

// DefaultLimit caps results when the caller passes a non-positive limit.
const DefaultLimit = 5

// Candidate is a repository that could become a tracked technology.
type Candidate struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    model.Category `json:"category"`
	Stars       int            `json:"stars"`
	URL         string         `json:"url"`
	Language    string         `json:"language"`
	Forks       int            `json:"forks"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Draft maps the candidate into a draft ready for the tracker. The
// repository URL lands in the notes. Names and descriptions are fitted to
// the tracker's length limits: a short name becomes owner/name from the URL,
// a short description is padded and a long one is cut.
func (c Candidate) Draft() model.Draft {
	var tags []string
	if c.Language != "" {
		tags = []string{strings.ToLower(c.Language)}
	}
	return model.Draft{
		Title:       c.title(),
		Description: c.description(),
		Category:    c.Category,
		Notes:       c.URL,
		Tags:        tags,
	}
}

func (c Candidate) title() string {
	name := strings.TrimSpace(c.Name)
	if utf8.RuneCountInString(name) >= validation.MinTitleLen {
		return name
	}
	if u, err := url.Parse(c.URL); err == nil {
		if path := strings.Trim(u.Path, "/"); utf8.RuneCountInString(path) >= validation.MinTitleLen {
			return path
		}
	}
	return name + " repository"
}

func (c Candidate) description() string {
	desc := strings.TrimSpace(c.Description)
	if desc == "" {
		return "No description provided"
	}
	if utf8.RuneCountInString(desc) < validation.MinDescriptionLen {
		if c.Language != "" {
			return fmt.Sprintf("%s (%s repository)", desc, c.Language)
		}
		return desc + " (repository)"
	}
	if runes := []rune(desc); len(runes) > validation.MaxDescriptionLen {
		return string(runes[:validation.MaxDescriptionLen-1]) + "…"
	}
	return desc
}

type searchResponse struct {
	TotalCount int          `json:"total_count"`
	Items      []repository `json:"items"`
}

type repository struct {
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	Description     *string   `json:"description"`
	HTMLURL         string    `json:"html_url"`
	Language        *string   `json:"language"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Searcher finds candidates for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// Search queries repositories matching query, most starred first. When
// language is set on the client the query is narrowed to it.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Candidate{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	q := query
	if c.language != "" {
		q += " language:" + c.language
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("sort", "stars")
	params.Set("order", "desc")
	params.Set("per_page", strconv.Itoa(limit))

	var resp searchResponse
	if err := c.get(ctx, "/search/repositories?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("searching repositories for %q: %w", query, err)
	}

	out := make([]Candidate, 0, len(resp.Items))
	for _, r := range resp.Items {
		if len(out) >= limit {
			break
		}
		out = append(out, r.candidate())
	}
	c.logger.Debug("repository search done", zap.String("query", query), zap.Int("results", len(out)))
	return out, nil
}

func (r repository) candidate() Candidate {
	var desc, lang string
	if r.Description != nil {
		desc = *r.Description
	}
	if r.Language != nil {
		lang = *r.Language
	}
	return Candidate{
		Name:        r.Name,
		Description: desc,
		Category:    DetectCategory(r.Name, desc, lang),
		Stars:       r.StargazersCount,
		URL:         r.HTMLURL,
		Language:    lang,
		Forks:       r.ForksCount,
		UpdatedAt:   r.UpdatedAt,
	}
}

// SearchOrEmpty runs s and treats any failure as no results. The failure is
// logged, never returned.
func SearchOrEmpty(ctx context.Context, s Searcher, query string, limit int, logger *zap.Logger) []Candidate {
	if s == nil {
		return nil
	}
	out, err := s.Search(ctx, query, limit)
	if err != nil {
		if logger != nil {
			logger.Warn("lookup failed", zap.String("query", query), zap.Error(err))
		}
		return nil
	}
	return out
}

// DetectCategory guesses a category from a repository's name, description
// and primary language. Rules are checked in order; the first match wins.
func DetectCategory(name, description, language string) model.Category {
	name = strings.ToLower(name)
	description = strings.ToLower(description)
	language = strings.ToLower(language)

	has := func(s string, subs ...string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}

	switch {
	case has(name, "react", "vue", "angular") || has(description, "frontend") ||
		language == "javascript" || language == "typescript":
		return model.CategoryFrontend
	case has(name, "node", "express", "nestjs") || has(description, "backend", "server") ||
		language == "python" || language == "java" || language == "go":
		return model.CategoryBackend
	case has(name, "mongo", "postgres", "mysql") || has(description, "database", "db"):
		return model.CategoryDatabase
	case has(name, "docker", "kubernetes", "aws"):
		return model.CategoryDevOps
	}
	return model.CategoryTools
}

// Popular returns a small built-in catalog of well-known technologies,
// narrowed to those whose name or description contains query.
func Popular(query string, limit int) []Candidate {
	catalog := []Candidate{
		{Name: "React", Description: "JavaScript library for building user interfaces", Category: model.CategoryFrontend, Stars: 210000, URL: "https://react.dev", Language: "JavaScript"},
		{Name: "Node.js", Description: "Server-side JavaScript runtime", Category: model.CategoryBackend, Stars: 96000, URL: "https://nodejs.org", Language: "JavaScript"},
		{Name: "Vue.js", Description: "Progressive framework for building user interfaces", Category: model.CategoryFrontend, Stars: 204000, URL: "https://vuejs.org", Language: "TypeScript"},
		{Name: "Express", Description: "Minimal web framework for Node.js", Category: model.CategoryBackend, Stars: 62000, URL: "https://expressjs.com", Language: "JavaScript"},
		{Name: "MongoDB", Description: "Document-oriented database", Category: model.CategoryDatabase, Stars: 24000, URL: "https://www.mongodb.com", Language: "C++"},
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := []Candidate{}
	for _, c := range catalog {
		if limit > 0 && len(out) >= limit {
			break
		}
		if q == "" || strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Description), q) {
			out = append(out, c)
		}
	}
	return out
}
