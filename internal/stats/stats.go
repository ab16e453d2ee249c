// Package stats aggregates counts over a technology collection.
package stats

import (
	"math"
	"time"

	"github.com/nhle/tech-tracker/internal/model"
)

// Stats is a derived, read-only summary of a collection.
type Stats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	NotStarted int `json:"notStarted"`

	// Progress is round(100 * completed / total), 0 for an empty collection.
	Progress int `json:"progress"`

	ByStatus     map[model.Status]int     `json:"byStatus"`
	ByCategory   map[model.Category]int   `json:"byCategory"`
	ByDifficulty map[model.Difficulty]int `json:"byDifficulty"`
	ByPriority   map[model.Priority]int   `json:"byPriority"`

	// MostPopularCategory is the most frequent category; ties go to the
	// category encountered first. Empty when the collection is empty.
	MostPopularCategory model.Category `json:"mostPopularCategory"`

	TotalEstimatedHours     int `json:"totalEstimatedHours"`
	CompletedEstimatedHours int `json:"completedEstimatedHours"`
	Overdue                 int `json:"overdue"`
}

// Compute summarizes items. now is only used for the overdue count.
func Compute(items []model.Technology, now time.Time) Stats {
	s := Stats{
		Total:        len(items),
		ByStatus:     make(map[model.Status]int, len(model.Statuses)),
		ByCategory:   make(map[model.Category]int),
		ByDifficulty: make(map[model.Difficulty]int),
		ByPriority:   make(map[model.Priority]int),
	}

	var categoryOrder []model.Category
	for _, t := range items {
		s.ByStatus[t.Status]++
		if _, seen := s.ByCategory[t.Category]; !seen {
			categoryOrder = append(categoryOrder, t.Category)
		}
		s.ByCategory[t.Category]++
		s.ByDifficulty[t.Difficulty]++
		s.ByPriority[t.Priority]++

		s.TotalEstimatedHours += t.EstimatedHours
		if t.IsCompleted() {
			s.CompletedEstimatedHours += t.EstimatedHours
		}
		if t.IsOverdue(now) {
			s.Overdue++
		}
	}

	s.Completed = s.ByStatus[model.StatusCompleted]
	s.InProgress = s.ByStatus[model.StatusInProgress]
	s.NotStarted = s.ByStatus[model.StatusNotStarted]
	s.Progress = Percent(s.Completed, s.Total)

	best := 0
	for _, c := range categoryOrder {
		if n := s.ByCategory[c]; n > best {
			best = n
			s.MostPopularCategory = c
		}
	}

	return s
}

// Percent returns round(100 * part / total), or 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}
