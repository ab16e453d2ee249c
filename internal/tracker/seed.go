package tracker

import (
	"time"

	"github.com/nhle/tech-tracker/internal/model"
)

// StarterSet returns the collection a fresh profile starts with.
func StarterSet() []model.Technology {
	day := func(month time.Month, d int) time.Time {
		return time.Date(2024, month, d, 0, 0, 0, 0, time.UTC)
	}
	entry := func(id, title, desc string, status model.Status, cat model.Category, diff model.Difficulty, created time.Time, notes string) model.Technology {
		return model.Technology{
			ID:             model.ID(id),
			Title:          title,
			Description:    desc,
			Category:       cat,
			Difficulty:     diff,
			Status:         status,
			Priority:       model.DefaultPriority,
			Notes:          notes,
			EstimatedHours: model.DefaultEstimatedHours,
			CreatedAt:      created,
			UpdatedAt:      created,
		}
	}

	return []model.Technology{
		entry("1", "React Components", "Basic components and their lifecycle",
			model.StatusCompleted, model.CategoryFrontend, model.DifficultyBeginner,
			day(time.January, 15), "Comfortable writing function components"),
		entry("2", "JSX Syntax", "JSX syntax and how it differs from HTML",
			model.StatusInProgress, model.CategoryFrontend, model.DifficultyBeginner,
			day(time.January, 20), "Practising embedded JavaScript expressions"),
		entry("3", "State Management", "Component state with useState",
			model.StatusNotStarted, model.CategoryFrontend, model.DifficultyIntermediate,
			day(time.January, 25), ""),
		entry("4", "Node.js Basics", "Server-side JavaScript and its runtime",
			model.StatusNotStarted, model.CategoryBackend, model.DifficultyBeginner,
			day(time.February, 1), ""),
		entry("5", "REST API", "Designing and consuming RESTful APIs",
			model.StatusInProgress, model.CategoryBackend, model.DifficultyIntermediate,
			day(time.February, 5), "Working through Express.js routing"),
		entry("6", "Database Design", "Schema design and SQL queries",
			model.StatusCompleted, model.CategoryDatabase, model.DifficultyAdvanced,
			day(time.February, 10), "Designed a normalized schema for a blog"),
	}
}
