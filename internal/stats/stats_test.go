package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/tech-tracker/internal/model"
)

func tech(status model.Status, cat model.Category, hours int) model.Technology {
	return model.Technology{
		Title:          "tech",
		Status:         status,
		Category:       cat,
		Difficulty:     model.DifficultyBeginner,
		Priority:       model.PriorityMedium,
		EstimatedHours: hours,
	}
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil, time.Now())
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0, s.Progress)
	assert.Equal(t, model.Category(""), s.MostPopularCategory)
	assert.Equal(t, 0, s.TotalEstimatedHours)
}

func TestComputeCounts(t *testing.T) {
	items := []model.Technology{
		tech(model.StatusCompleted, model.CategoryBackend, 5),
		tech(model.StatusInProgress, model.CategoryFrontend, 10),
		tech(model.StatusNotStarted, model.CategoryFrontend, 20),
	}
	s := Compute(items, time.Now())

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Completed)
	assert.Equal(t, 1, s.InProgress)
	assert.Equal(t, 1, s.NotStarted)
	assert.Equal(t, 33, s.Progress)
	assert.Equal(t, 2, s.ByCategory[model.CategoryFrontend])
	assert.Equal(t, 3, s.ByDifficulty[model.DifficultyBeginner])
	assert.Equal(t, 3, s.ByPriority[model.PriorityMedium])
	assert.Equal(t, model.CategoryFrontend, s.MostPopularCategory)
	assert.Equal(t, 35, s.TotalEstimatedHours)
	assert.Equal(t, 5, s.CompletedEstimatedHours)
}

func TestComputeProgressRounds(t *testing.T) {
	items := []model.Technology{
		tech(model.StatusCompleted, model.CategoryAI, 1),
		tech(model.StatusCompleted, model.CategoryAI, 1),
		tech(model.StatusNotStarted, model.CategoryAI, 1),
	}
	assert.Equal(t, 67, Compute(items, time.Now()).Progress)
}

func TestMostPopularCategoryTieGoesToFirst(t *testing.T) {
	items := []model.Technology{
		tech(model.StatusNotStarted, model.CategoryDevOps, 1),
		tech(model.StatusNotStarted, model.CategoryDatabase, 1),
		tech(model.StatusNotStarted, model.CategoryDatabase, 1),
		tech(model.StatusNotStarted, model.CategoryDevOps, 1),
	}
	assert.Equal(t, model.CategoryDevOps, Compute(items, time.Now()).MostPopularCategory)
}

func TestComputeOverdue(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	yesterday := model.Day(now.AddDate(0, 0, -1))
	today := model.Day(now)

	late := tech(model.StatusInProgress, model.CategoryTools, 1)
	late.Deadline = &yesterday
	done := tech(model.StatusCompleted, model.CategoryTools, 1)
	done.Deadline = &yesterday
	dueToday := tech(model.StatusNotStarted, model.CategoryTools, 1)
	dueToday.Deadline = &today

	s := Compute([]model.Technology{late, done, dueToday}, now)
	assert.Equal(t, 1, s.Overdue)
}

func TestPercent(t *testing.T) {
	tests := []struct {
		part, total, want int
	}{
		{0, 0, 0},
		{3, 3, 100},
		{1, 2, 50},
		{1, 8, 13},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.part, tt.total), "%d/%d", tt.part, tt.total)
	}
}
