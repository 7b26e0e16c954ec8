package http

import (
	"encoding/json"
	"strconv"
	"time"

	"timetracker/internal/core"
)

// activityView is one row of the day list.
type activityView struct {
	ID       string
	Name     string
	Category string
	Minutes  int
	// Detail is the secondary line, e.g. "Study • 60m".
	Detail string
}

type categoryView struct {
	Label   string
	Minutes int
	Hours   string
}

// analysisView is the dashboard shown under an analysable day.
type analysisView struct {
	TotalHours string
	Count      int
	Categories []categoryView
	ChartJSON  string
}

// dayView is the data behind the day partial.
type dayView struct {
	Date             string
	Today            string
	Activities       []activityView
	TotalMinutes     int
	RemainingMinutes int
	Analysable       bool
	Analysis         *analysisView
	// NoData is set for a day without activities.
	NoData bool
	Error  string
}

func newDayView(s core.DaySummary) dayView {
	v := dayView{
		Date:             s.Date.String(),
		Today:            core.Today().String(),
		Activities:       make([]activityView, 0, len(s.Activities)),
		TotalMinutes:     s.TotalMinutes,
		RemainingMinutes: s.RemainingMinutes,
		Analysable:       s.Analysable,
	}
	for _, a := range s.Activities {
		v.Activities = append(v.Activities, activityView{
			ID:       a.ID,
			Name:     a.Name,
			Category: a.Category,
			Minutes:  a.Minutes,
			Detail:   a.CategoryLabel() + " • " + strconv.Itoa(a.Minutes) + "m",
		})
	}
	if s.Analysable {
		v.Analysis = newAnalysisView(s)
	}
	v.NoData = len(s.Activities) == 0
	return v
}

func newAnalysisView(s core.DaySummary) *analysisView {
	a := &analysisView{
		TotalHours: core.FormatHours(s.TotalHours),
		Count:      s.ActivityCount,
	}
	for _, c := range s.ByCategory {
		a.Categories = append(a.Categories, categoryView{
			Label:   c.Label,
			Minutes: c.Minutes,
			Hours:   core.FormatHours(core.MinutesToHours(c.Minutes)),
		})
	}
	if b, err := json.Marshal(s.Chart()); err == nil {
		a.ChartJSON = string(b)
	}
	return a
}

// JSON bundle returned by /api/day and the mutating API calls.
type (
	activityJSON struct {
		ID        string     `json:"id"`
		Name      string     `json:"name"`
		Category  string     `json:"category"`
		Minutes   int        `json:"minutes"`
		CreatedAt *time.Time `json:"created_at,omitempty"`
	}

	categoryJSON struct {
		Label   string `json:"label"`
		Minutes int    `json:"minutes"`
	}

	dayJSON struct {
		Date             string           `json:"date"`
		Activities       []activityJSON   `json:"activities"`
		TotalMinutes     int              `json:"total_minutes"`
		TotalHours       string           `json:"total_hours"`
		ActivityCount    int              `json:"activity_count"`
		RemainingMinutes int              `json:"remaining_minutes"`
		Analysable       bool             `json:"analysable"`
		ByCategory       []categoryJSON   `json:"by_category"`
		Chart            core.ChartConfig `json:"chart"`
	}
)

func toActivityJSON(a core.Activity) activityJSON {
	out := activityJSON{ID: a.ID, Name: a.Name, Category: a.Category, Minutes: a.Minutes}
	if !a.CreatedAt.IsZero() {
		t := a.CreatedAt.UTC()
		out.CreatedAt = &t
	}
	return out
}

func newDayJSON(s core.DaySummary) dayJSON {
	out := dayJSON{
		Date:             s.Date.String(),
		Activities:       make([]activityJSON, 0, len(s.Activities)),
		TotalMinutes:     s.TotalMinutes,
		TotalHours:       core.FormatHours(s.TotalHours),
		ActivityCount:    s.ActivityCount,
		RemainingMinutes: s.RemainingMinutes,
		Analysable:       s.Analysable,
		ByCategory:       make([]categoryJSON, 0, len(s.ByCategory)),
		Chart:            s.Chart(),
	}
	for _, a := range s.Activities {
		out.Activities = append(out.Activities, toActivityJSON(a))
	}
	for _, c := range s.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryJSON{Label: c.Label, Minutes: c.Minutes})
	}
	return out
}
