package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryMinutes is the minutes aggregated under one category label.
type CategoryMinutes struct {
	Label   string
	Minutes int
}

// DaySummary is the rendering bundle for one scope.
type DaySummary struct {
	Date             Date
	Activities       []Activity
	TotalMinutes     int
	TotalHours       decimal.Decimal
	ActivityCount    int
	RemainingMinutes int
	Analysable       bool
	ByCategory       []CategoryMinutes
}

// Pie chart colours, cycled when there are more categories than entries.
var ChartPalette = []string{
	"#4F46E5", "#22C55E", "#EF4444", "#F59E0B", "#06B6D4", "#A855F7", "#64748B",
}

// ChartConfig is the pie chart description handed to the renderer.
type ChartConfig struct {
	Type   string   `json:"type"`
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
	Colors []string `json:"colors"`
	Legend string   `json:"legend"`
}

// SortActivities orders activities by creation time, oldest first. The sort is
// stable and activities without a timestamp sort first.
func SortActivities(items []Activity) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdUnix(items[i]) < createdUnix(items[j])
	})
}

func createdUnix(a Activity) int64 {
	if a.CreatedAt.IsZero() {
		return 0
	}
	return a.CreatedAt.Unix()
}

func contribution(m int) int {
	if m < 0 {
		return 0
	}
	return m
}

// TotalMinutes sums minutes, treating negative values as 0.
func TotalMinutes(items []Activity) int {
	total := 0
	for _, a := range items {
		total += contribution(a.Minutes)
	}
	return total
}

// TotalHours converts minutes to hours rounded to two decimals.
func TotalHours(items []Activity) decimal.Decimal {
	return MinutesToHours(TotalMinutes(items))
}

// MinutesToHours converts a minute count to hours rounded to two decimals.
func MinutesToHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2)
}

// FormatHours renders hours with exactly two decimals, e.g. "1.50".
func FormatHours(h decimal.Decimal) string {
	return h.StringFixed(2)
}

// ActivityCount returns the number of activities in the snapshot.
func ActivityCount(items []Activity) int {
	return len(items)
}

// ByCategory groups minutes by trimmed category, blanks under
// UncategorizedLabel, preserving the order in which labels are first seen.
func ByCategory(items []Activity) []CategoryMinutes {
	out := make([]CategoryMinutes, 0)
	index := make(map[string]int)
	for _, a := range items {
		label := a.CategoryLabel()
		i, ok := index[label]
		if !ok {
			i = len(out)
			index[label] = i
			out = append(out, CategoryMinutes{Label: label})
		}
		out[i].Minutes += contribution(a.Minutes)
	}
	return out
}

// RemainingMinutes returns the unused part of the day budget, never negative.
func RemainingMinutes(total int) int {
	if r := DayBudgetMinutes - total; r > 0 {
		return r
	}
	return 0
}

// IsAnalysable reports whether a day total can be analysed.
func IsAnalysable(total int) bool {
	return total > 0 && total <= DayBudgetMinutes
}

// Summarize computes every aggregate over a snapshot. The input is not modified.
func Summarize(date Date, items []Activity) DaySummary {
	snapshot := make([]Activity, len(items))
	copy(snapshot, items)
	total := TotalMinutes(snapshot)
	return DaySummary{
		Date:             date,
		Activities:       snapshot,
		TotalMinutes:     total,
		TotalHours:       MinutesToHours(total),
		ActivityCount:    len(snapshot),
		RemainingMinutes: RemainingMinutes(total),
		Analysable:       IsAnalysable(total),
		ByCategory:       ByCategory(snapshot),
	}
}

// Chart builds the pie chart config for the summary's categories.
func (s DaySummary) Chart() ChartConfig {
	cfg := ChartConfig{
		Type:   "pie",
		Labels: make([]string, 0, len(s.ByCategory)),
		Values: make([]int, 0, len(s.ByCategory)),
		Colors: make([]string, 0, len(s.ByCategory)),
		Legend: "bottom",
	}
	for i, c := range s.ByCategory {
		cfg.Labels = append(cfg.Labels, c.Label)
		cfg.Values = append(cfg.Values, c.Minutes)
		cfg.Colors = append(cfg.Colors, ChartPalette[i%len(ChartPalette)])
	}
	return cfg
}

// HasData reports whether there is anything to chart.
func (s DaySummary) HasData() bool {
	return s.TotalMinutes > 0
}

// CategoryMap returns the category breakdown as a map, for callers that do not
// care about order.
func (s DaySummary) CategoryMap() map[string]int {
	m := make(map[string]int, len(s.ByCategory))
	for _, c := range s.ByCategory {
		m[c.Label] = c.Minutes
	}
	return m
}
