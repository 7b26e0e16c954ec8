package google

import (
	"fmt"
	"strings"
	"time"

	"timetracker/internal/core"
)

// scopeRow is a parsed activity together with its 1-based sheet row number.
type scopeRow struct {
	number   int
	activity core.Activity
}

func toRow(scope core.Scope, a core.Activity) []any {
	created := ""
	if !a.CreatedAt.IsZero() {
		created = a.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []any{scope.UserID, scope.Date.String(), a.ID, a.Name, a.Category, a.Minutes, created}
}

// findScopeRows returns the activities of scope in sheet order. Header rows,
// blank rows and rows without an id are skipped.
func findScopeRows(values [][]any, scope core.Scope) []scopeRow {
	var out []scopeRow
	date := scope.Date.String()
	for i, raw := range values {
		cols := toStrings(raw)
		if len(cols) < 3 || cols[2] == "" || strings.EqualFold(cols[0], "user_id") {
			continue
		}
		if cols[0] != scope.UserID || cols[1] != date {
			continue
		}
		out = append(out, scopeRow{number: i + 1, activity: parseActivity(cols, raw)})
	}
	return out
}

func parseActivity(cols []string, raw []any) core.Activity {
	a := core.Activity{
		ID:       cols[2],
		Name:     safeGet(cols, 3),
		Category: safeGet(cols, 4),
	}
	if len(raw) > 5 {
		a.Minutes = core.CoerceMinutes(raw[5])
	}
	if ts := safeGet(cols, 6); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			a.CreatedAt = t.UTC()
		}
	}
	return a
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
