package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DayBudgetMinutes is the number of minutes available in a single day.
	DayBudgetMinutes = 1440

	// UncategorizedLabel groups activities whose category is blank.
	UncategorizedLabel = "Uncategorized"

	// DateLayout is the ISO-8601 calendar date used to key days.
	DateLayout = "2006-01-02"

	maxNameLength     = 200
	maxCategoryLength = 100
)

type (
	Date struct {
		time.Time
	}

	// Scope identifies the activities of one user on one calendar day.
	Scope struct {
		UserID string
		Date   Date
	}

	Activity struct {
		ID        string
		Name      string
		Category  string
		Minutes   int
		CreatedAt time.Time // zero until the store assigns it
	}

	// ActivityInput is the caller-supplied part of an activity used by add and edit.
	ActivityInput struct {
		Name     string
		Category string
		Minutes  int
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, s)
	}
	return Date{Time: t}, nil
}

// Today returns the current UTC calendar date.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidInput)
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// NewScope validates and builds a scope from a user id and a YYYY-MM-DD date.
func NewScope(userID, date string) (Scope, error) {
	d, err := ParseDate(date)
	if err != nil {
		return Scope{}, err
	}
	s := Scope{UserID: strings.TrimSpace(userID), Date: d}
	if err := s.Validate(); err != nil {
		return Scope{}, err
	}
	return s, nil
}

func (s Scope) Validate() error {
	if s.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Date.Validate()
}

// Key returns a stable string form of the scope, e.g. for cache keys and logs.
func (s Scope) Key() string {
	return s.UserID + "/" + s.Date.String()
}

// Normalize trims name and category.
func (in ActivityInput) Normalize() ActivityInput {
	return ActivityInput{
		Name:     strings.TrimSpace(in.Name),
		Category: strings.TrimSpace(in.Category),
		Minutes:  in.Minutes,
	}
}

// Validate checks the advisory rules shared by add and edit. Lengths count
// characters, like the form's maxlength. The daily budget is checked by the
// Ledger, which knows the current total.
func (in ActivityInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.Name) > maxNameLength {
		return fmt.Errorf("%w: name too long (max %d characters)", ErrInvalidInput, maxNameLength)
	}
	if utf8.RuneCountInString(in.Category) > maxCategoryLength {
		return fmt.Errorf("%w: category too long (max %d characters)", ErrInvalidInput, maxCategoryLength)
	}
	if in.Minutes <= 0 {
		return fmt.Errorf("%w: minutes must be a positive integer", ErrInvalidInput)
	}
	if in.Minutes > DayBudgetMinutes {
		return fmt.Errorf("%w: %d minutes exceeds the %d minute day", ErrBudgetExceeded, in.Minutes, DayBudgetMinutes)
	}
	return nil
}

// ParseMinutes parses a user-entered minutes value. Blank, non-numeric,
// fractional, zero and negative values are all InvalidInput.
func ParseMinutes(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: minutes are required", ErrInvalidInput)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: minutes %q is not a whole number", ErrInvalidInput, s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: minutes must be a positive integer", ErrInvalidInput)
	}
	return n, nil
}

// CoerceMinutes converts a stored minutes value into an int for aggregation.
// Historical rows may hold strings, floats or garbage; anything that is not a
// finite non-negative number contributes 0.
func CoerceMinutes(v any) int {
	switch val := v.(type) {
	case int:
		return clampMinutes(int64(val))
	case int32:
		return clampMinutes(int64(val))
	case int64:
		return clampMinutes(val)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0
		}
		return clampMinutes(int64(val))
	case string:
		s := strings.TrimSpace(val)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return clampMinutes(n)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return CoerceMinutes(f)
		}
		return 0
	case []byte:
		return CoerceMinutes(string(val))
	default:
		return 0
	}
}

func clampMinutes(n int64) int {
	if n < 0 {
		return 0
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// Input returns the mutable part of the activity.
func (a Activity) Input() ActivityInput {
	return ActivityInput{Name: a.Name, Category: a.Category, Minutes: a.Minutes}
}

// CategoryLabel returns the display category, with blanks mapped to Uncategorized.
func (a Activity) CategoryLabel() string {
	return NormalizeCategory(a.Category)
}

// NormalizeCategory trims a category and maps blanks to UncategorizedLabel.
func NormalizeCategory(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return UncategorizedLabel
	}
	return c
}
