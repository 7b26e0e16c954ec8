package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"timetracker/internal/core"
)

func TestParseDateParam(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    string
		wantErr bool
	}{
		{name: "valid date", query: "date=2024-03-01", want: "2024-03-01"},
		{name: "padded", query: "date=+2024-03-01+", want: "2024-03-01"},
		{name: "blank is today", query: "", want: core.Today().String()},
		{name: "wrong layout", query: "date=01/03/2024", wantErr: true},
		{name: "impossible day", query: "date=2024-02-30", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			got, err := ParseDateParam(values, "date")
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidInput) {
					t.Fatalf("err = %v, want ErrInvalidInput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("date = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"name":"  Read  ","category":"Study","minutes":60,"date":"2024-03-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/activities", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	p, err := ParseFormBody(req)
	if err != nil {
		t.Fatalf("ParseFormBody: %v", err)
	}
	if !p.IsJSON() {
		t.Error("IsJSON() = false, want true")
	}

	in, err := p.ActivityInput()
	if err != nil {
		t.Fatalf("ActivityInput: %v", err)
	}
	want := core.ActivityInput{Name: "Read", Category: "Study", Minutes: 60}
	if in != want {
		t.Errorf("ActivityInput = %+v, want %+v", in, want)
	}
	date, err := p.Date()
	if err != nil || date.String() != "2024-03-01" {
		t.Errorf("Date = %v, %v; want 2024-03-01", date, err)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	form := url.Values{"name": {"Gym"}, "category": {""}, "minutes": {"45"}, "id": {"abc"}}
	req := httptest.NewRequest(http.MethodPost, "/activities", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p, err := ParseFormBody(req)
	if err != nil {
		t.Fatalf("ParseFormBody: %v", err)
	}
	if p.IsJSON() {
		t.Error("IsJSON() = true, want false")
	}
	if p.Get("id") != "abc" {
		t.Errorf("id = %q, want abc", p.Get("id"))
	}
	in, err := p.ActivityInput()
	if err != nil {
		t.Fatalf("ActivityInput: %v", err)
	}
	if in.Name != "Gym" || in.Category != "" || in.Minutes != 45 {
		t.Errorf("ActivityInput = %+v", in)
	}
	date, err := p.Date()
	if err != nil || date.String() != core.Today().String() {
		t.Errorf("Date = %v, %v; want today", date, err)
	}
}

func TestRequestBodyParser_Minutes(t *testing.T) {
	tests := []struct {
		minutes string
		wantErr bool
	}{
		{"60", false},
		{"1440", false},
		{"", true},
		{"abc", true},
		{"1.5", true},
		{"0", true},
		{"-5", true},
	}

	for _, tt := range tests {
		t.Run(tt.minutes, func(t *testing.T) {
			form := url.Values{"name": {"x"}, "minutes": {tt.minutes}}
			req := httptest.NewRequest(http.MethodPost, "/activities", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			p, err := ParseFormBody(req)
			if err != nil {
				t.Fatalf("ParseFormBody: %v", err)
			}
			_, err = p.ActivityInput()
			if tt.wantErr && !errors.Is(err, core.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/activities", nil)
	p, err := ParseFormBody(req)
	if err != nil {
		t.Fatalf("ParseFormBody: %v", err)
	}
	if p.Get("name") != "" {
		t.Errorf("name = %q, want empty", p.Get("name"))
	}
}

func TestParseFormBody_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/activities", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")

	_, err := ParseFormBody(req)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Read  ", "Read"},
		{"Read\x00ing", "Reading"},
		{"line\nbreak", "line\nbreak"},
		{"\x07bell", "bell"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
