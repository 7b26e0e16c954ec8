// Package http provides HTTP server and handler implementations.
//
// This file implements helpers for reading activity input from forms, JSON
// bodies and query strings.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"timetracker/internal/core"
)

const maxBodyBytes = 64 << 10

// ParseDateParam reads a YYYY-MM-DD value from values[key]. Blank means today.
func ParseDateParam(values url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(values.Get(key))
	if v == "" {
		return core.Today(), nil
	}
	return core.ParseDate(v)
}

// RequestBodyParser reads a JSON or form-encoded body once and answers Get
// lookups against whichever it was.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most 64KiB of the request body.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}
	if strings.Contains(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ActivityInput extracts name, category and minutes. Minutes that are not a
// positive whole number are InvalidInput; the remaining rules are checked by
// the ledger.
func (p *RequestBodyParser) ActivityInput() (core.ActivityInput, error) {
	minutes, err := core.ParseMinutes(p.Get("minutes"))
	if err != nil {
		return core.ActivityInput{}, err
	}
	return core.ActivityInput{
		Name:     p.Get("name"),
		Category: p.Get("category"),
		Minutes:  minutes,
	}, nil
}

// Date reads the "date" field, defaulting to today.
func (p *RequestBodyParser) Date() (core.Date, error) {
	return ParseDateParam(url.Values{"date": {p.Get("date")}}, "date")
}

// ParseFormBody is NewRequestBodyParser plus Parse, with parse failures
// reported as InvalidInput.
func ParseFormBody(r *http.Request) (*RequestBodyParser, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return nil, fmt.Errorf("%w: malformed request body", core.ErrInvalidInput)
	}
	return p, nil
}
