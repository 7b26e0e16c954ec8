package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"timetracker/internal/auth"
	"timetracker/internal/core"
	"timetracker/internal/store"
	"timetracker/internal/store/memory"
)

const (
	testSecret = "0123456789abcdef0123"
	testUser   = "user-1"
	testDate   = "2024-03-01"
)

// failingStore fails every call, as a store that is down would.
type failingStore struct{}

var errDown = errors.New("connection refused")

func (failingStore) ListActivities(context.Context, core.Scope) ([]core.Activity, error) {
	return nil, errDown
}

func (failingStore) CreateActivity(context.Context, core.Scope, core.ActivityInput) (core.Activity, error) {
	return core.Activity{}, errDown
}

func (failingStore) UpdateActivity(context.Context, core.Scope, string, core.ActivityInput) error {
	return errDown
}

func (failingStore) DeleteActivity(context.Context, core.Scope, string) error { return errDown }

func (failingStore) Ping(context.Context) error { return errDown }

func newTestServer(t *testing.T, st store.ActivityStore) *Server {
	t.Helper()
	srv := NewServer(":0", st, Options{Auth: auth.Config{Secret: testSecret}})
	if srv.templates == nil {
		t.Fatal("templates failed to parse")
	}
	t.Cleanup(func() { srv.limiter.Stop() })
	return srv
}

func testToken(t *testing.T) string {
	t.Helper()
	tok, err := auth.Issue(auth.Config{Secret: testSecret},
		auth.Claims{Subject: testUser, Name: "Ada"}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func do(t *testing.T, srv *Server, req *http.Request, signedIn bool) *httptest.ResponseRecorder {
	t.Helper()
	if signedIn {
		req.Header.Set("Authorization", "Bearer "+testToken(t))
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func testScope(t *testing.T) core.Scope {
	t.Helper()
	scope, err := core.NewScope(testUser, testDate)
	if err != nil {
		t.Fatalf("scope: %v", err)
	}
	return scope
}

func seed(t *testing.T, st *memory.Store, items ...core.ActivityInput) []core.Activity {
	t.Helper()
	var out []core.Activity
	for _, in := range items {
		a, err := st.CreateActivity(context.Background(), testScope(t), in)
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		out = append(out, a)
	}
	return out
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, memory.New())

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, httptest.NewRequest(http.MethodGet, path, nil), false)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s missing X-Request-ID", path)
		}
	}
}

func TestReadyReportsStoreFailure(t *testing.T) {
	srv := newTestServer(t, failingStore{})

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/readyz", nil), false)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "not_ready") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestSignedOutRequests(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil), false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/signin" {
		t.Errorf("index: status=%d location=%q, want 303 /signin", rr.Code, rr.Header().Get("Location"))
	}

	req := httptest.NewRequest(http.MethodGet, "/ui/day?date="+testDate, nil)
	req.Header.Set("HX-Request", "true")
	rr = do(t, srv, req, false)
	if rr.Code != http.StatusUnauthorized || rr.Header().Get("HX-Redirect") != "/signin" {
		t.Errorf("partial: status=%d hx-redirect=%q", rr.Code, rr.Header().Get("HX-Redirect"))
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/day", nil), false)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("api: status=%d, want 401", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"unauthorized"`) {
		t.Errorf("api body = %s", rr.Body.String())
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/signin", nil), false)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `action="/session"`) {
		t.Errorf("signin: status=%d", rr.Code)
	}
}

func TestIndexRendersDay(t *testing.T) {
	st := memory.New()
	srv := newTestServer(t, st)
	seed(t, st, core.ActivityInput{Name: "Read", Category: "Study", Minutes: 60})

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/?date="+testDate, nil), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Ada", "Read", "Study • 60m", "<strong>1380</strong>", `id="day"`} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
}

func TestIndexShowsStoreErrorInline(t *testing.T) {
	srv := newTestServer(t, failingStore{})

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Storage is unavailable") {
		t.Errorf("body missing store error")
	}
}

func TestActivityFormLifecycle(t *testing.T) {
	st := memory.New()
	srv := newTestServer(t, st)

	rr := do(t, srv, formRequest("/activities", url.Values{
		"date": {testDate}, "name": {" Read "}, "category": {"Study"}, "minutes": {"60"},
	}), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("add status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "<strong>1380</strong>") {
		t.Errorf("add: remaining minutes not updated")
	}
	trigger := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, "activity:add") || !strings.Contains(trigger, "form:reset") {
		t.Errorf("add: HX-Trigger = %s", trigger)
	}

	items, err := st.ListActivities(context.Background(), testScope(t))
	if err != nil || len(items) != 1 {
		t.Fatalf("store after add: %v, %v", items, err)
	}
	if items[0].Name != "Read" {
		t.Errorf("stored name = %q, want trimmed", items[0].Name)
	}
	id := items[0].ID

	rr = do(t, srv, formRequest("/activities/update", url.Values{
		"date": {testDate}, "id": {id}, "name": {"Read"}, "category": {"Books"}, "minutes": {"90"},
	}), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("edit status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Books • 90m") {
		t.Errorf("edit: updated detail missing")
	}
	if strings.Contains(rr.Header().Get("HX-Trigger"), "form:reset") {
		t.Errorf("edit should not reset the add form")
	}

	rr = do(t, srv, formRequest("/activities/delete", url.Values{"date": {testDate}, "id": {id}}), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "No activities recorded") {
		t.Errorf("delete: empty state missing")
	}
	items, _ = st.ListActivities(context.Background(), testScope(t))
	if len(items) != 0 {
		t.Errorf("store after delete has %d items", len(items))
	}
}

func TestActivityFormErrors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		form       url.Values
		wantStatus int
		wantText   string
	}{
		{
			name:       "non numeric minutes",
			path:       "/activities",
			form:       url.Values{"name": {"Read"}, "minutes": {"abc"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantText:   "whole number",
		},
		{
			name:       "blank name",
			path:       "/activities",
			form:       url.Values{"name": {"   "}, "minutes": {"10"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantText:   "name is required",
		},
		{
			name:       "over budget",
			path:       "/activities",
			form:       url.Values{"name": {"Gym"}, "minutes": {"1400"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantText:   "daily budget exceeded",
		},
		{
			name:       "bad date",
			path:       "/activities",
			form:       url.Values{"name": {"Read"}, "minutes": {"10"}, "date": {"yesterday"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantText:   "YYYY-MM-DD",
		},
		{
			name:       "edit unknown id",
			path:       "/activities/update",
			form:       url.Values{"id": {"missing"}, "name": {"Read"}, "minutes": {"10"}},
			wantStatus: http.StatusNotFound,
			wantText:   "Activity not found",
		},
		{
			name:       "delete without id",
			path:       "/activities/delete",
			form:       url.Values{},
			wantStatus: http.StatusUnprocessableEntity,
			wantText:   "activity id is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memory.New()
			srv := newTestServer(t, st)
			seed(t, st, core.ActivityInput{Name: "Read", Minutes: 60})

			if tt.form.Get("date") == "" {
				tt.form.Set("date", testDate)
			}
			rr := do(t, srv, formRequest(tt.path, tt.form), true)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d, want %d (body=%s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if rr.Header().Get("HX-Retarget") != "#messages" {
				t.Errorf("HX-Retarget = %q, want #messages", rr.Header().Get("HX-Retarget"))
			}
			if !strings.Contains(rr.Body.String(), tt.wantText) {
				t.Errorf("body %q missing %q", rr.Body.String(), tt.wantText)
			}

			items, _ := st.ListActivities(context.Background(), testScope(t))
			if len(items) != 1 || items[0].Minutes != 60 {
				t.Errorf("day changed after rejected request: %+v", items)
			}
		})
	}
}

func TestStoreFailureIsServiceUnavailable(t *testing.T) {
	srv := newTestServer(t, failingStore{})

	rr := do(t, srv, formRequest("/activities", url.Values{
		"date": {testDate}, "name": {"Read"}, "minutes": {"60"},
	}), true)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("form status=%d, want 503", rr.Code)
	}
	if strings.Contains(rr.Body.String(), errDown.Error()) {
		t.Errorf("store detail leaked to the page: %s", rr.Body.String())
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/day?date="+testDate, nil), true)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("api status=%d, want 503", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), core.KindStoreUnavailable) {
		t.Errorf("api body = %s", rr.Body.String())
	}
}

func TestDayPartialAnalyse(t *testing.T) {
	st := memory.New()
	srv := newTestServer(t, st)

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/ui/day?date="+testDate, nil), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "No data to analyse") {
		t.Errorf("empty day should show the no data state")
	}
	if strings.Contains(rr.Body.String(), "data-chart") {
		t.Errorf("empty day should not render a chart")
	}

	seed(t, st,
		core.ActivityInput{Name: "Read", Category: "Study", Minutes: 60},
		core.ActivityInput{Name: "Walk", Minutes: 30},
	)
	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/ui/day?date="+testDate, nil), true)
	body := rr.Body.String()
	for _, want := range []string{"data-chart=", "Total hours", "1.50", "Uncategorized"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
	if strings.Contains(body, "No data to analyse") {
		t.Errorf("no data state shown for a recorded day")
	}
}

func TestDashboardShownOnLoadAndAfterChanges(t *testing.T) {
	st := memory.New()
	srv := newTestServer(t, st)

	rr := do(t, srv, formRequest("/activities", url.Values{
		"date": {testDate}, "name": {"Read"}, "category": {"Study"}, "minutes": {"60"},
	}), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("add status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `class="dashboard"`) {
		t.Errorf("add response lacks the dashboard")
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/?date="+testDate, nil), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{`class="dashboard"`, "data-chart=", "1.00"} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}

	items, err := st.ListActivities(context.Background(), testScope(t))
	if err != nil || len(items) != 1 {
		t.Fatalf("stored items=%v err=%v", items, err)
	}
	id := items[0].ID
	rr = do(t, srv, formRequest("/activities/delete", url.Values{"date": {testDate}, "id": {id}}), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), `class="dashboard"`) {
		t.Errorf("dashboard left behind after the last delete")
	}
	if !strings.Contains(rr.Body.String(), "No data to analyse") {
		t.Errorf("emptied day should show the no data state")
	}
}

func TestAPIDayBundle(t *testing.T) {
	st := memory.New()
	srv := newTestServer(t, st)
	seed(t, st,
		core.ActivityInput{Name: "Read", Category: "Study", Minutes: 60},
		core.ActivityInput{Name: "Gym", Category: " ", Minutes: 90},
	)

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/day?date="+testDate, nil), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var day dayJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &day); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if day.Date != testDate || day.TotalMinutes != 150 || day.TotalHours != "2.50" {
		t.Errorf("totals = %+v", day)
	}
	if day.ActivityCount != 2 || day.RemainingMinutes != 1290 || !day.Analysable {
		t.Errorf("counts = %+v", day)
	}
	if len(day.ByCategory) != 2 || day.ByCategory[0].Label != "Study" || day.ByCategory[1].Label != core.UncategorizedLabel {
		t.Errorf("by_category = %+v", day.ByCategory)
	}
	if len(day.Chart.Labels) != 2 || day.Chart.Values[1] != 90 {
		t.Errorf("chart = %+v", day.Chart)
	}
}

func TestAPIActivityLifecycle(t *testing.T) {
	st := memory.New()
	srv := newTestServer(t, st)

	rr := do(t, srv, jsonRequest(http.MethodPost, "/api/activities",
		`{"date":"`+testDate+`","name":"Read","category":"Study","minutes":60}`), true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created activityResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Activity == nil || created.Activity.ID == "" || created.Activity.CreatedAt == nil {
		t.Fatalf("created activity = %+v", created.Activity)
	}
	if created.Day.TotalMinutes != 60 {
		t.Errorf("day total = %d, want 60", created.Day.TotalMinutes)
	}
	id := created.Activity.ID

	rr = do(t, srv, jsonRequest(http.MethodPut, "/api/activities/"+id,
		`{"date":"`+testDate+`","name":"Read","minutes":1500}`), true)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), core.KindBudgetExceeded) {
		t.Errorf("over budget edit: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, jsonRequest(http.MethodPut, "/api/activities/"+id,
		`{"date":"`+testDate+`","name":"Read","minutes":1440}`), true)
	if rr.Code != http.StatusOK {
		t.Errorf("edit to full day: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, jsonRequest(http.MethodPut, "/api/activities/nope",
		`{"date":"`+testDate+`","name":"Read","minutes":10}`), true)
	if rr.Code != http.StatusNotFound || !strings.Contains(rr.Body.String(), core.KindNotFound) {
		t.Errorf("unknown edit: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodDelete, "/api/activities/"+id+"?date="+testDate, nil), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = do(t, srv, httptest.NewRequest(http.MethodDelete, "/api/activities/"+id+"?date="+testDate, nil), true)
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete status=%d, want 404", rr.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t, memory.New())

	req := httptest.NewRequest(http.MethodPost, "/session",
		strings.NewReader(url.Values{"token": {testToken(t)}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := do(t, srv, req, false)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("session status=%d body=%s", rr.Code, rr.Body.String())
	}
	var session *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			session = c
		}
	}
	if session == nil || !session.HttpOnly {
		t.Fatalf("session cookie = %+v", session)
	}

	// The cookie alone signs the browser in.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(session)
	rr = do(t, srv, req, false)
	if rr.Code != http.StatusOK {
		t.Errorf("index with cookie status=%d", rr.Code)
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodPost, "/signout", nil), false)
	if rr.Code != http.StatusSeeOther {
		t.Errorf("signout status=%d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Errorf("signout did not clear the cookie: %s", rr.Header().Get("Set-Cookie"))
	}
}

func TestSessionRejectsBadToken(t *testing.T) {
	srv := newTestServer(t, memory.New())

	req := httptest.NewRequest(http.MethodPost, "/session", strings.NewReader("token=not-a-jwt"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := do(t, srv, req, false)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Sign-in failed") {
		t.Errorf("body missing sign-in error")
	}
	if rr.Header().Get("Set-Cookie") != "" {
		t.Errorf("cookie set for a rejected token")
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/signin", nil), false)
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", rr.Header().Get("X-Content-Type-Options"))
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("Content-Security-Policy not set")
	}
}
