package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"timetracker/internal/cache"
	"timetracker/internal/core"
	"timetracker/internal/log"
	"timetracker/internal/store"
)

const (
	defaultSheetName = "Activities"
	rowsCacheKey     = "rows"
	defaultCacheTTL  = 30 * time.Second
)

// Column layout of the activities sheet, A..G.
var header = []any{"user_id", "date", "id", "name", "category", "minutes", "created_at"}

// Config selects the spreadsheet and how to authenticate.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
	CacheTTL           time.Duration
	// ClientOptions replace credential loading when set, e.g. in tests.
	ClientOptions []goption.ClientOption
}

// Client stores one row per activity in a single sheet. Rows are read whole
// and cached briefly; every write drops the cache.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	rows          cache.Cache[[][]any]
	logger        *log.Logger
	now           func() time.Time
}

var (
	_ store.ActivityStore = (*Client)(nil)
	_ store.DayMirror     = (*Client)(nil)
	_ store.HealthChecker = (*Client)(nil)
)

func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.NewDiscard()
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = defaultSheetName
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	opts := cfg.ClientOptions
	if len(opts) == 0 {
		creds, err := loadCredentials(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheet:         sheet,
		rows:          cache.NewLRUCache[[][]any](1, ttl),
		logger:        logger.WithComponent(log.ComponentSheets),
		now:           time.Now,
	}, nil
}

// loadCredentials resolves service account credentials from inline JSON, a
// file, or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func loadCredentials(ctx context.Context, cfg Config, logger *log.Logger) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		logger.InfoContext(ctx, "Read service account credentials", "path", file, "size", len(b))
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) fullRange() string {
	return fmt.Sprintf("%s!A:G", c.sheet)
}

func (c *Client) readRows(ctx context.Context) ([][]any, error) {
	if rows, ok := c.rows.Get(rowsCacheKey); ok {
		return rows, nil
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.fullRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.fullRange(), err)
	}
	c.rows.Set(rowsCacheKey, resp.Values)
	return resp.Values, nil
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	return err
}

func (c *Client) ListActivities(ctx context.Context, scope core.Scope) ([]core.Activity, error) {
	rows, err := c.readRows(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Activity
	for _, r := range findScopeRows(rows, scope) {
		out = append(out, r.activity)
	}
	core.SortActivities(out)
	return out, nil
}

func (c *Client) CreateActivity(ctx context.Context, scope core.Scope, in core.ActivityInput) (core.Activity, error) {
	defer c.rows.Delete(rowsCacheKey)

	in = in.Normalize()
	a := core.Activity{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Category:  in.Category,
		Minutes:   in.Minutes,
		CreatedAt: c.now().UTC().Truncate(time.Second),
	}
	values := [][]any{}
	rows, err := c.readRows(ctx)
	if err != nil {
		return core.Activity{}, err
	}
	if len(rows) == 0 {
		values = append(values, header)
	}
	values = append(values, toRow(scope, a))
	if err := c.append(ctx, values); err != nil {
		return core.Activity{}, err
	}
	c.logger.DebugContext(ctx, "Activity appended to sheet",
		log.FieldActivityID, a.ID,
		log.FieldUserID, scope.UserID,
		log.FieldDate, scope.Date.String())
	return a, nil
}

func (c *Client) UpdateActivity(ctx context.Context, scope core.Scope, id string, in core.ActivityInput) error {
	defer c.rows.Delete(rowsCacheKey)

	n, err := c.locate(ctx, scope, id)
	if err != nil {
		return err
	}
	in = in.Normalize()
	rng := fmt.Sprintf("%s!D%d:F%d", c.sheet, n, n)
	vr := &gsheet.ValueRange{Values: [][]any{{in.Name, in.Category, in.Minutes}}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// DeleteActivity blanks the activity's row. Blank rows are skipped on read.
func (c *Client) DeleteActivity(ctx context.Context, scope core.Scope, id string) error {
	defer c.rows.Delete(rowsCacheKey)

	n, err := c.locate(ctx, scope, id)
	if err != nil {
		return err
	}
	return c.clearRows(ctx, []int{n})
}

// ReplaceDay blanks every row of scope and appends items.
func (c *Client) ReplaceDay(ctx context.Context, scope core.Scope, items []core.Activity) error {
	defer c.rows.Delete(rowsCacheKey)

	rows, err := c.readRows(ctx)
	if err != nil {
		return err
	}
	var stale []int
	for _, r := range findScopeRows(rows, scope) {
		stale = append(stale, r.number)
	}
	if err := c.clearRows(ctx, stale); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	values := make([][]any, 0, len(items)+1)
	if len(rows) == 0 {
		values = append(values, header)
	}
	for _, a := range items {
		values = append(values, toRow(scope, a))
	}
	return c.append(ctx, values)
}

func (c *Client) locate(ctx context.Context, scope core.Scope, id string) (int, error) {
	rows, err := c.readRows(ctx)
	if err != nil {
		return 0, err
	}
	for _, r := range findScopeRows(rows, scope) {
		if r.activity.ID == id {
			return r.number, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", core.ErrNotFound, id)
}

func (c *Client) append(ctx context.Context, values [][]any) error {
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.fullRange(), vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.sheet, err)
	}
	return nil
}

func (c *Client) clearRows(ctx context.Context, numbers []int) error {
	if len(numbers) == 0 {
		return nil
	}
	ranges := make([]string, 0, len(numbers))
	for _, n := range numbers {
		ranges = append(ranges, fmt.Sprintf("%s!A%d:G%d", c.sheet, n, n))
	}
	req := &gsheet.BatchClearValuesRequest{Ranges: ranges}
	if _, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}
	return nil
}
