// Package google stores the ledger in a Google spreadsheet, one worksheet per
// table with a header row.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cleaningos/internal/core"
	"cleaningos/internal/ledger"
)

const (
	backendName = "sheets"

	// DefaultHeaderTTL is how long a verified header is trusted before it is
	// checked again on the next append.
	DefaultHeaderTTL = 10 * time.Minute
)

var _ ledger.Store = (*Client)(nil)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *slog.Logger

	mu        sync.Mutex
	headerTTL time.Duration
	now       func() time.Time
	verified  map[core.Table]time.Time
}

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        logger,
		headerTTL:     DefaultHeaderTTL,
		now:           time.Now,
		verified:      make(map[core.Table]time.Time),
	}
}

// NewFromEnv creates a Sheets client using service account credentials.
// Required: GOOGLE_SPREADSHEET_ID, and one of GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, logger *slog.Logger) (*Client, error) {
	return Dial(ctx, os.Getenv("GOOGLE_SPREADSHEET_ID"), logger)
}

// Dial creates a Sheets client for the given spreadsheet, reading service
// account credentials from the environment.
func Dial(ctx context.Context, spreadsheetID string, logger *slog.Logger) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, logger), nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, logger *slog.Logger) (*gsheet.Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.InfoContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Append adds the row after the last data row of the table's worksheet.
// Values are written RAW so "2025-01-31" stays text and numbers stay numbers.
func (c *Client) Append(ctx context.Context, table core.Table, row core.Row) error {
	if c.svc == nil {
		return &core.StorageUnavailableError{Backend: backendName, Detail: "sheets service not initialized"}
	}
	if err := c.ensureHeader(ctx, table); err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{[]any(row)}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, tableRange(table), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return classifyError(table, err)
	}
	c.logger.DebugContext(ctx, "Appended sheet row", "table", table)
	return nil
}

// ReadAll returns the data rows of the worksheet, header excluded.
func (c *Client) ReadAll(ctx context.Context, table core.Table) ([]core.Row, error) {
	if c.svc == nil {
		return nil, &core.StorageUnavailableError{Backend: backendName, Detail: "sheets service not initialized"}
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, tableRange(table)).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, classifyError(table, err)
	}
	if len(resp.Values) == 0 {
		return nil, missingHeader(table)
	}
	if err := checkHeader(table, resp.Values[0]); err != nil {
		return nil, err
	}
	c.markVerified(table)
	return dataRows(resp.Values[1:]), nil
}

// InvalidateCache forgets verified headers so the next append checks again.
func (c *Client) InvalidateCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verified = make(map[core.Table]time.Time)
}

func (c *Client) ensureHeader(ctx context.Context, table core.Table) error {
	c.mu.Lock()
	until, ok := c.verified[table]
	fresh := ok && c.now().Before(until)
	c.mu.Unlock()
	if fresh {
		return nil
	}

	rng := fmt.Sprintf("%s!1:1", quoteSheet(string(table)))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return classifyError(table, err)
	}
	if len(resp.Values) == 0 {
		return missingHeader(table)
	}
	if err := checkHeader(table, resp.Values[0]); err != nil {
		return err
	}
	c.markVerified(table)
	return nil
}

func (c *Client) markVerified(table core.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verified[table] = c.now().Add(c.headerTTL)
}
