// Package google keeps ledger documents in a Google Sheets spreadsheet, one
// row per user: A = user id, B = JSON document, C = update time (RFC 3339).
// Sheets has no push notifications, so subscriptions poll.
package google

import (
	"bytes"
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

	"budget/internal/ledger"
	"budget/internal/ports"
)

const (
	// MaxCellChars is the Sheets limit for a single cell.
	MaxCellChars = 50000

	DefaultSheetName    = "Ledgers"
	DefaultPollInterval = 30 * time.Second
)

// ErrDocumentTooLarge is returned when a ledger does not fit in one cell.
var ErrDocumentTooLarge = errors.New("ledger document exceeds sheet cell limit")

// Config selects the spreadsheet and the credentials.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
	PollInterval       time.Duration
}

// valuesAPI is the part of the Sheets values service the client uses.
type valuesAPI interface {
	Get(ctx context.Context, rng string) ([][]interface{}, error)
	Update(ctx context.Context, rng string, rows [][]interface{}) error
	Append(ctx context.Context, rng string, rows [][]interface{}) error
}

type Client struct {
	values       valuesAPI
	sheetName    string
	pollInterval time.Duration
	now          func() time.Time

	// serializes find-then-write so two writers do not append twice
	writeMu sync.Mutex
}

var _ ports.RemoteStore = (*Client)(nil)

// New creates a Sheets client using Service Account credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg.ServiceAccountJSON, cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(&serviceValues{svc: svc, spreadsheetID: cfg.SpreadsheetID}, cfg), nil
}

func newClient(values valuesAPI, cfg Config) *Client {
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = DefaultSheetName
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Client{values: values, sheetName: name, pollInterval: poll, now: time.Now}
}

// newSheetsService initializes a Sheets service from inline JSON, a file, or
// GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	serviceAccountJSON = strings.TrimSpace(serviceAccountJSON)
	serviceAccountFile = strings.TrimSpace(serviceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Write replaces the user's row, or appends one.
func (c *Client) Write(ctx context.Context, userID string, l *ledger.Ledger) error {
	doc, err := ledger.Encode(l)
	if err != nil {
		return err
	}
	if len(doc) > MaxCellChars {
		return fmt.Errorf("%w: %d characters", ErrDocumentTooLarge, len(doc))
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	rows, err := c.values.Get(ctx, c.rangeAll())
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", c.sheetName, err)
	}
	row := []interface{}{userID, string(doc), c.now().UTC().Format(time.RFC3339)}

	if idx := findUserRow(rows, userID); idx >= 0 {
		rng := fmt.Sprintf("%s!A%d:C%d", c.sheetName, idx+1, idx+1)
		if err := c.values.Update(ctx, rng, [][]interface{}{row}); err != nil {
			return fmt.Errorf("update row %d: %w", idx+1, err)
		}
		return nil
	}
	if err := c.values.Append(ctx, c.rangeAll(), [][]interface{}{row}); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

// Read returns the stored document of userID; ok is false when it has none.
func (c *Client) Read(ctx context.Context, userID string) (doc []byte, ok bool, err error) {
	rows, err := c.values.Get(ctx, c.rangeAll())
	if err != nil {
		return nil, false, fmt.Errorf("read sheet %s: %w", c.sheetName, err)
	}
	idx := findUserRow(rows, userID)
	if idx < 0 {
		return nil, false, nil
	}
	return []byte(safeGet(toStrings(rows[idx]), 1)), true, nil
}

// Subscribe reads the row once, delivers it (nil when absent), then polls
// and delivers whenever the document text changes.
func (c *Client) Subscribe(ctx context.Context, userID string, fn ports.SnapshotHandler) (ports.Unsubscribe, error) {
	doc, ok, err := c.Read(ctx, userID)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		last, had := doc, ok
		deliver(subCtx, userID, doc, ok, fn)

		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-subCtx.Done():
				return
			case <-ticker.C:
			}
			doc, ok, err := c.Read(subCtx, userID)
			if err != nil {
				if subCtx.Err() == nil {
					slog.WarnContext(subCtx, "Sheets poll failed", "user_id", userID, "error", err)
				}
				continue
			}
			if ok == had && bytes.Equal(doc, last) {
				continue
			}
			last, had = doc, ok
			deliver(subCtx, userID, doc, ok, fn)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func deliver(ctx context.Context, userID string, doc []byte, ok bool, fn ports.SnapshotHandler) {
	if !ok || len(bytes.TrimSpace(doc)) == 0 {
		fn(nil)
		return
	}
	l, err := ledger.Decode(doc)
	if err != nil {
		slog.WarnContext(ctx, "Ignoring undecodable sheet document", "user_id", userID, "error", err)
		return
	}
	fn(l)
}

func (c *Client) rangeAll() string { return c.sheetName + "!A:C" }

// serviceValues adapts the generated Sheets client.
type serviceValues struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (s *serviceValues) Get(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s *serviceValues) Update(ctx context.Context, rng string, rows [][]interface{}) error {
	vr := &gsheet.ValueRange{Values: rows}
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *serviceValues) Append(ctx context.Context, rng string, rows [][]interface{}) error {
	vr := &gsheet.ValueRange{Values: rows}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}
