package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Client is the thin adapter over the Google Sheets API. It carries no
// business logic: callers decide what the rows mean.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	timeout       time.Duration
	log           zerolog.Logger
}

type ClientConfig struct {
	SpreadsheetID   string
	CredentialsFile string
	// CredentialsJSON takes precedence over CredentialsFile when set.
	CredentialsJSON []byte
	// Timeout bounds every remote call. The store has no cancellation of its
	// own; without this a stuck call would block its operation forever.
	Timeout time.Duration
	Logger  zerolog.Logger
}

func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id is required")
	}
	opts := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}
	if len(cfg.CredentialsJSON) > 0 {
		creds, err := google.CredentialsFromJSON(ctx, cfg.CredentialsJSON, sheetsapi.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("sheets: parse credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(creds.TokenSource))
	} else if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, unreachable("sheets: create service", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		timeout:       timeout,
		log:           cfg.Logger,
	}, nil
}

func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) Rows(ctx context.Context, sheet string) ([][]string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	resp, err := c.svc.Spreadsheets.Values.
		Get(c.spreadsheetID, fmt.Sprintf("'%s'!A:ZZ", sheet)).
		Context(ctx).Do()
	if err != nil {
		return nil, unreachable(fmt.Sprintf("sheets: read %q", sheet), err)
	}
	return toStrings(resp.Values), nil
}

func (c *Client) Append(ctx context.Context, sheet string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	vr := &sheetsapi.ValueRange{Values: toValues(rows)}
	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, fmt.Sprintf("'%s'!A1", sheet), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return unreachable(fmt.Sprintf("sheets: append to %q", sheet), err)
	}
	return nil
}

func (c *Client) BatchUpdate(ctx context.Context, sheet string, updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	data := make([]*sheetsapi.ValueRange, 0, len(updates))
	for _, u := range updates {
		data = append(data, &sheetsapi.ValueRange{
			Range:  fmt.Sprintf("'%s'!%s", sheet, CellRef(u.Row, u.Col)),
			Values: [][]interface{}{{u.Value}},
		})
	}
	req := &sheetsapi.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}
	_, err := c.svc.Spreadsheets.Values.
		BatchUpdate(c.spreadsheetID, req).
		Context(ctx).Do()
	if err != nil {
		return unreachable(fmt.Sprintf("sheets: batch update %q", sheet), err)
	}
	return nil
}

func (c *Client) EnsureSheet(ctx context.Context, sheet string, headers []string) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	meta, err := c.svc.Spreadsheets.
		Get(c.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).Do()
	if err != nil {
		return unreachable("sheets: get spreadsheet", err)
	}
	for _, s := range meta.Sheets {
		if s.Properties != nil && s.Properties.Title == sheet {
			return nil
		}
	}

	c.log.Info().Str("sheet", sheet).Msg("creating missing sheet")
	addReq := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: sheet},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, addReq).Context(ctx).Do(); err != nil {
		return unreachable(fmt.Sprintf("sheets: add sheet %q", sheet), err)
	}
	return c.writeHeader(ctx, sheet, headers)
}

// EnsureColumns self-heals schema drift: any requested column that does not
// resolve against the current header row is appended to it. Logged as a
// warning, never surfaced.
func (c *Client) EnsureColumns(ctx context.Context, sheet string, names []string) ([]string, error) {
	rows, err := c.Rows(ctx, sheet)
	if err != nil {
		return nil, err
	}
	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}
	missing := NewResolver(header).Missing(names...)
	if len(missing) == 0 {
		return header, nil
	}

	c.log.Warn().Str("sheet", sheet).Strs("columns", missing).
		Msg("header missing expected columns, appending")
	header = append(append([]string{}, header...), missing...)
	if err := c.writeHeader(ctx, sheet, header); err != nil {
		return nil, err
	}
	return header, nil
}

func (c *Client) writeHeader(ctx context.Context, sheet string, headers []string) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	vr := &sheetsapi.ValueRange{Values: toValues([][]string{headers})}
	_, err := c.svc.Spreadsheets.Values.
		Update(c.spreadsheetID, RangeRef(sheet, 1, 0, 1, len(headers)-1), vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return unreachable(fmt.Sprintf("sheets: write header of %q", sheet), err)
	}
	return nil
}

func toStrings(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprint(v)
		}
		rows[i] = cells
	}
	return rows
}

func toValues(rows [][]string) [][]interface{} {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		values[i] = cells
	}
	return values
}
