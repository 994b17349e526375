// Package gsheets is a table.Store over a Google Sheets spreadsheet. Each
// worksheet (tab) is one sheet.
package gsheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/pavelanni/elearn/internal/table"
)

var spreadsheetURL = regexp.MustCompile(`/spreadsheets/d/([^/?#]+)`)

// Client reads and appends worksheet rows.
type Client struct {
	service       *sheets.Service
	spreadsheetID string
}

var _ table.Store = (*Client)(nil)

// New creates a client authenticated with a service-account credentials
// file. spreadsheet is an ID or a full spreadsheet URL.
func New(ctx context.Context, credentialsFile, spreadsheet string, opts ...option.ClientOption) (*Client, error) {
	if credentialsFile != "" {
		opts = append([]option.ClientOption{option.WithCredentialsFile(credentialsFile)}, opts...)
	}
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	id := SpreadsheetID(spreadsheet)
	if id == "" {
		return nil, fmt.Errorf("no spreadsheet id in %q", spreadsheet)
	}
	return &Client{service: service, spreadsheetID: id}, nil
}

// SpreadsheetID extracts the ID from a spreadsheet URL. Anything that is
// not a URL is returned trimmed.
func SpreadsheetID(s string) string {
	s = strings.TrimSpace(s)
	if m := spreadsheetURL.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	if strings.Contains(s, "://") {
		return ""
	}
	return s
}

func (c *Client) Rows(ctx context.Context, sheet string) ([][]string, error) {
	resp, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, a1Range(sheet)).Context(ctx).Do()
	if err != nil {
		return nil, table.ReadError(sheet, mapError(err))
	}
	records := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		record := make([]string, len(row))
		for i, cell := range row {
			if s, ok := cell.(string); ok {
				record[i] = s
			} else {
				record[i] = fmt.Sprintf("%v", cell)
			}
		}
		records = append(records, record)
	}
	slog.Debug("read worksheet", "spreadsheet", c.spreadsheetID, "sheet", sheet, "rows", len(records))
	return records, nil
}

func (c *Client) Append(ctx context.Context, sheet string, row []string) error {
	values := make([]any, len(row))
	for i, v := range row {
		values[i] = v
	}
	vr := &sheets.ValueRange{Values: [][]any{values}}
	_, err := c.service.Spreadsheets.Values.Append(c.spreadsheetID, a1Range(sheet), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return table.AppendError(sheet, mapError(err))
	}
	return nil
}

// a1Range addresses a whole worksheet by quoted name.
func a1Range(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// mapError turns the API's unknown-range responses into ErrSheetNotFound.
func mapError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch {
	case gerr.Code == http.StatusNotFound,
		gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range"):
		return fmt.Errorf("%w: %s", table.ErrSheetNotFound, gerr.Message)
	}
	return err
}
