package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2/google"
)

const (
	defaultBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"
	sheetsScope    = "https://www.googleapis.com/auth/spreadsheets"

	// valueInputOption USER_ENTERED lets the backend evaluate formulas,
	// which the task id pinning relies on.
	inputOption = "USER_ENTERED"
)

// Client implements RowStore against one sheet of a Google spreadsheet via
// the Sheets v4 REST API.
type Client struct {
	http          *http.Client
	baseURL       string
	spreadsheetID string
	sheet         string
	width         int
}

// ClientOpts holds parameters for creating a Client.
type ClientOpts struct {
	CredentialsJSON []byte // service-account key file contents
	SpreadsheetID   string
	Sheet           string // sheet (tab) title
	Width           int    // number of columns
	// For testing: inject an HTTP client and base URL instead of real auth.
	HTTPClient *http.Client
	BaseURL    string
}

// NewClient creates a Client. Unless an HTTP client is injected, a
// service-account JWT client is built from the credentials.
func NewClient(ctx context.Context, opts ClientOpts) (*Client, error) {
	if opts.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id is required")
	}
	if opts.Sheet == "" {
		return nil, fmt.Errorf("sheets: sheet title is required")
	}
	if opts.Width <= 0 {
		return nil, fmt.Errorf("sheets: width must be positive")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		if len(opts.CredentialsJSON) == 0 {
			return nil, fmt.Errorf("sheets: credentials are required")
		}
		jwt, err := google.JWTConfigFromJSON(opts.CredentialsJSON, sheetsScope)
		if err != nil {
			return nil, fmt.Errorf("sheets: parse credentials: %w", err)
		}
		httpClient = jwt.Client(ctx)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		http:          httpClient,
		baseURL:       baseURL,
		spreadsheetID: opts.SpreadsheetID,
		sheet:         opts.Sheet,
		width:         opts.Width,
	}, nil
}

// Column returns all non-empty values of a column, header included.
func (c *Client) Column(ctx context.Context, col int) ([]string, error) {
	letter := columnLetter(col)
	values, err := c.getValues(ctx, fmt.Sprintf("%s:%s", letter, letter))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, row := range values {
		if len(row) > 0 && row[0] != "" {
			out = append(out, row[0])
		}
	}
	return out, nil
}

// Rows returns up to limit data rows padded to the sheet width.
func (c *Client) Rows(ctx context.Context, limit int) ([][]string, error) {
	rng := fmt.Sprintf("A2:%s%d", columnLetter(c.width), limit+1)
	values, err := c.getValues(ctx, rng)
	if err != nil {
		return nil, err
	}
	out := make([][]string, 0, len(values))
	for _, row := range values {
		if rowEmpty(row) {
			continue
		}
		out = append(out, PadRow(row, c.width))
	}
	return out, nil
}

// Row returns a single row by 1-based index.
func (c *Client) Row(ctx context.Context, index int) ([]string, error) {
	rng := fmt.Sprintf("A%d:%s%d", index, columnLetter(c.width), index)
	values, err := c.getValues(ctx, rng)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 || rowEmpty(values[0]) {
		return nil, ErrRowNotFound
	}
	return PadRow(values[0], c.width), nil
}

// Append adds a row after the last non-empty row of the sheet.
func (c *Client) Append(ctx context.Context, values []string) error {
	rng := fmt.Sprintf("A:%s", columnLetter(c.width))
	u := fmt.Sprintf("%s/%s/values/%s:append?valueInputOption=%s",
		c.baseURL, c.spreadsheetID, url.PathEscape(c.rangeRef(rng)), inputOption)
	return c.write(ctx, http.MethodPost, u, values)
}

// Update replaces an entire row in place.
func (c *Client) Update(ctx context.Context, index int, values []string) error {
	rng := fmt.Sprintf("A%d:%s%d", index, columnLetter(c.width), index)
	return c.putValues(ctx, rng, values)
}

// UpdateCell replaces a single cell.
func (c *Client) UpdateCell(ctx context.Context, index, col int, value string) error {
	letter := columnLetter(col)
	rng := fmt.Sprintf("%s%d:%s%d", letter, index, letter, index)
	return c.putValues(ctx, rng, []string{value})
}

// rangeRef prefixes a local range with the quoted sheet title.
func (c *Client) rangeRef(rng string) string {
	return fmt.Sprintf("'%s'!%s", c.sheet, rng)
}

// valueRange mirrors the Sheets API ValueRange payload.
type valueRange struct {
	Values [][]string `json:"values"`
}

func (c *Client) getValues(ctx context.Context, rng string) ([][]string, error) {
	u := fmt.Sprintf("%s/%s/values/%s", c.baseURL, c.spreadsheetID, url.PathEscape(c.rangeRef(rng)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("sheets: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheets: get %s: %w", rng, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("get", rng, resp)
	}
	var vr valueRange
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("sheets: decode %s: %w", rng, err)
	}
	return vr.Values, nil
}

func (c *Client) putValues(ctx context.Context, rng string, values []string) error {
	u := fmt.Sprintf("%s/%s/values/%s?valueInputOption=%s",
		c.baseURL, c.spreadsheetID, url.PathEscape(c.rangeRef(rng)), inputOption)
	return c.write(ctx, http.MethodPut, u, values)
}

func (c *Client) write(ctx context.Context, method, u string, values []string) error {
	body, err := json.Marshal(valueRange{Values: [][]string{values}})
	if err != nil {
		return fmt.Errorf("sheets: encode values: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sheets: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sheets: %s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(method, u, resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func apiError(op, ref string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	return fmt.Errorf("sheets: %s %s: status %d: %s", op, ref, resp.StatusCode, bytes.TrimSpace(snippet))
}

// columnLetter converts a 1-based column number to its A1 letter form.
func columnLetter(col int) string {
	if col < 1 {
		return "A"
	}
	var out []byte
	for col > 0 {
		col--
		out = append([]byte{byte('A' + col%26)}, out...)
		col /= 26
	}
	return string(out)
}

// rowEmpty reports whether every cell of a row is empty.
func rowEmpty(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
