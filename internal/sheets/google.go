package sheets

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const googleTokenURL = "https://oauth2.googleapis.com/token"

// Credentials identify the service account used to read the spreadsheet.
type Credentials struct {
	ClientEmail string
	PrivateKey  string // PEM encoded
}

// GoogleFetcher reads ranges through the Sheets v4 API.
type GoogleFetcher struct {
	svc *gsheets.Service
}

// NewGoogleFetcher builds a fetcher authenticated as a service account.
// No request is made until FetchRange is called.
func NewGoogleFetcher(ctx context.Context, creds Credentials) (*GoogleFetcher, error) {
	conf := &jwt.Config{
		Email:      creds.ClientEmail,
		PrivateKey: []byte(creds.PrivateKey),
		Scopes:     []string{gsheets.SpreadsheetsReadonlyScope},
		TokenURL:   googleTokenURL,
	}
	return newGoogleFetcher(ctx, conf.Client(ctx))
}

func newGoogleFetcher(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*GoogleFetcher, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &GoogleFetcher{svc: svc}, nil
}

// FetchRange implements RangeFetcher.
func (g *GoogleFetcher) FetchRange(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, a1Range).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get values %s: %w", a1Range, err)
	}
	return stringRows(resp.Values), nil
}

func stringRows(values [][]any) [][]string {
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		row := make([]string, len(v))
		for i, cell := range v {
			if cell == nil {
				continue
			}
			if s, ok := cell.(string); ok {
				row[i] = s
			} else {
				row[i] = fmt.Sprint(cell)
			}
		}
		rows = append(rows, row)
	}
	return rows
}
