// Package zoho implements the SourceClient port against the Zoho CRM v7 REST API.
package zoho

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kmorganti/dealporter/internal/domain/model"
	"github.com/kmorganti/dealporter/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SourceClient = (*Client)(nil)

// TokenSource supplies a ready-to-use access token for each request.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client implements the driven.SourceClient port against the Zoho CRM API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	tokens      TokenSource
	downloadDir string
}

// NewClient creates a Client for the given API base URL. Downloaded
// attachments are written to downloadDir, created on first use.
func NewClient(baseURL, downloadDir string, tokens TokenSource) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 5 * time.Minute},
		baseURL:     strings.TrimRight(baseURL, "/"),
		tokens:      tokens,
		downloadDir: downloadDir,
	}
}

// dealJSON mirrors the Zoho deal record wire shape.
type dealJSON struct {
	ID       string   `json:"id"`
	DealName *string  `json:"Deal_Name"`
	Stage    string   `json:"Stage"`
	Amount   *float64 `json:"Amount"`
}

// attachmentJSON mirrors the Zoho attachment record wire shape.
type attachmentJSON struct {
	ID          string `json:"id"`
	FileName    string `json:"File_Name"`
	Size        string `json:"Size"`
	CreatedTime string `json:"Created_Time"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

// ListDeals returns all deals visible to the authorized user.
func (c *Client) ListDeals(ctx context.Context) ([]model.Deal, error) {
	u := c.baseURL + "/Deals?fields=id,Deal_Name,Stage,Amount"

	var body listResponse[dealJSON]
	if err := c.getJSON(ctx, u, &body); err != nil {
		return nil, fmt.Errorf("listing deals: %w", err)
	}

	deals := make([]model.Deal, 0, len(body.Data))
	for _, d := range body.Data {
		deals = append(deals, mapDeal(d))
	}

	return deals, nil
}

// ListAttachments returns the attachments of one deal. A deal with no
// attachments (204) yields an empty slice.
func (c *Client) ListAttachments(ctx context.Context, dealID string) ([]model.Attachment, error) {
	u := c.baseURL + "/Deals/" + dealID + "/Attachments?fields=id,File_Name,Size,Created_Time"

	var body listResponse[attachmentJSON]
	if err := c.getJSON(ctx, u, &body); err != nil {
		if errors.Is(err, driven.ErrNoContent) {
			return []model.Attachment{}, nil
		}
		return nil, fmt.Errorf("listing attachments for deal %s: %w", dealID, err)
	}

	attachments := make([]model.Attachment, 0, len(body.Data))
	for _, a := range body.Data {
		attachments = append(attachments, mapAttachment(a))
	}

	return attachments, nil
}

// DownloadAttachment streams an attachment body into the download directory
// and returns the local path. Returns driven.ErrNoContent on a 204 response.
func (c *Client) DownloadAttachment(ctx context.Context, dealID, attachmentID, suggestedName string) (string, error) {
	u := c.baseURL + "/Attachments/" + attachmentID

	resp, err := c.get(ctx, u)
	if err != nil {
		return "", fmt.Errorf("downloading attachment %s of deal %s: %w", attachmentID, dealID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Proceed.
	case http.StatusNoContent:
		return "", driven.ErrNoContent
	default:
		return "", fmt.Errorf("downloading attachment %s of deal %s: status %d", attachmentID, dealID, resp.StatusCode)
	}

	if err := os.MkdirAll(c.downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	filename := resolveFilename(resp.Header, attachmentID, suggestedName)
	path := uniquePath(c.downloadDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	slog.Info("attachment downloaded", "deal", dealID, "attachment", attachmentID, "path", path)
	return path, nil
}

func (c *Client) get(ctx context.Context, u string) (*http.Response, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)

	return c.httpClient.Do(req)
}

func (c *Client) getJSON(ctx context.Context, u string, dst any) error {
	resp, err := c.get(ctx, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Proceed.
	case http.StatusNoContent:
		return driven.ErrNoContent
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// mapDeal converts a Zoho deal record to the domain model. A missing deal
// name is defaulted rather than treated as an error.
func mapDeal(d dealJSON) model.Deal {
	name := "Unknown Deal"
	if d.DealName != nil && *d.DealName != "" {
		name = *d.DealName
	}

	var amount float64
	if d.Amount != nil {
		amount = *d.Amount
	}

	return model.Deal{
		ID:     d.ID,
		Name:   name,
		Stage:  d.Stage,
		Amount: amount,
	}
}

// mapAttachment converts a Zoho attachment record to the domain model.
// Size and Created_Time are parsed leniently; malformed values become zero.
func mapAttachment(a attachmentJSON) model.Attachment {
	var size int64
	fmt.Sscanf(a.Size, "%d", &size)

	createdTime, _ := time.Parse(time.RFC3339, a.CreatedTime)

	fileName := a.FileName
	if fileName == "" {
		fileName = "attachment_" + a.ID
	}

	return model.Attachment{
		ID:          a.ID,
		FileName:    fileName,
		Size:        size,
		CreatedTime: createdTime,
	}
}

// uniquePath joins dir and filename, appending numeric suffixes (_1, _2, ...)
// until the name does not collide with an existing local file.
func uniquePath(dir, filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	path := filepath.Join(dir, filename)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, counter, ext))
	}
}
