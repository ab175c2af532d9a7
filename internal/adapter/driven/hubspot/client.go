// Package hubspot implements the DestinationClient port against the HubSpot
// Files and CRM v3 APIs.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	gocache "github.com/patrickmn/go-cache"

	"github.com/kmorganti/dealporter/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DestinationClient = (*Client)(nil)

// TokenSource supplies a ready-to-use access token for each request.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// sourceDealProperty is the custom deal property holding the originating
// source deal id. The API cannot filter on it server-side, so deal lookup
// pages through everything and compares client-side.
const sourceDealProperty = "zoho_deal_id"

// Client implements the driven.DestinationClient port. The deal lookup is
// O(total deals) per unresolved source id, so resolved ids are memoized in an
// in-process cache, and deal-listing responses ride an ETag-aware caching
// transport.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource

	ownerID           string
	associationTypeID int

	dealCache *gocache.Cache
}

// NewClient creates a Client for the given API base URL. ownerID and
// associationTypeID are destination-tenant-specific note attribution values.
func NewClient(baseURL string, tokens TokenSource, ownerID string, associationTypeID int) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   5 * time.Minute,
		},
		baseURL:           strings.TrimRight(baseURL, "/"),
		tokens:            tokens,
		ownerID:           ownerID,
		associationTypeID: associationTypeID,
		dealCache:         gocache.New(30*time.Minute, 10*time.Minute),
	}
}

// idResponse is the common {"id": "..."} creation response shape.
type idResponse struct {
	ID string `json:"id"`
}

// UploadFile performs a multipart upload of the local file into the given
// destination folder and returns the new file id. The MIME type is guessed
// from the file extension, defaulting to application/octet-stream.
func (c *Client) UploadFile(ctx context.Context, localPath, folderID string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(localPath)))
	partHeader.Set("Content-Type", contentType)

	part, err := mw.CreatePart(partHeader)
	if err != nil {
		return "", fmt.Errorf("create multipart: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read %s: %w", localPath, err)
	}
	if err := mw.WriteField("folderId", folderID); err != nil {
		return "", fmt.Errorf("write folderId field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finish multipart: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/files/v3/files", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var created idResponse
	if err := c.do(req, http.StatusCreated, &created); err != nil {
		return "", fmt.Errorf("uploading %s: %w", filepath.Base(localPath), err)
	}

	slog.Info("file uploaded", "file", filepath.Base(localPath), "file_id", created.ID)
	return created.ID, nil
}

// dealsPage is the wire shape of one deal listing page.
type dealsPage struct {
	Results []struct {
		ID         string            `json:"id"`
		Properties map[string]string `json:"properties"`
	} `json:"results"`
	Paging struct {
		Next struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

// FindDealBySourceID resolves a source deal id to the destination deal whose
// custom property records it. Returns driven.ErrDealNotFound when the
// pagination cursor is exhausted without a match.
func (c *Client) FindDealBySourceID(ctx context.Context, sourceDealID string) (string, error) {
	if id, ok := c.dealCache.Get(sourceDealID); ok {
		return id.(string), nil
	}

	after := ""
	for {
		q := url.Values{}
		q.Set("properties", sourceDealProperty)
		q.Set("limit", "100")
		q.Set("archived", "false")
		if after != "" {
			q.Set("after", after)
		}

		req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/crm/v3/objects/deals?"+q.Encode(), nil)
		if err != nil {
			return "", err
		}

		var page dealsPage
		if err := c.do(req, http.StatusOK, &page); err != nil {
			return "", fmt.Errorf("listing deals (after %q): %w", after, err)
		}

		for _, deal := range page.Results {
			if deal.Properties[sourceDealProperty] == sourceDealID {
				c.dealCache.SetDefault(sourceDealID, deal.ID)
				slog.Info("destination deal resolved", "source_deal", sourceDealID, "deal_id", deal.ID)
				return deal.ID, nil
			}
		}

		after = page.Paging.Next.After
		if after == "" {
			return "", fmt.Errorf("resolving source deal %s: %w", sourceDealID, driven.ErrDealNotFound)
		}
	}
}

// notePayload is the wire shape of a note creation request.
type notePayload struct {
	Properties   map[string]string `json:"properties"`
	Associations []noteAssociation `json:"associations"`
}

type noteAssociation struct {
	To struct {
		ID string `json:"id"`
	} `json:"to"`
	Types []associationType `json:"types"`
}

type associationType struct {
	AssociationCategory string `json:"associationCategory"`
	AssociationTypeID   int    `json:"associationTypeId"`
}

// CreateNote creates a note referencing the uploaded file, associated to the
// destination deal. The body names the originating source deal for audit.
func (c *Client) CreateNote(ctx context.Context, fileID, destinationDealID, sourceDealID string) (string, error) {
	payload := notePayload{
		Properties: map[string]string{
			"hs_timestamp":      fmt.Sprintf("%d", time.Now().UTC().UnixMilli()),
			"hs_note_body":      "Zoho Deal ID: " + sourceDealID,
			"hubspot_owner_id":  c.ownerID,
			"hs_attachment_ids": fileID,
		},
	}

	assoc := noteAssociation{
		Types: []associationType{{
			AssociationCategory: "HUBSPOT_DEFINED",
			AssociationTypeID:   c.associationTypeID,
		}},
	}
	assoc.To.ID = destinationDealID
	payload.Associations = []noteAssociation{assoc}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal note payload: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/crm/v3/objects/notes", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var created idResponse
	if err := c.do(req, http.StatusCreated, &created); err != nil {
		return "", fmt.Errorf("creating note for deal %s: %w", destinationDealID, err)
	}

	slog.Info("note created", "note_id", created.ID, "deal_id", destinationDealID)
	return created.ID, nil
}

func (c *Client) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	return req, nil
}

func (c *Client) do(req *http.Request, wantStatus int, dst any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
