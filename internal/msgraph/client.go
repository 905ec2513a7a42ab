package msgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Tiliavir/study-time-tracker/internal/backup"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// APIError is a non-2xx answer from the Graph API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph API error %d: %s", e.Status, e.Body)
}

// Client talks to one OneDrive drive through Microsoft Graph. It implements
// backup.Remote and backup.Deleter.
type Client struct {
	httpClient *http.Client
	baseURL    string
	drive      string
}

var (
	_ backup.Remote  = (*Client)(nil)
	_ backup.Deleter = (*Client)(nil)
)

// NewClient creates a client on an already authenticated http.Client.
// driveID selects a shared drive; empty uses /me/drive.
func NewClient(httpClient *http.Client, baseURL, driveID string) *Client {
	drive := "/me/drive"
	if driveID != "" {
		drive = "/drives/" + url.PathEscape(driveID)
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		drive:      drive,
	}
}

// driveItem is the subset of a Graph driveItem the client reads.
type driveItem struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	CreatedDateTime time.Time `json:"createdDateTime"`
	DownloadURL     string    `json:"@microsoft.graph.downloadUrl"`
	WebURL          string    `json:"webUrl"`
	Folder          *struct{} `json:"folder,omitempty"`
}

// childrenResponse is the Graph API paged response for folder children.
type childrenResponse struct {
	Value    []driveItem `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

func (c *Client) itemURL(id string) string {
	return c.baseURL + c.drive + "/items/" + url.PathEscape(id)
}

// do sends a request and decodes a JSON answer into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph API request failed: %w", err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding graph response: %w", err)
	}
	return nil
}

// FindOrCreateFolder returns the id of folder name below root, creating it
// if it does not exist yet.
func (c *Client) FindOrCreateFolder(ctx context.Context, name, root string) (string, error) {
	if root == "" {
		root = "root"
	}
	var item driveItem
	err := c.do(ctx, http.MethodGet, c.itemURL(root)+":/"+url.PathEscape(name), "", nil, &item)
	if err == nil {
		if item.Folder == nil {
			return "", fmt.Errorf("%s exists but is not a folder", name)
		}
		return item.ID, nil
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		return "", fmt.Errorf("looking up folder %s: %w", name, err)
	}

	payload, err := json.Marshal(map[string]any{
		"name":                              name,
		"folder":                            map[string]any{},
		"@microsoft.graph.conflictBehavior": "fail",
	})
	if err != nil {
		return "", err
	}
	item = driveItem{}
	if err := c.do(ctx, http.MethodPost, c.itemURL(root)+"/children", "application/json", bytes.NewReader(payload), &item); err != nil {
		return "", fmt.Errorf("creating folder %s: %w", name, err)
	}
	return item.ID, nil
}

// Upload sends the file at filePath as parentID/displayName, replacing any
// file with the same name.
func (c *Client) Upload(ctx context.Context, filePath, displayName, parentID string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", filePath, err)
	}
	endpoint := c.itemURL(parentID) + ":/" + url.PathEscape(displayName) + ":/content"
	var item driveItem
	if err := c.do(ctx, http.MethodPut, endpoint, "text/csv", bytes.NewReader(data), &item); err != nil {
		return "", fmt.Errorf("uploading %s: %w", displayName, err)
	}
	return item.ID, nil
}

// List returns the files in parentID, following pagination.
func (c *Client) List(ctx context.Context, parentID string) ([]backup.RemoteFile, error) {
	endpoint := c.itemURL(parentID) + "/children?$top=200"

	files := []backup.RemoteFile{}
	for endpoint != "" {
		var page childrenResponse
		if err := c.do(ctx, http.MethodGet, endpoint, "", nil, &page); err != nil {
			return nil, err
		}
		for _, it := range page.Value {
			if it.Folder != nil {
				continue
			}
			link := it.DownloadURL
			if link == "" {
				link = it.WebURL
			}
			files = append(files, backup.RemoteFile{
				ID:          it.ID,
				Name:        it.Name,
				CreatedAt:   it.CreatedDateTime,
				DownloadURL: link,
			})
		}
		endpoint = page.NextLink
	}
	return files, nil
}

// Delete removes the item with the given id.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.itemURL(id), "", nil, nil)
}
