// Package importer talks to the deployed API to load mushaf and translation
// content. Auth is token based: a login stores the token under the operator's
// home directory and later uploads send it as an Authorization header.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/nq-deploy/deployctl/common"
)

const (
	tokenFileName = ".importer_token"

	mushafEndpoint      = "/mushafs/import/"
	translationEndpoint = "/translations/import/"
	loginEndpoint       = "/auth/login/"
)

// Kind selects the import endpoint for a file.
type Kind int

const (
	KindMushaf Kind = iota
	KindTranslation
)

func (k Kind) endpoint() string {
	if k == KindMushaf {
		return mushafEndpoint
	}
	return translationEndpoint
}

// Client uploads content files to the API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokenPath  string
}

// NewClient creates a client for the API at baseURL. The auth token lives at
// ~/.importer_token.
func NewClient(baseURL string) (*Client, error) {
	tokenPath, err := homedir.Expand("~/" + tokenFileName)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		tokenPath:  tokenPath,
	}, nil
}

// SetTokenPath overrides where the auth token is stored. Used in tests.
func (c *Client) SetTokenPath(path string) {
	c.tokenPath = path
}

// Login authenticates against the API and stores the returned token. The
// token file is written with owner-only permissions.
func (c *Client) Login(ctx context.Context, username, password string) error {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginEndpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrAuthFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("%w: %v", ErrNoToken, err)
	}
	if parsed.Token == "" {
		return ErrNoToken
	}

	if err := os.WriteFile(c.tokenPath, []byte(parsed.Token), 0600); err != nil {
		return err
	}
	common.Logger.Info("login successful, token saved")
	return nil
}

// Token returns the stored auth token, or "" when no login happened yet.
// Uploads without a token are still attempted; the server decides.
func (c *Client) Token() string {
	data, err := os.ReadFile(c.tokenPath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// ImportFile uploads one .json file as multipart/form-data to the endpoint
// for its kind.
func (c *Client) ImportFile(ctx context.Context, path string, kind Kind) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		file.Close()
		return err
	}
	file.Close()
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+kind.endpoint(), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UploadError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	common.Logger.WithField("file", filepath.Base(path)).
		WithField("status", resp.StatusCode).Info("imported")
	return nil
}

// Summary reports the outcome of a directory import.
type Summary struct {
	Succeeded   int
	Failed      int
	FailedFiles []string
}

// ImportDirectory uploads every .json file in dir in lexical order. A failed
// file is recorded and the walk continues; only an empty directory is an
// error.
func (c *Client) ImportDirectory(ctx context.Context, dir string, kind Kind) (*Summary, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, dir)
	}
	sort.Strings(matches)

	summary := &Summary{}
	for _, path := range matches {
		common.Logger.WithField("file", filepath.Base(path)).Info("importing")
		if err := c.ImportFile(ctx, path, kind); err != nil {
			common.Logger.WithField("file", filepath.Base(path)).WithField("error", err).Error("import failed")
			summary.Failed++
			summary.FailedFiles = append(summary.FailedFiles, filepath.Base(path))
			continue
		}
		summary.Succeeded++
	}
	return summary, nil
}
