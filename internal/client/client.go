// Package client talks to a CardKeeper server: it creates cards and
// downloads their vCard and zip exports.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/cardkeeper/internal/models"
)

// Files holds local paths of the images to upload. Empty paths are skipped.
type Files struct {
	Logo  string
	Photo string
	Cover string
}

// FormError is returned by CreateCard when the server rejects the form.
type FormError struct {
	Fields map[string][]string
}

func (e *FormError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msgs := range e.Fields {
		parts = append(parts, field+": "+strings.Join(msgs, " "))
	}
	sort.Strings(parts)
	return "form rejected: " + strings.Join(parts, "; ")
}

// Client is a CardKeeper API client.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client for the server at baseURL. A nil httpClient uses a
// client with a 30 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient}
}

// NewHTTPClient returns an HTTP client that trusts only the CA certificate
// at caFile. An empty caFile uses the system roots.
func NewHTTPClient(caFile string) (*http.Client, error) {
	if caFile == "" {
		return &http.Client{Timeout: 30 * time.Second}, nil
	}
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs:    caPool,
			MinVersion: tls.VersionTLS12,
		},
	}
	return &http.Client{Transport: transport, Timeout: 30 * time.Second}, nil
}

// CreateCard submits form and files and returns the URL of the new card.
// A *FormError is returned when the server reports invalid fields.
func (c *Client) CreateCard(ctx context.Context, form models.CardForm, files Files) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range formFields(form) {
		if f.value == "" {
			continue
		}
		if err := mw.WriteField(f.name, f.value); err != nil {
			return "", fmt.Errorf("write field %s: %w", f.name, err)
		}
	}
	for _, f := range []struct{ field, path string }{
		{"logo", files.Logo}, {"photo", files.Photo}, {"cover", files.Cover},
	} {
		if f.path == "" {
			continue
		}
		if err := attachFile(mw, f.field, f.path); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/create_card", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("create card failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Success bool                `json:"success"`
		URL     string              `json:"url"`
		Errors  map[string][]string `json:"errors"`
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusBadRequest:
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
	default:
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server error: %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	if !result.Success {
		return "", &FormError{Fields: result.Errors}
	}
	return result.URL, nil
}

// DownloadVCard writes the vCard of card id to w.
func (c *Client) DownloadVCard(ctx context.Context, id int64, w io.Writer) error {
	return c.download(ctx, fmt.Sprintf("/download_vcard/%d", id), w)
}

// DownloadPackage writes the zip package of card id to w.
func (c *Client) DownloadPackage(ctx context.Context, id int64, w io.Writer) error {
	return c.download(ctx, fmt.Sprintf("/download_package/%d", id), w)
}

func (c *Client) download(ctx context.Context, path string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return models.ErrCardNotFound
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error: %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read download: %w", err)
	}
	return nil
}

// CardID extracts the numeric card ID from a card URL such as
// https://host/card/12.
func CardID(cardURL string) (int64, error) {
	i := strings.LastIndex(cardURL, "/card/")
	if i < 0 {
		return 0, fmt.Errorf("not a card url: %q", cardURL)
	}
	id, err := strconv.ParseInt(strings.TrimSuffix(cardURL[i+len("/card/"):], "/"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a card url: %q", cardURL)
	}
	return id, nil
}

type formField struct {
	name  string
	value string
}

func formFields(form models.CardForm) []formField {
	fields := []formField{
		{"fname", form.FirstName},
		{"lname", form.LastName},
		{"pronouns", form.Pronouns},
		{"title", form.Title},
		{"biz", form.Business},
		{"addr", form.Address},
		{"desc", form.Description},
		{"key", form.PublicKey},
		{"tracker", form.Tracker},
		{"font_link", form.FontLink},
		{"font_css", form.FontCSS},
		{"hosted_url", form.HostedURL},
		{"phone", form.Phone},
		{"email", form.Email},
	}
	if form.FooterCredit {
		fields = append(fields, formField{"footer_credit", "y"})
	}
	return fields
}

func attachFile(mw *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()

	fw, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("create form file %s: %w", field, err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return fmt.Errorf("read %s: %w", field, err)
	}
	return nil
}
