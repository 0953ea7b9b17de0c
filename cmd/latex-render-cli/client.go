package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const apiKeyHeader = "X-Api-Key"

// Client calls the render API.
type Client struct {
	server string
	apiKey string
	http   *http.Client
}

// NewClient creates a client for the API at server, a base URL like
// "http://localhost:8080".
func NewClient(server, apiKey string, timeout time.Duration) *Client {
	return &Client{
		server: strings.TrimRight(server, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

// PresignResponse is an allocated upload slot.
type PresignResponse struct {
	Key       string `json:"key"`
	PutURL    string `json:"put_url"`
	ExpiresIn int    `json:"expires_in"`
}

type compileRequest struct {
	Key         string `json:"key"`
	DeleteAfter bool   `json:"delete_after"`
}

// Health checks that the API answers on /health.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.server+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

// Presign allocates an upload slot for one archive.
func (c *Client) Presign(ctx context.Context) (*PresignResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+"/presign", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var pre PresignResponse
	if err := json.NewDecoder(resp.Body).Decode(&pre); err != nil {
		return nil, fmt.Errorf("decode presign response: %w", err)
	}
	return &pre, nil
}

// Upload PUTs the archive to a presigned URL. The URL is already signed;
// no API key is sent.
func (c *Client) Upload(ctx context.Context, putURL string, body io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, putURL, body)
	if err != nil {
		return err
	}
	// The signature covers the content type; ContentLength avoids chunked
	// encoding, which S3-style endpoints reject for presigned PUTs.
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/zip")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	return nil
}

// Compile asks the API to build the uploaded archive and returns the PDF
// plus the advisory page count (0 when the server did not report one).
func (c *Client) Compile(ctx context.Context, key string, deleteAfter bool) ([]byte, int, error) {
	payload, err := json.Marshal(compileRequest{Key: key, DeleteAfter: deleteAfter})
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+"/compile", bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, apiError(resp)
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read pdf: %w", err)
	}

	pages, _ := strconv.Atoi(resp.Header.Get("X-Pdf-Pages"))
	return pdf, pages, nil
}

// apiError turns a non-2xx response into an error, preferring the API's
// {"error": ...} body and falling back to the raw payload.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return fmt.Errorf("%s: %s", resp.Status, e.Error)
	}

	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("%s: %s", resp.Status, msg)
	}
	return errors.New(resp.Status)
}
