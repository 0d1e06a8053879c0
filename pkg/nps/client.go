package nps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// BaseURL is the NPS developer API root.
	BaseURL = "https://developer.nps.gov/api/v1"

	// ResultLimit caps the number of records returned by each endpoint.
	ResultLimit = 600

	parksPath     = "/parks"
	amenitiesPath = "/amenities/parksplaces"
	apiKeyHeader  = "X-Api-Key"
	maxErrorBody  = 512
)

var (
	// ErrStatus is wrapped by every *HTTPError.
	ErrStatus = errors.New("unexpected http status")

	// ErrMalformed reports a body that is not JSON or lacks the expected shape.
	ErrMalformed = errors.New("malformed response")
)

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("nps %s: status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("nps %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *HTTPError) Unwrap() error { return ErrStatus }

// Client fetches park and amenity documents from the NPS API.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// NewClient creates an NPS API client. The key is sent as-is; an empty key is
// not rejected here and surfaces as an authentication error from the API.
func NewClient(apiKey string, logger *slog.Logger) *Client {
	if apiKey == "" {
		logger.Warn("NPS API key is empty, requests will likely be rejected")
	}
	return &Client{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: BaseURL,
		apiKey:  apiKey,
		logger:  logger,
	}
}

// Parks fetches and decodes the parks document.
func (c *Client) Parks(ctx context.Context) (*ParksResponse, error) {
	body, err := c.get(ctx, "parks", parksPath)
	if err != nil {
		return nil, err
	}
	return DecodeParks(body)
}

// Amenities fetches and decodes the amenities-by-park-places document.
func (c *Client) Amenities(ctx context.Context) (*AmenitiesResponse, error) {
	body, err := c.get(ctx, "amenities", amenitiesPath)
	if err != nil {
		return nil, err
	}
	return DecodeAmenities(body)
}

func (c *Client) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(ResultLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", endpoint, err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "parksync/1.0")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s body: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &HTTPError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(body)}
	}

	c.logger.Debug("fetched", "endpoint", endpoint, "status", resp.StatusCode,
		"bytes", len(body), "elapsed", time.Since(start))
	return body, nil
}
