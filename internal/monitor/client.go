package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gammalab-data/specfit/internal/httputil"
	storage "github.com/gammalab-data/specfit/internal/spectro/storage/sqlite"
)

// Client provides HTTP operations against a running monitor, used by the
// CLI and by batch tooling that drives fits remotely.
type Client struct {
	HTTPClient httputil.HTTPClient
	BaseURL    string
}

// NewClient creates a new monitor client. A nil httpClient gets a standard
// client with a 30 second timeout.
func NewClient(httpClient httputil.HTTPClient, baseURL string) *Client {
	if httpClient == nil {
		httpClient = httputil.NewStandardClient(&http.Client{Timeout: 30 * time.Second})
	}
	return &Client{
		HTTPClient: httpClient,
		BaseURL:    baseURL,
	}
}

// Health checks the monitor's health endpoint.
func (c *Client) Health() error {
	resp, err := c.HTTPClient.Get(c.BaseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// FetchSessions retrieves recent analysis sessions.
func (c *Client) FetchSessions(limit int) ([]storage.Session, error) {
	u := fmt.Sprintf("%s/api/sessions", c.BaseURL)
	if limit > 0 {
		u = fmt.Sprintf("%s?limit=%d", u, limit)
	}
	resp, err := c.HTTPClient.Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var sessions []storage.Session
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return sessions, nil
}

// FetchFits retrieves the fits of one session, ordered by centroid.
func (c *Client) FetchFits(sessionID string) ([]storage.Fit, error) {
	u := fmt.Sprintf("%s/api/fits?session_id=%s", c.BaseURL, url.QueryEscape(sessionID))
	resp, err := c.HTTPClient.Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var fits []storage.Fit
	if err := json.NewDecoder(resp.Body).Decode(&fits); err != nil {
		return nil, fmt.Errorf("decode fits: %w", err)
	}
	return fits, nil
}

// FetchTuning retrieves the effective tuning values from the monitor.
func (c *Client) FetchTuning() (map[string]interface{}, error) {
	resp, err := c.HTTPClient.Get(c.BaseURL + "/api/tuning")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var m map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetTuningParams sends a partial tuning update to /api/tuning. The params
// map can contain any tuning field names with their values.
func (c *Client) SetTuningParams(params map[string]interface{}) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal tuning params: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/api/tuning", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	log.Printf("Applied tuning params: %s", string(data))
	return nil
}

// TriggerPersist asks the monitor to save its current spectrum and fits.
// Returns the session ID the monitor created and the number of fits saved.
func (c *Client) TriggerPersist() (string, int, error) {
	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/api/persist", nil)
	if err != nil {
		return "", 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		SessionID string `json:"session_id"`
		Fits      int    `json:"fits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", 0, fmt.Errorf("decode persist response: %w", err)
	}
	return result.SessionID, result.Fits, nil
}

// ExportSpectrum asks the monitor to write its current spectrum as text and
// returns the path written on the monitor host.
func (c *Client) ExportSpectrum(filename string) (string, error) {
	u := c.BaseURL + "/api/export"
	if filename != "" {
		u = fmt.Sprintf("%s?filename=%s", u, url.QueryEscape(filename))
	}
	req, err := http.NewRequest(http.MethodPost, u, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode export response: %w", err)
	}
	return result.Path, nil
}
