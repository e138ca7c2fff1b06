package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// ErrNoBaseURL is returned when the client is constructed without a backend URL.
var ErrNoBaseURL = errors.New("backend base url not configured")

// Client talks to the guild's DKP backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// RecordAttendance submits one attendance tick for a raid.
func (c *Client) RecordAttendance(ctx context.Context, raidID string, playerNames []string, finalTick bool) (bool, error) {
	body := struct {
		RaidID      string   `json:"raid_id"`
		PlayerNames []string `json:"player_names"`
		FinalTick   bool     `json:"final_tick"`
	}{raidID, playerNames, finalTick}

	if err := c.postJSON(ctx, "/raid/tick", body, nil); err != nil {
		return false, err
	}
	return true, nil
}

// RecordLoot submits a batch of loot records and returns how many the
// backend accepted.
func (c *Client) RecordLoot(ctx context.Context, raidID string, records []LootRecord) (int, error) {
	body := struct {
		RaidID string       `json:"raid_id"`
		Loot   []LootRecord `json:"loot"`
	}{raidID, records}

	var out struct {
		Accepted int `json:"accepted"`
	}
	if err := c.postJSON(ctx, "/raid/loot", body, &out); err != nil {
		return 0, err
	}
	return out.Accepted, nil
}

// RequestRollRange asks the backend for a lottery ticket allocation covering
// the given players.
func (c *Client) RequestRollRange(ctx context.Context, playerNames []string) (*RollRange, error) {
	body := struct {
		PlayerNames []string `json:"player_names"`
	}{playerNames}

	var out RollRange
	if err := c.postJSON(ctx, "/lotto/range", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchPlayerIDs resolves player names to backend player ids.
func (c *Client) FetchPlayerIDs(ctx context.Context, playerNames []string) (map[string]string, error) {
	body := struct {
		PlayerNames []string `json:"player_names"`
	}{playerNames}

	out := map[string]string{}
	if err := c.postJSON(ctx, "/players/ids", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchMains returns the alt-to-main mapping the guild keeps on the backend.
func (c *Client) FetchMains(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/players/mains", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch mains: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch mains: unexpected status %d", resp.StatusCode)
	}

	out := map[string]string{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("fetch mains: %w", err)
	}
	return out, nil
}

// postJSON posts a JSON body and optionally decodes a JSON response into out.
func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post %s: unexpected status %d", path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("post %s: decode response: %w", path, err)
		}
	}
	return nil
}
