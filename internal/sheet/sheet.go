// Package sheet fetches character sheets from the sheet service.
package sheet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combot/internal/game/character"
)

// maxBody bounds how much of a sheet response is read.
const maxBody = 4 << 20

// Fetcher retrieves the character sheet at a sheet URL.
type Fetcher interface {
	// Fetch returns the sheet data, or nil when it cannot be retrieved.
	Fetch(ctx context.Context, url string) *character.Data
}

// Client fetches sheets over HTTP from "{url}/json".
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a Client whose requests time out after timeout.
//
// Precondition: logger must be non-nil.
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{http: &http.Client{Timeout: timeout}, logger: logger}
}

// Fetch implements Fetcher. Failures are logged and yield nil.
func (c *Client) Fetch(ctx context.Context, url string) *character.Data {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	data, err := c.fetch(ctx, strings.TrimRight(url, "/")+"/json")
	if err != nil {
		c.logger.Warn("fetching character sheet", zap.String("url", url), zap.Error(err))
		return nil
	}
	return data
}

func (c *Client) fetch(ctx context.Context, url string) (*character.Data, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting sheet: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheet service returned %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading sheet: %w", err)
	}
	return Decode(body)
}

type wireSheet struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Skills          []wireSkill    `json:"skills"`
	Characteristics map[string]any `json:"characteristics"`
}

type wireSkill struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Decode parses either the wrapped {success, data: {characterData}} shape or a
// bare sheet object.
func Decode(body []byte) (*character.Data, error) {
	var wrapped struct {
		Success bool `json:"success"`
		Data    struct {
			CharacterData *wireSheet `json:"characterData"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding sheet: %w", err)
	}
	ws := wrapped.Data.CharacterData
	if !wrapped.Success || ws == nil {
		ws = &wireSheet{}
		if err := json.Unmarshal(body, ws); err != nil {
			return nil, fmt.Errorf("decoding sheet: %w", err)
		}
	}
	return ws.toData(), nil
}

func (w *wireSheet) toData() *character.Data {
	d := &character.Data{ID: w.ID, Name: w.Name}
	for _, s := range w.Skills {
		if strings.TrimSpace(s.Name) == "" {
			continue
		}
		v, _ := number(s.Value)
		d.Skills = append(d.Skills, character.Skill{Name: s.Name, Value: v})
	}
	for k, raw := range w.Characteristics {
		if v, ok := number(raw); ok {
			if d.Characteristics == nil {
				d.Characteristics = map[string]int{}
			}
			d.Characteristics[k] = int(math.Round(v))
		}
	}
	return d
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64)
		return f, err == nil
	}
	return 0, false
}
