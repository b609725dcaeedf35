// Package opentdb is the HTTP client for the Open Trivia Database API: the
// question source and the session-token endpoint.
package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"trivia-session-service/internal/domain"
)

const (
	defaultBaseURL = "https://opentdb.com"

	// The provider is always asked for a full session's worth of questions.
	questionsPerSession = 5
)

// Provider response codes.
const (
	codeSuccess       = 0
	codeNoResults     = 1
	codeInvalidParam  = 2
	codeTokenNotFound = 3
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

type questionsResponse struct {
	ResponseCode int               `json:"response_code"`
	Results      []domain.Question `json:"results"`
}

type tokenResponse struct {
	ResponseCode int    `json:"response_code"`
	Token        string `json:"token"`
}

// Fetch retrieves one session's question set. Only non-empty filters are sent;
// a filter absent from the query means "any". Provider outcomes are classified
// here and never re-interpreted downstream: code 3 means the token expired,
// codes 1 and 2 (and anything else non-zero) mean no usable questions for the
// given parameters. Network and decode failures propagate wrapped; the caller
// decides retry policy (this engine performs none).
func (c *Client) Fetch(ctx context.Context, token string, filters domain.Filters) ([]domain.Question, error) {
	query := url.Values{}
	query.Set("amount", strconv.Itoa(questionsPerSession))
	if token != "" {
		query.Set("token", token)
	}
	if filters.Category != "" {
		query.Set("category", filters.Category)
	}
	if filters.Difficulty != "" {
		query.Set("difficulty", filters.Difficulty)
	}
	if filters.Type != "" {
		query.Set("type", filters.Type)
	}

	var payload questionsResponse
	if err := c.getJSON(ctx, "/api.php?"+query.Encode(), &payload); err != nil {
		return nil, err
	}

	switch payload.ResponseCode {
	case codeSuccess:
		return payload.Results, nil
	case codeTokenNotFound:
		return nil, domain.ErrTokenExpired
	default:
		// codeNoResults, codeInvalidParam and any future siblings: the request
		// itself succeeded, the parameters just yielded nothing usable.
		return nil, domain.ErrInvalidParameters
	}
}

// RequestToken asks the provider for a fresh opaque session token.
func (c *Client) RequestToken(ctx context.Context) (string, error) {
	var payload tokenResponse
	if err := c.getJSON(ctx, "/api_token.php?command=request", &payload); err != nil {
		return "", err
	}
	if payload.ResponseCode != codeSuccess || payload.Token == "" {
		return "", fmt.Errorf("token request rejected: response code %d", payload.ResponseCode)
	}
	return payload.Token, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("trivia provider: %w", err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}
