package replyapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"megumi/internal/core/domain"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// Client provides a wrapper for the reply API. Every operation is a GET on the base URL that answers with a
// JSON object carrying a result string.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type response struct {
	Result string `json:"result"`
}

// Get requests {base}{operation}?{params}. Parameters keep their order and are query-escaped.
func (c *Client) Get(ctx context.Context, operation string, params ...domain.QueryParam) (string, error) {
	endpoint := c.baseURL + operation + encodeQuery(params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Add("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error executing request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response: %w", err)
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("unexpected status code from %s: %d", operation, res.StatusCode)
	}

	log.Debug().Str("operation", operation).Int("bytes", len(body)).Msg("reply api response")

	var result response
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("error unmarshalling response: %w", err)
	}

	if result.Result == "" {
		return "", domain.ErrEmptyResult
	}

	return result.Result, nil
}

func encodeQuery(params []domain.QueryParam) string {
	if len(params) == 0 {
		return ""
	}

	pairs := make([]string, len(params))
	for i, p := range params {
		pairs[i] = escape(p.Key) + "=" + escape(p.Value)
	}

	return "?" + strings.Join(pairs, "&")
}

var componentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// escape encodes a query component the way encodeURIComponent does: spaces become %20 and !'()* stay literal.
func escape(s string) string {
	return componentReplacer.Replace(url.QueryEscape(s))
}
