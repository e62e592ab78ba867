package shopify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Pkirch1211/mt-shopify-sync/internal/config"
)

// Client talks to both Shopify Admin API surfaces: the GraphQL endpoint
// (queries and mutations, cost-annotated) and the REST endpoint (cursor
// pagination via Link headers). Calls do not auto-retry; failure handling
// is the caller's decision.
type Client struct {
	baseURL     string
	accessToken string
	apiVersion  string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewClient creates a new Shopify Admin API client
func NewClient(cfg config.ShopifyConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     normalizeBaseURL(cfg.ShopDomain),
		accessToken: cfg.AccessToken,
		apiVersion:  cfg.APIVersion,
		httpClient: &http.Client{
			Timeout: 25 * time.Second,
		},
		logger: logger,
	}
}

// normalizeBaseURL accepts a bare shop domain or a full URL and returns
// "https://<domain>" without a trailing slash.
func normalizeBaseURL(shopDomain string) string {
	d := strings.TrimSuffix(strings.TrimSpace(shopDomain), "/")
	if strings.HasPrefix(d, "http://") || strings.HasPrefix(d, "https://") {
		return d
	}
	return "https://" + d
}

// GraphQLRequest represents a GraphQL request
type GraphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// GraphQLResponse represents a GraphQL response
type GraphQLResponse struct {
	Data       json.RawMessage `json:"data"`
	Errors     []GraphQLError  `json:"errors,omitempty"`
	Extensions *Extensions     `json:"extensions,omitempty"`
}

// Decode unmarshals the response's data object into v.
func (r *GraphQLResponse) Decode(v interface{}) error {
	return json.Unmarshal(r.Data, v)
}

// GraphQLError represents a GraphQL error
type GraphQLError struct {
	Message string        `json:"message"`
	Path    []interface{} `json:"path,omitempty"`
}

// Extensions carries the query-cost annotation Shopify attaches to
// GraphQL responses.
type Extensions struct {
	Cost *QueryCost `json:"cost,omitempty"`
}

type QueryCost struct {
	RequestedQueryCost float64        `json:"requestedQueryCost"`
	ActualQueryCost    float64        `json:"actualQueryCost"`
	ThrottleStatus     ThrottleStatus `json:"throttleStatus"`
}

type ThrottleStatus struct {
	MaximumAvailable   float64 `json:"maximumAvailable"`
	CurrentlyAvailable float64 `json:"currentlyAvailable"`
	RestoreRate        float64 `json:"restoreRate"`
}

// Execute executes a GraphQL query/mutation
func (c *Client) Execute(query string, variables map[string]interface{}) (*GraphQLResponse, error) {
	url := fmt.Sprintf("%s/admin/api/%s/graphql.json", c.baseURL, c.apiVersion)

	jsonData, err := json.Marshal(GraphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("shopify API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var graphQLResp GraphQLResponse
	if err := json.Unmarshal(body, &graphQLResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(body))
	}

	// Cost is logged, not enforced; the sequential run loop is the real
	// throttle.
	if ext := graphQLResp.Extensions; ext != nil && ext.Cost != nil {
		c.logger.Debug("GraphQL call",
			zap.Float64("actual_query_cost", ext.Cost.ActualQueryCost),
			zap.Float64("throttle_remaining", ext.Cost.ThrottleStatus.CurrentlyAvailable),
			zap.Duration("elapsed", time.Since(start)),
		)
	}

	if len(graphQLResp.Errors) > 0 {
		errorMessages := make([]string, len(graphQLResp.Errors))
		for i, gqlErr := range graphQLResp.Errors {
			errorMessages[i] = gqlErr.Message
		}
		return nil, fmt.Errorf("graphQL errors: %s", strings.Join(errorMessages, "; "))
	}

	return &graphQLResp, nil
}
