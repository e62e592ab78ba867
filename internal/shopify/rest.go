package shopify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// RESTResponse is a decoded Admin REST response. Status codes are returned
// to the caller rather than mapped to errors: customer creation treats 422
// as a degradable validation signal, not a failure.
type RESTResponse struct {
	StatusCode    int
	Body          []byte
	NextPageToken string // opaque page_info cursor from the Link header, "" when exhausted
}

// OK reports whether the response carries a 2xx status.
func (r *RESTResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the response body into v.
func (r *RESTResponse) Decode(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// GetREST performs a GET against the Admin REST API, e.g.
// GetREST("draft_orders.json", params). Transport failures return an
// error; HTTP status is reported through the response.
func (c *Client) GetREST(path string, params url.Values) (*RESTResponse, error) {
	u := fmt.Sprintf("%s/admin/api/%s/%s", c.baseURL, c.apiVersion, strings.TrimPrefix(path, "/"))
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.doREST(req)
}

// PostREST performs a POST with a JSON body against the Admin REST API.
func (c *Client) PostREST(path string, body interface{}) (*RESTResponse, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	u := fmt.Sprintf("%s/admin/api/%s/%s", c.baseURL, c.apiVersion, strings.TrimPrefix(path, "/"))
	req, err := http.NewRequest(http.MethodPost, u, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doREST(req)
}

func (c *Client) doREST(req *http.Request) (*RESTResponse, error) {
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &RESTResponse{
		StatusCode:    resp.StatusCode,
		Body:          body,
		NextPageToken: nextPageToken(resp.Header.Get("Link")),
	}, nil
}

// nextPageToken extracts the page_info cursor from a Link header of the
// form `<https://.../draft_orders.json?page_info=abc&limit=250>; rel="next"`.
// Returns "" when there is no next page.
func nextPageToken(link string) string {
	if link == "" || !strings.Contains(link, `rel="next"`) {
		return ""
	}
	for _, part := range strings.Split(link, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start < 0 || end < 0 || end <= start+1 {
			return ""
		}
		u, err := url.Parse(part[start+1 : end])
		if err != nil {
			return ""
		}
		return u.Query().Get("page_info")
	}
	return ""
}
