package sync

import (
	"net/url"

	"github.com/Pkirch1211/mt-shopify-sync/internal/shopify"
)

// graphClient is the subset of the Shopify client used by the sync
// engine's GraphQL paths. Satisfied by *shopify.Client.
type graphClient interface {
	Execute(query string, variables map[string]interface{}) (*shopify.GraphQLResponse, error)
}

// restClient is the subset of the Shopify client used by the REST
// fallback paths. Satisfied by *shopify.Client.
type restClient interface {
	GetREST(path string, params url.Values) (*shopify.RESTResponse, error)
	PostREST(path string, body interface{}) (*shopify.RESTResponse, error)
}

// Cache is a run-scoped string lookup table for resolved IDs (company,
// location, role, variant). Populated lazily, never invalidated. Safe
// only because a run is single-threaded and short-lived.
type Cache struct {
	entries map[string]string
}

func NewCache() *Cache {
	return &Cache{entries: map[string]string{}}
}

func (c *Cache) Get(key string) (string, bool) {
	v, ok := c.entries[key]
	return v, ok
}

func (c *Cache) Put(key, value string) {
	c.entries[key] = value
}
