package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Pkirch1211/mt-shopify-sync/internal/domain"
	"github.com/Pkirch1211/mt-shopify-sync/internal/shopify"
	pkgerrors "github.com/Pkirch1211/mt-shopify-sync/pkg/errors"
)

// routingGraph dispatches Execute calls by query string and records the
// variables of every call.
type routingGraph struct {
	t        *testing.T
	handlers map[string]func(vars map[string]interface{}) *shopify.GraphQLResponse
	calls    map[string]int
	lastVars map[string]map[string]interface{}
}

func newRoutingGraph(t *testing.T) *routingGraph {
	return &routingGraph{
		t:        t,
		handlers: map[string]func(map[string]interface{}) *shopify.GraphQLResponse{},
		calls:    map[string]int{},
		lastVars: map[string]map[string]interface{}{},
	}
}

func (g *routingGraph) on(query string, fn func(map[string]interface{}) *shopify.GraphQLResponse) {
	g.handlers[query] = fn
}

func (g *routingGraph) Execute(query string, vars map[string]interface{}) (*shopify.GraphQLResponse, error) {
	g.calls[query]++
	g.lastVars[query] = vars
	fn, ok := g.handlers[query]
	require.True(g.t, ok, "unexpected GraphQL query:\n%s", query)
	return fn(vars), nil
}

func newTestResolver(g *routingGraph) *Resolver {
	return NewResolver(g, nil, zap.NewNop())
}

func companiesResponse(t *testing.T, names ...string) *shopify.GraphQLResponse {
	edges := []interface{}{}
	for i, n := range names {
		edges = append(edges, map[string]interface{}{
			"node": map[string]interface{}{
				"id":   shopify.ToGID("Company", i+1),
				"name": n,
			},
		})
	}
	return graphData(t, map[string]interface{}{
		"companies": map[string]interface{}{"edges": edges},
	})
}

func TestEnsureCompanyExactMatchOnly(t *testing.T) {
	g := newRoutingGraph(t)
	// The search surface is fuzzy: it returns near-matches too.
	g.on(shopify.CompaniesByNameQuery, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		return companiesResponse(t, "Acme Outdoors", "acme")
	})

	r := newTestResolver(g)
	id, err := r.EnsureCompany("Acme")
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/Company/2", id, "case-insensitive exact match wins")
}

func TestEnsureCompanyCreatesAndCaches(t *testing.T) {
	g := newRoutingGraph(t)
	g.on(shopify.CompaniesByNameQuery, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		return companiesResponse(t)
	})
	g.on(shopify.CompanyCreateMutation, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		return graphData(t, map[string]interface{}{
			"companyCreate": map[string]interface{}{
				"company":    map[string]interface{}{"id": "gid://shopify/Company/77", "name": "New Shop"},
				"userErrors": []interface{}{},
			},
		})
	})

	r := newTestResolver(g)
	id, err := r.EnsureCompany("New Shop")
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/Company/77", id)

	// Second call is served from the run cache.
	id2, err := r.EnsureCompany("New Shop")
	require.NoError(t, err)
	assert.Equal(t, id, id2)
	assert.Equal(t, 1, g.calls[shopify.CompaniesByNameQuery])
	assert.Equal(t, 1, g.calls[shopify.CompanyCreateMutation])
}

func TestEnsureCompanyCreateRejectionIsFatal(t *testing.T) {
	g := newRoutingGraph(t)
	g.on(shopify.CompaniesByNameQuery, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		return companiesResponse(t)
	})
	g.on(shopify.CompanyCreateMutation, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		return graphData(t, map[string]interface{}{
			"companyCreate": map[string]interface{}{
				"company":    map[string]interface{}{},
				"userErrors": []interface{}{map[string]interface{}{"field": []string{"name"}, "message": "Name is invalid"}},
			},
		})
	})

	r := newTestResolver(g)
	_, err := r.EnsureCompany("Bad Name")
	require.Error(t, err)
	var userErrs *pkgerrors.UserErrors
	require.ErrorAs(t, err, &userErrs)
	assert.True(t, userErrs.Contains("name is invalid"))
}

func TestEnsureCompanyBlankName(t *testing.T) {
	r := newTestResolver(newRoutingGraph(t))
	id, err := r.EnsureCompany("")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func locationsResponse(t *testing.T, companyName string, nodes ...map[string]interface{}) *shopify.GraphQLResponse {
	return graphData(t, map[string]interface{}{
		"company": map[string]interface{}{
			"name":      companyName,
			"locations": map[string]interface{}{"nodes": nodes},
		},
	})
}

func testSourceOrder() *domain.SourceOrder {
	return &domain.SourceOrder{
		RecordID:       "889312",
		PONumber:       "PO#123",
		BuyerFirstName: "Dana",
		BuyerLastName:  "Reyes",
		ShipToName:     "Main Street Store",
		ShipToAddress1: "12 Main St",
		ShipToCity:     "Austin",
		ShipToState:    "Texas",
		ShipToZip:      "78701",
		ShipToCountry:  "USA",
		BillToAddress1: "99 Ledger Ave",
		BillToCity:     "Austin",
		BillToState:    "TX",
		BillToZip:      "78702",
		BillToCountry:  "US",
	}
}

func TestEnsureLocationExactNameReuse(t *testing.T) {
	g := newRoutingGraph(t)
	g.on(shopify.CompanyLocationsQuery, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		return locationsResponse(t, "Main Street",
			map[string]interface{}{
				"id":              "gid://shopify/CompanyLocation/5",
				"name":            "Main Street Store",
				"shippingAddress": map[string]interface{}{"address1": "12 Main St"},
				"billingAddress":  map[string]interface{}{"address1": "99 Ledger Ave"},
			},
		)
	})

	r := newTestResolver(g)
	id, err := r.EnsureLocation("gid://shopify/Company/1", "Main Street Store", testSourceOrder())
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/CompanyLocation/5", id)
	assert.Zero(t, g.calls[shopify.CompanyLocationCreateMutation])
	assert.Zero(t, g.calls[shopify.CompanyLocationAssignAddressMutation], "addresses already present")
}

func TestEnsureLocationReusesBlankStub(t *testing.T) {
	g := newRoutingGraph(t)
	g.on(shopify.CompanyLocationsQuery, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		// Shopify auto-provisions one blank location named after the company.
		return locationsResponse(t, "Main Street",
			map[string]interface{}{"id": "gid://shopify/CompanyLocation/9", "name": "Main Street"},
		)
	})
	g.on(shopify.CompanyLocationAssignAddressMutation, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		return graphData(t, map[string]interface{}{
			"companyLocationAssignAddress": map[string]interface{}{"userErrors": []interface{}{}},
		})
	})
	g.on(shopify.CompanyLocationUpdateMutation, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		return graphData(t, map[string]interface{}{
			"companyLocationUpdate": map[string]interface{}{"userErrors": []interface{}{}},
		})
	})

	r := newTestResolver(g)
	id, err := r.EnsureLocation("gid://shopify/Company/1", "Main Street Store", testSourceOrder())
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/CompanyLocation/9", id)
	assert.Equal(t, 2, g.calls[shopify.CompanyLocationAssignAddressMutation], "shipping and billing")
	assert.Equal(t, 1, g.calls[shopify.CompanyLocationUpdateMutation], "stub renamed to desired name")
	assert.Zero(t, g.calls[shopify.CompanyLocationCreateMutation])
}

func TestEnsureLocationCreatesWhenStubNotGeneric(t *testing.T) {
	g := newRoutingGraph(t)
	g.on(shopify.CompanyLocationsQuery, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		return locationsResponse(t, "Main Street",
			map[string]interface{}{
				"id":              "gid://shopify/CompanyLocation/3",
				"name":            "Warehouse",
				"shippingAddress": map[string]interface{}{"address1": "1 Dock Rd"},
			},
		)
	})
	g.on(shopify.CompanyLocationCreateMutation, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		input := vars["input"].(shopify.CompanyLocationInput)
		assert.Equal(t, "Main Street Store", input.Name)
		require.NotNil(t, input.ShippingAddress)
		assert.Equal(t, "US", input.ShippingAddress.CountryCode)
		assert.Equal(t, "TX", input.ShippingAddress.ZoneCode)
		require.NotNil(t, input.BillingAddress)
		assert.False(t, input.BillingSameAsShipping)
		return graphData(t, map[string]interface{}{
			"companyLocationCreate": map[string]interface{}{
				"companyLocation": map[string]interface{}{"id": "gid://shopify/CompanyLocation/44", "name": "Main Street Store"},
				"userErrors":      []interface{}{},
			},
		})
	})

	r := newTestResolver(g)
	id, err := r.EnsureLocation("gid://shopify/Company/1", "Main Street Store", testSourceOrder())
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/CompanyLocation/44", id)
}

func TestEnsureLocationCreateRejectionDegrades(t *testing.T) {
	g := newRoutingGraph(t)
	g.on(shopify.CompanyLocationsQuery, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		return locationsResponse(t, "Main Street")
	})
	g.on(shopify.CompanyLocationCreateMutation, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		return graphData(t, map[string]interface{}{
			"companyLocationCreate": map[string]interface{}{
				"companyLocation": map[string]interface{}{},
				"userErrors":      []interface{}{map[string]interface{}{"message": "zip is invalid"}},
			},
		})
	})

	r := newTestResolver(g)
	id, err := r.EnsureLocation("gid://shopify/Company/1", "Main Street Store", testSourceOrder())
	require.NoError(t, err, "location rejection must not abort the record")
	assert.Empty(t, id)
}

func contactsPage(t *testing.T, hasNext bool, cursor string, nodes ...map[string]interface{}) *shopify.GraphQLResponse {
	return graphData(t, map[string]interface{}{
		"company": map[string]interface{}{
			"contacts": map[string]interface{}{
				"pageInfo": map[string]interface{}{"hasNextPage": hasNext, "endCursor": cursor},
				"nodes":    nodes,
			},
		},
	})
}

func contactNode(contactID string, customerID int64) map[string]interface{} {
	return map[string]interface{}{
		"id":       contactID,
		"customer": map[string]interface{}{"id": shopify.ToGID("Customer", customerID)},
	}
}

func TestEnsureContactFoundByPagination(t *testing.T) {
	g := newRoutingGraph(t)
	g.on(shopify.CompanyContactsQuery, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		if _, paged := vars["after"]; !paged {
			return contactsPage(t, true, "cur1", contactNode("gid://shopify/CompanyContact/1", 100))
		}
		return contactsPage(t, false, "", contactNode("gid://shopify/CompanyContact/2", 200))
	})

	r := newTestResolver(g)
	id, err := r.EnsureContact("gid://shopify/Company/1", 200)
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/CompanyContact/2", id)
	assert.Equal(t, 2, g.calls[shopify.CompanyContactsQuery])
	assert.Zero(t, g.calls[shopify.CompanyAssignCustomerAsContactMutation])
}

func TestEnsureContactAssignsWhenMissing(t *testing.T) {
	g := newRoutingGraph(t)
	g.on(shopify.CompanyContactsQuery, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		return contactsPage(t, false, "")
	})
	g.on(shopify.CompanyAssignCustomerAsContactMutation, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		assert.Equal(t, "gid://shopify/Customer/200", vars["customerId"])
		return graphData(t, map[string]interface{}{
			"companyAssignCustomerAsContact": map[string]interface{}{
				"companyContact": map[string]interface{}{"id": "gid://shopify/CompanyContact/8"},
				"userErrors":     []interface{}{},
			},
		})
	})

	r := newTestResolver(g)
	id, err := r.EnsureContact("gid://shopify/Company/1", 200)
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/CompanyContact/8", id)
}

func TestEnsureContactAlreadyAssociatedRace(t *testing.T) {
	g := newRoutingGraph(t)
	scans := 0
	g.on(shopify.CompanyContactsQuery, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		scans++
		if scans == 1 {
			return contactsPage(t, false, "")
		}
		// The contact appears on the re-scan after the race.
		return contactsPage(t, false, "", contactNode("gid://shopify/CompanyContact/15", 200))
	})
	g.on(shopify.CompanyAssignCustomerAsContactMutation, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		return graphData(t, map[string]interface{}{
			"companyAssignCustomerAsContact": map[string]interface{}{
				"companyContact": map[string]interface{}{},
				"userErrors":     []interface{}{map[string]interface{}{"message": "Customer is already associated with this company"}},
			},
		})
	})

	r := newTestResolver(g)
	id, err := r.EnsureContact("gid://shopify/Company/1", 200)
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/CompanyContact/15", id)
	assert.Equal(t, 2, scans)
}

func TestEnsureContactOtherRejectionDegrades(t *testing.T) {
	g := newRoutingGraph(t)
	g.on(shopify.CompanyContactsQuery, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		return contactsPage(t, false, "")
	})
	g.on(shopify.CompanyAssignCustomerAsContactMutation, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		return graphData(t, map[string]interface{}{
			"companyAssignCustomerAsContact": map[string]interface{}{
				"companyContact": map[string]interface{}{},
				"userErrors":     []interface{}{map[string]interface{}{"message": "Customer account is disabled"}},
			},
		})
	})

	r := newTestResolver(g)
	id, err := r.EnsureContact("gid://shopify/Company/1", 200)
	require.NoError(t, err, "contact rejections other than the race are non-blocking")
	assert.Empty(t, id)
}

func TestGrantOrderingPermission(t *testing.T) {
	g := newRoutingGraph(t)
	g.on(shopify.CompanyContactRolesQuery, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		return graphData(t, map[string]interface{}{
			"company": map[string]interface{}{
				"contactRoles": map[string]interface{}{
					"nodes": []interface{}{
						map[string]interface{}{"id": "gid://shopify/CompanyContactRole/1", "name": "Location admin"},
						map[string]interface{}{"id": "gid://shopify/CompanyContactRole/2", "name": "Ordering only"},
					},
				},
			},
		})
	})
	g.on(shopify.CompanyContactAssignRoleMutation, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		assert.Equal(t, "gid://shopify/CompanyContactRole/2", vars["companyContactRoleId"])
		return graphData(t, map[string]interface{}{
			"companyContactAssignRole": map[string]interface{}{"userErrors": []interface{}{}},
		})
	})

	r := newTestResolver(g)
	r.GrantOrderingPermission("gid://shopify/CompanyContact/8", "gid://shopify/CompanyLocation/5", "gid://shopify/Company/1")
	assert.Equal(t, 1, g.calls[shopify.CompanyContactAssignRoleMutation])

	// Role ID is cached for the company: no second roles query.
	r.GrantOrderingPermission("gid://shopify/CompanyContact/8", "gid://shopify/CompanyLocation/5", "gid://shopify/Company/1")
	assert.Equal(t, 1, g.calls[shopify.CompanyContactRolesQuery])
}

func TestGrantOrderingPermissionMissingIDs(t *testing.T) {
	g := newRoutingGraph(t)
	g.on(shopify.CompanyContactRolesQuery, func(vars map[string]interface{}) *shopify.GraphQLResponse {
		return graphData(t, map[string]interface{}{
			"company": map[string]interface{}{
				"contactRoles": map[string]interface{}{"nodes": []interface{}{}},
			},
		})
	})

	r := newTestResolver(g)
	r.GrantOrderingPermission("", "gid://shopify/CompanyLocation/5", "gid://shopify/Company/1")
	assert.Zero(t, g.calls[shopify.CompanyContactAssignRoleMutation])
}
