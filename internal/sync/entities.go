package sync

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Pkirch1211/mt-shopify-sync/internal/domain"
	"github.com/Pkirch1211/mt-shopify-sync/internal/normalize"
	"github.com/Pkirch1211/mt-shopify-sync/internal/shopify"
	"github.com/Pkirch1211/mt-shopify-sync/pkg/errors"
)

const orderingRoleName = "Ordering only"

// Resolver resolves and creates the Shopify B2B entities a draft order
// hangs off: company, company location, customer, company contact, and
// the ordering role assignment. IDs are cached for the run.
type Resolver struct {
	gql    graphClient
	rest   restClient
	logger *zap.Logger

	companies *Cache // company name -> company GID
	locations *Cache // companyID|name -> location GID
	roles     *Cache // companyID|role name -> role GID
}

// NewResolver creates a Resolver with empty run-scoped caches.
func NewResolver(gql graphClient, rest restClient, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		gql:       gql,
		rest:      rest,
		logger:    logger,
		companies: NewCache(),
		locations: NewCache(),
		roles:     NewCache(),
	}
}

// EnsureCompany finds a company by exact case-insensitive name match or
// creates it. The companies search surface is fuzzy; only an exact name
// match counts. Creation failures are fatal to the current record.
func (r *Resolver) EnsureCompany(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	if id, ok := r.companies.Get(name); ok {
		return id, nil
	}

	id, err := r.findCompanyByName(name)
	if err != nil {
		return "", err
	}
	if id == "" {
		id, err = r.createCompany(name)
		if err != nil {
			return "", err
		}
	}
	r.companies.Put(name, id)
	return id, nil
}

func (r *Resolver) findCompanyByName(name string) (string, error) {
	resp, err := r.gql.Execute(shopify.CompaniesByNameQuery, map[string]interface{}{"q": name})
	if err != nil {
		return "", fmt.Errorf("company search: %w", err)
	}
	var result struct {
		Companies struct {
			Edges []struct {
				Node struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"companies"`
	}
	if err := resp.Decode(&result); err != nil {
		return "", fmt.Errorf("parse companies response: %w", err)
	}
	for _, e := range result.Companies.Edges {
		if strings.EqualFold(strings.TrimSpace(e.Node.Name), strings.TrimSpace(name)) {
			return e.Node.ID, nil
		}
	}
	return "", nil
}

func (r *Resolver) createCompany(name string) (string, error) {
	resp, err := r.gql.Execute(shopify.CompanyCreateMutation, map[string]interface{}{
		"input": map[string]interface{}{
			"company": map[string]interface{}{"name": name},
		},
	})
	if err != nil {
		return "", fmt.Errorf("companyCreate: %w", err)
	}
	var result struct {
		CompanyCreate struct {
			Company struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"company"`
			UserErrors []errors.UserError `json:"userErrors"`
		} `json:"companyCreate"`
	}
	if err := resp.Decode(&result); err != nil {
		return "", fmt.Errorf("parse companyCreate response: %w", err)
	}
	if len(result.CompanyCreate.UserErrors) > 0 {
		return "", &errors.UserErrors{Operation: "companyCreate", Errors: result.CompanyCreate.UserErrors}
	}
	if result.CompanyCreate.Company.ID == "" {
		return "", fmt.Errorf("companyCreate returned no company id")
	}
	r.logger.Info("Created company", zap.String("company", name), zap.String("company_id", result.CompanyCreate.Company.ID))
	return result.CompanyCreate.Company.ID, nil
}

// companyLocation is one location row with address presence.
type companyLocation struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ShippingAddress *struct {
		Address1 string `json:"address1"`
	} `json:"shippingAddress"`
	BillingAddress *struct {
		Address1 string `json:"address1"`
	} `json:"billingAddress"`
}

func (l *companyLocation) hasShipping() bool {
	return l.ShippingAddress != nil && l.ShippingAddress.Address1 != ""
}

func (l *companyLocation) hasBilling() bool {
	return l.BillingAddress != nil && l.BillingAddress.Address1 != ""
}

// EnsureLocation finds or creates the company location for the desired
// name. Shopify auto-provisions one blank location per new company; when
// the company's only location is blank and generically named (company
// name or "Default"), it is repurposed — addresses assigned, rename
// attempted — instead of creating a redundant second location.
func (r *Resolver) EnsureLocation(companyID, name string, order *domain.SourceOrder) (string, error) {
	desired := strings.TrimSpace(name)
	if desired == "" {
		desired = "Default"
	}
	cacheKey := companyID + "|" + desired
	if id, ok := r.locations.Get(cacheKey); ok {
		return id, nil
	}

	resp, err := r.gql.Execute(shopify.CompanyLocationsQuery, map[string]interface{}{"id": companyID})
	if err != nil {
		return "", fmt.Errorf("company locations query: %w", err)
	}
	var result struct {
		Company struct {
			Name      string `json:"name"`
			Locations struct {
				Nodes []companyLocation `json:"nodes"`
			} `json:"locations"`
		} `json:"company"`
	}
	if err := resp.Decode(&result); err != nil {
		return "", fmt.Errorf("parse company locations response: %w", err)
	}
	companyName := result.Company.Name
	nodes := result.Company.Locations.Nodes

	// Exact name match wins; opportunistically backfill missing addresses.
	for i := range nodes {
		n := &nodes[i]
		if strings.TrimSpace(n.Name) == desired {
			r.locations.Put(cacheKey, n.ID)
			if !n.hasShipping() {
				r.assignAddressNonBlocking(n.ID, companyAddressInput(order, "shipping"), "SHIPPING")
			}
			if !n.hasBilling() && order.BillToAddress1 != "" {
				r.assignAddressNonBlocking(n.ID, companyAddressInput(order, "billing"), "BILLING")
			}
			return n.ID, nil
		}
	}

	// A single blank, generically named location is the auto-provisioned
	// stub: reuse it. Rename failure does not abort the assignment.
	if len(nodes) == 1 {
		n := &nodes[0]
		currentName := strings.TrimSpace(n.Name)
		generic := strings.EqualFold(currentName, strings.TrimSpace(companyName)) ||
			strings.EqualFold(currentName, "Default")
		if generic && !n.hasShipping() && !n.hasBilling() {
			r.assignAddressNonBlocking(n.ID, companyAddressInput(order, "shipping"), "SHIPPING")
			if order.BillToAddress1 != "" {
				r.assignAddressNonBlocking(n.ID, companyAddressInput(order, "billing"), "BILLING")
			}
			r.renameLocationNonBlocking(n.ID, desired)
			r.locations.Put(cacheKey, n.ID)
			return n.ID, nil
		}
	}

	return r.createLocation(companyID, cacheKey, desired, order)
}

func (r *Resolver) createLocation(companyID, cacheKey, desired string, order *domain.SourceOrder) (string, error) {
	input := shopify.CompanyLocationInput{
		Name:                  desired,
		ShippingAddress:       companyAddressInput(order, "shipping"),
		BillingSameAsShipping: order.BillToAddress1 == "",
	}
	if order.BillToAddress1 != "" {
		input.BillingAddress = companyAddressInput(order, "billing")
	}
	resp, err := r.gql.Execute(shopify.CompanyLocationCreateMutation, map[string]interface{}{
		"companyId": companyID,
		"input":     input,
	})
	if err != nil {
		return "", fmt.Errorf("companyLocationCreate: %w", err)
	}
	var result struct {
		CompanyLocationCreate struct {
			CompanyLocation struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"companyLocation"`
			UserErrors []errors.UserError `json:"userErrors"`
		} `json:"companyLocationCreate"`
	}
	if err := resp.Decode(&result); err != nil {
		return "", fmt.Errorf("parse companyLocationCreate response: %w", err)
	}
	if len(result.CompanyLocationCreate.UserErrors) > 0 {
		r.logger.Warn("companyLocationCreate rejected (non-blocking)",
			zap.String("company_id", companyID),
			zap.String("location_name", desired),
			zap.Error(&errors.UserErrors{Operation: "companyLocationCreate", Errors: result.CompanyLocationCreate.UserErrors}),
		)
		return "", nil
	}
	id := result.CompanyLocationCreate.CompanyLocation.ID
	if id != "" {
		r.locations.Put(cacheKey, id)
	}
	return id, nil
}

func (r *Resolver) assignAddressNonBlocking(locationID string, addr *shopify.CompanyAddressInput, addrType string) {
	resp, err := r.gql.Execute(shopify.CompanyLocationAssignAddressMutation, map[string]interface{}{
		"locationId": locationID,
		"address":    addr,
		"types":      []string{addrType},
	})
	if err != nil {
		r.logger.Warn("companyLocationAssignAddress failed (non-blocking)",
			zap.String("location_id", locationID), zap.String("address_type", addrType), zap.Error(err))
		return
	}
	var result struct {
		CompanyLocationAssignAddress struct {
			UserErrors []errors.UserError `json:"userErrors"`
		} `json:"companyLocationAssignAddress"`
	}
	if err := resp.Decode(&result); err != nil {
		return
	}
	if len(result.CompanyLocationAssignAddress.UserErrors) > 0 {
		r.logger.Warn("companyLocationAssignAddress rejected (non-blocking)",
			zap.String("location_id", locationID),
			zap.String("address_type", addrType),
			zap.Error(&errors.UserErrors{Operation: "companyLocationAssignAddress", Errors: result.CompanyLocationAssignAddress.UserErrors}),
		)
	}
}

func (r *Resolver) renameLocationNonBlocking(locationID, desired string) {
	_, err := r.gql.Execute(shopify.CompanyLocationUpdateMutation, map[string]interface{}{
		"id":    locationID,
		"input": map[string]interface{}{"name": desired},
	})
	if err != nil {
		r.logger.Warn("companyLocationUpdate rename failed (non-blocking)",
			zap.String("location_id", locationID), zap.String("desired_name", desired), zap.Error(err))
	}
}

// companyAddressInput maps the source order's postal fields to a company
// address with normalized country/zone codes.
func companyAddressInput(order *domain.SourceOrder, kind string) *shopify.CompanyAddressInput {
	recipient := strings.TrimSpace(order.BuyerFirstName + " " + order.BuyerLastName)
	if kind == "billing" {
		cc := normalize.Country(order.BillToCountry)
		if cc == "" {
			cc = "US"
		}
		return &shopify.CompanyAddressInput{
			Address1:    order.BillToAddress1,
			Address2:    order.BillToAddress2,
			City:        order.BillToCity,
			Zip:         order.BillToZip,
			CountryCode: cc,
			ZoneCode:    normalize.Zone(cc, order.BillToState),
			Recipient:   recipient,
		}
	}
	cc := normalize.Country(order.ShipToCountry)
	if cc == "" {
		cc = "US"
	}
	return &shopify.CompanyAddressInput{
		Address1:    order.ShipToAddress1,
		Address2:    order.ShipToAddress2,
		City:        order.ShipToCity,
		Zip:         order.ShipToZip,
		CountryCode: cc,
		ZoneCode:    normalize.Zone(cc, order.ShipToState),
		Phone:       order.ShipToPhone,
		Recipient:   recipient,
	}
}

// EnsureContact returns the company contact linking the customer to the
// company, scanning the full paginated contact list before associating.
// An "already associated" rejection is a race resolved by one re-scan.
// Failures are non-blocking: ("", nil) means proceed without a contact.
func (r *Resolver) EnsureContact(companyID string, customerID int64) (string, error) {
	target := shopify.ToGID("Customer", customerID)

	id, err := r.findContact(companyID, target)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	resp, err := r.gql.Execute(shopify.CompanyAssignCustomerAsContactMutation, map[string]interface{}{
		"companyId":  companyID,
		"customerId": target,
	})
	if err != nil {
		return "", fmt.Errorf("companyAssignCustomerAsContact: %w", err)
	}
	var result struct {
		CompanyAssignCustomerAsContact struct {
			CompanyContact struct {
				ID string `json:"id"`
			} `json:"companyContact"`
			UserErrors []errors.UserError `json:"userErrors"`
		} `json:"companyAssignCustomerAsContact"`
	}
	if err := resp.Decode(&result); err != nil {
		return "", fmt.Errorf("parse companyAssignCustomerAsContact response: %w", err)
	}
	if result.CompanyAssignCustomerAsContact.CompanyContact.ID != "" {
		return result.CompanyAssignCustomerAsContact.CompanyContact.ID, nil
	}

	userErrs := &errors.UserErrors{
		Operation: "companyAssignCustomerAsContact",
		Errors:    result.CompanyAssignCustomerAsContact.UserErrors,
	}
	if userErrs.Contains("already associated") {
		return r.findContact(companyID, target)
	}

	r.logger.Warn("companyAssignCustomerAsContact rejected (non-blocking)",
		zap.String("company_id", companyID), zap.Int64("customer_id", customerID), zap.Error(userErrs))
	return "", nil
}

// findContact scans all contacts of a company (cursor pagination) for one
// linked to the target customer GID.
func (r *Resolver) findContact(companyID, customerGID string) (string, error) {
	after := ""
	for {
		vars := map[string]interface{}{"id": companyID}
		if after != "" {
			vars["after"] = after
		}
		resp, err := r.gql.Execute(shopify.CompanyContactsQuery, vars)
		if err != nil {
			return "", fmt.Errorf("company contacts query: %w", err)
		}
		var result struct {
			Company struct {
				Contacts struct {
					PageInfo struct {
						HasNextPage bool   `json:"hasNextPage"`
						EndCursor   string `json:"endCursor"`
					} `json:"pageInfo"`
					Nodes []struct {
						ID       string `json:"id"`
						Customer *struct {
							ID string `json:"id"`
						} `json:"customer"`
					} `json:"nodes"`
				} `json:"contacts"`
			} `json:"company"`
		}
		if err := resp.Decode(&result); err != nil {
			return "", fmt.Errorf("parse company contacts response: %w", err)
		}
		for _, n := range result.Company.Contacts.Nodes {
			if n.Customer != nil && n.Customer.ID == customerGID {
				return n.ID, nil
			}
		}
		if !result.Company.Contacts.PageInfo.HasNextPage {
			return "", nil
		}
		after = result.Company.Contacts.PageInfo.EndCursor
	}
}

// GrantOrderingPermission assigns the "Ordering only" role to the contact
// on the location. Every failure here is non-blocking; permission errors
// never abort draft creation.
func (r *Resolver) GrantOrderingPermission(contactID, locationID, companyID string) {
	roleID, err := r.roleID(companyID, orderingRoleName)
	if err != nil {
		r.logger.Warn("contact role lookup failed (non-blocking)",
			zap.String("company_id", companyID), zap.Error(err))
		return
	}
	if roleID == "" || contactID == "" || locationID == "" {
		r.logger.Info("skipping permission assignment, missing role/contact/location",
			zap.String("company_id", companyID))
		return
	}

	resp, err := r.gql.Execute(shopify.CompanyContactAssignRoleMutation, map[string]interface{}{
		"companyContactId":     contactID,
		"companyContactRoleId": roleID,
		"companyLocationId":    locationID,
	})
	if err != nil {
		r.logger.Warn("companyContactAssignRole failed (non-blocking)",
			zap.String("contact_id", contactID), zap.String("location_id", locationID), zap.Error(err))
		return
	}
	var result struct {
		CompanyContactAssignRole struct {
			UserErrors []errors.UserError `json:"userErrors"`
		} `json:"companyContactAssignRole"`
	}
	if err := resp.Decode(&result); err != nil {
		return
	}
	if len(result.CompanyContactAssignRole.UserErrors) > 0 {
		userErrs := &errors.UserErrors{Operation: "companyContactAssignRole", Errors: result.CompanyContactAssignRole.UserErrors}
		// "already assigned" style rejections are expected on re-runs.
		if !userErrs.Contains("already") {
			r.logger.Warn("companyContactAssignRole rejected (non-blocking)",
				zap.String("contact_id", contactID), zap.String("location_id", locationID), zap.Error(userErrs))
		}
	}
}

// roleID resolves a contact role by name for the company, cached.
func (r *Resolver) roleID(companyID, roleName string) (string, error) {
	cacheKey := companyID + "|" + roleName
	if id, ok := r.roles.Get(cacheKey); ok {
		return id, nil
	}
	resp, err := r.gql.Execute(shopify.CompanyContactRolesQuery, map[string]interface{}{"id": companyID})
	if err != nil {
		return "", err
	}
	var result struct {
		Company struct {
			ContactRoles struct {
				Nodes []struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"nodes"`
			} `json:"contactRoles"`
		} `json:"company"`
	}
	if err := resp.Decode(&result); err != nil {
		return "", fmt.Errorf("parse contactRoles response: %w", err)
	}
	for _, n := range result.Company.ContactRoles.Nodes {
		if strings.EqualFold(strings.TrimSpace(n.Name), roleName) {
			r.roles.Put(cacheKey, n.ID)
			return n.ID, nil
		}
	}
	return "", nil
}
