package shopify

import (
	"fmt"
	"strconv"
	"strings"
)

// DraftOrderCreateMutation creates a draft order
const DraftOrderCreateMutation = `
mutation draftOrderCreate($input: DraftOrderInput!) {
  draftOrderCreate(input: $input) {
    draftOrder {
      id
      name
      poNumber
      purchasingEntity { __typename }
    }
    userErrors {
      field
      message
    }
  }
}
`

// CompanyCreateMutation creates a company by name
const CompanyCreateMutation = `
mutation companyCreate($input: CompanyCreateInput!) {
  companyCreate(input: $input) {
    company {
      id
      name
    }
    userErrors {
      field
      message
    }
  }
}
`

// CompanyLocationCreateMutation creates a location under a company
const CompanyLocationCreateMutation = `
mutation companyLocationCreate($companyId: ID!, $input: CompanyLocationInput!) {
  companyLocationCreate(companyId: $companyId, input: $input) {
    companyLocation {
      id
      name
    }
    userErrors {
      field
      message
    }
  }
}
`

// CompanyLocationAssignAddressMutation assigns a shipping or billing
// address to an existing location.
const CompanyLocationAssignAddressMutation = `
mutation companyLocationAssignAddress($locationId: ID!, $address: CompanyAddressInput!, $types: [CompanyAddressType!]!) {
  companyLocationAssignAddress(locationId: $locationId, address: $address, addressTypes: $types) {
    userErrors {
      field
      message
    }
  }
}
`

// CompanyLocationUpdateMutation renames a location (used when repurposing
// the auto-provisioned blank stub).
const CompanyLocationUpdateMutation = `
mutation companyLocationUpdate($id: ID!, $input: CompanyLocationUpdateInput!) {
  companyLocationUpdate(id: $id, input: $input) {
    companyLocation {
      id
      name
    }
    userErrors {
      field
      message
    }
  }
}
`

// CompanyAssignCustomerAsContactMutation links a customer to a company
const CompanyAssignCustomerAsContactMutation = `
mutation companyAssignCustomerAsContact($companyId: ID!, $customerId: ID!) {
  companyAssignCustomerAsContact(companyId: $companyId, customerId: $customerId) {
    companyContact { id }
    userErrors {
      field
      message
    }
  }
}
`

// CompanyContactAssignRoleMutation grants a contact role on a location
const CompanyContactAssignRoleMutation = `
mutation companyContactAssignRole($companyContactId: ID!, $companyContactRoleId: ID!, $companyLocationId: ID!) {
  companyContactAssignRole(
    companyContactId: $companyContactId,
    companyContactRoleId: $companyContactRoleId,
    companyLocationId: $companyLocationId
  ) {
    companyContactRoleAssignment { id }
    userErrors {
      field
      message
    }
  }
}
`

// DraftOrderInput represents the input for creating a draft order
type DraftOrderInput struct {
	LineItems        []DraftOrderLineItemInput `json:"lineItems"`
	Note             string                    `json:"note,omitempty"`
	Tags             []string                  `json:"tags,omitempty"`
	BillingAddress   *MailingAddressInput      `json:"billingAddress,omitempty"`
	ShippingAddress  *MailingAddressInput      `json:"shippingAddress,omitempty"`
	PONumber         *string                   `json:"poNumber,omitempty"`
	Email            *string                   `json:"email,omitempty"`
	Metafields       []MetafieldInput          `json:"metafields,omitempty"`
	PurchasingEntity *PurchasingEntityInput    `json:"purchasingEntity,omitempty"`
}

type DraftOrderLineItemInput struct {
	VariantID *string `json:"variantId,omitempty"`
	Title     *string `json:"title,omitempty"`
	SKU       *string `json:"sku,omitempty"`
	Quantity  int     `json:"quantity"`
	// For custom line items (no variantId), Shopify expects originalUnitPrice.
	OriginalUnitPrice *string `json:"originalUnitPrice,omitempty"`
}

type MailingAddressInput struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address1,omitempty"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city,omitempty"`
	Province  string `json:"province,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// MetafieldInput sets a namespaced custom attribute on the draft
// (e.g. b2b.ship_date).
type MetafieldInput struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type,omitempty"`
}

// PurchasingEntityInput carries either a company purchasing reference or
// a plain customer reference, never both.
type PurchasingEntityInput struct {
	CustomerID        *string                 `json:"customerId,omitempty"`
	PurchasingCompany *PurchasingCompanyInput `json:"purchasingCompany,omitempty"`
}

type PurchasingCompanyInput struct {
	CompanyID         string `json:"companyId"`
	CompanyContactID  string `json:"companyContactId"`
	CompanyLocationID string `json:"companyLocationId"`
}

// CompanyAddressInput is the address shape for company locations
// (countryCode/zoneCode are ISO codes, unlike MailingAddressInput).
type CompanyAddressInput struct {
	Address1    string `json:"address1,omitempty"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city,omitempty"`
	Zip         string `json:"zip,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	ZoneCode    string `json:"zoneCode,omitempty"`
	Recipient   string `json:"recipient,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// CompanyLocationInput is the input for companyLocationCreate.
type CompanyLocationInput struct {
	Name                  string               `json:"name"`
	ShippingAddress       *CompanyAddressInput `json:"shippingAddress,omitempty"`
	BillingAddress        *CompanyAddressInput `json:"billingAddress,omitempty"`
	BillingSameAsShipping bool                 `json:"billingSameAsShipping"`
}

// ToGID builds a Shopify global ID, e.g. ToGID("Customer", 123) ->
// "gid://shopify/Customer/123".
func ToGID(kind string, id interface{}) string {
	return fmt.Sprintf("gid://shopify/%s/%v", kind, id)
}

// ParseGID extracts the trailing numeric ID from a Shopify GID.
func ParseGID(gid string) (int64, error) {
	parts := strings.Split(gid, "/")
	if len(parts) < 4 {
		return 0, fmt.Errorf("invalid GID format: %s", gid)
	}
	id, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse ID from GID: %w", err)
	}
	return id, nil
}
