package shopify

// OrdersByPOQuery searches finalized orders by a po_number search term.
// The search term is passed as a variable; callers exclude cancelled
// orders with "-status:cancelled".
const OrdersByPOQuery = `
query getOrdersByPO($q: String!) {
  orders(first: 1, query: $q) {
    edges {
      node {
        id
        poNumber
      }
    }
  }
}
`

// DraftOrdersQuery searches draft orders by an arbitrary search term
// (po_number or tag). Tags come back for identifier-tag revalidation.
const DraftOrdersQuery = `
query getDraftOrders($q: String!) {
  draftOrders(first: 1, query: $q) {
    edges {
      node {
        id
        poNumber
        tags
      }
    }
  }
}
`

// CompaniesByNameQuery fetches candidate companies for a name search.
// The search is a prefix/fuzzy surface; callers must confirm an exact
// case-insensitive name match.
const CompaniesByNameQuery = `
query getCompaniesByName($q: String!) {
  companies(first: 10, query: $q) {
    edges {
      node {
        id
        name
      }
    }
  }
}
`

// CompanyLocationsQuery fetches a company's locations with address
// presence, enough to decide between reuse and create.
const CompanyLocationsQuery = `
query getCompanyLocations($id: ID!) {
  company(id: $id) {
    name
    locations(first: 50) {
      nodes {
        id
        name
        shippingAddress { address1 }
        billingAddress { address1 }
      }
    }
  }
}
`

// CompanyContactsQuery pages through ALL contacts of a company so the
// caller can match the linked customer exactly.
const CompanyContactsQuery = `
query getCompanyContacts($id: ID!, $after: String) {
  company(id: $id) {
    contacts(first: 100, after: $after) {
      pageInfo {
        hasNextPage
        endCursor
      }
      nodes {
        id
        customer { id }
      }
    }
  }
}
`

// CompanyContactRolesQuery fetches a company's contact roles for the
// role-by-name lookup ("Ordering only").
const CompanyContactRolesQuery = `
query getCompanyContactRoles($id: ID!) {
  company(id: $id) {
    contactRoles(first: 20) {
      nodes {
        id
        name
      }
    }
  }
}
`

// VariantBySKUQuery resolves a catalog variant by SKU search term.
const VariantBySKUQuery = `
query getVariantBySKU($q: String!) {
  productVariants(first: 1, query: $q) {
    nodes {
      id
      sku
    }
  }
}
`
