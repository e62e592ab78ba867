package sync

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/Pkirch1211/mt-shopify-sync/internal/domain"
	"github.com/Pkirch1211/mt-shopify-sync/internal/normalize"
	"github.com/Pkirch1211/mt-shopify-sync/pkg/errors"
)

// restCustomer is the customers/search.json row shape.
type restCustomer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
}

// ResolveCustomer finds the buyer by email, falling back to a
// (first, last, company) triple match, and creates the customer when
// absent. A validation rejection on create is retried once without the
// offending email/phone fields; a second rejection skips the record.
func (r *Resolver) ResolveCustomer(order *domain.SourceOrder) (int64, error) {
	email := order.BuyerEmail()

	if email != "" {
		if c := r.findCustomerByEmail(email); c != nil {
			r.logger.Info("Reusing customer matched by email",
				zap.Int64("customer_id", c.ID), zap.String("email", email))
			return c.ID, nil
		}
	}
	if c := r.findCustomerByNameCompany(order.BuyerFirstName, order.BuyerLastName, order.BillToName); c != nil {
		r.logger.Info("Reusing customer matched by name and company",
			zap.Int64("customer_id", c.ID),
			zap.String("first_name", order.BuyerFirstName),
			zap.String("last_name", order.BuyerLastName),
			zap.String("company", order.BillToName),
		)
		return c.ID, nil
	}

	return r.createCustomer(order, email)
}

// findCustomerByEmail searches by email and confirms exact
// case-insensitive equality; search failures degrade to not-found.
func (r *Resolver) findCustomerByEmail(email string) *restCustomer {
	params := url.Values{}
	params.Set("query", "email:"+email)
	resp, err := r.rest.GetREST("customers/search.json", params)
	if err != nil || !resp.OK() {
		if err != nil {
			r.logger.Warn("customer email search failed (treated as not found)", zap.Error(err))
		}
		return nil
	}
	var payload struct {
		Customers []restCustomer `json:"customers"`
	}
	if err := resp.Decode(&payload); err != nil {
		return nil
	}
	for i := range payload.Customers {
		if strings.EqualFold(strings.TrimSpace(payload.Customers[i].Email), strings.TrimSpace(email)) {
			return &payload.Customers[i]
		}
	}
	return nil
}

// findCustomerByNameCompany searches by whichever of first/last/company
// are present and confirms all three match exactly (case-insensitive).
func (r *Resolver) findCustomerByNameCompany(first, last, company string) *restCustomer {
	var terms []string
	if first != "" {
		terms = append(terms, "first_name:"+first)
	}
	if last != "" {
		terms = append(terms, "last_name:"+last)
	}
	if company != "" {
		terms = append(terms, fmt.Sprintf("company:'%s'", company))
	}
	if len(terms) == 0 {
		return nil
	}
	params := url.Values{}
	params.Set("query", strings.Join(terms, " "))
	resp, err := r.rest.GetREST("customers/search.json", params)
	if err != nil || !resp.OK() {
		if err != nil {
			r.logger.Warn("customer name search failed (treated as not found)", zap.Error(err))
		}
		return nil
	}
	var payload struct {
		Customers []restCustomer `json:"customers"`
	}
	if err := resp.Decode(&payload); err != nil {
		return nil
	}
	lc := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	for i := range payload.Customers {
		c := &payload.Customers[i]
		if lc(c.FirstName) == lc(first) && lc(c.LastName) == lc(last) && lc(c.Company) == lc(company) {
			return c
		}
	}
	return nil
}

func (r *Resolver) createCustomer(order *domain.SourceOrder, email string) (int64, error) {
	body := r.customerCreateBody(order, email)

	resp, err := r.rest.PostREST("customers.json", map[string]interface{}{"customer": body})
	if err != nil {
		return 0, fmt.Errorf("customer create: %w", err)
	}

	if resp.StatusCode == 422 {
		reason := strings.ToLower(string(resp.Body))
		r.logger.Warn("customer create rejected, retrying degraded",
			zap.String("po_number", order.PONumber),
			zap.String("reason", truncate(reason, 400)),
		)
		changed := false
		if strings.Contains(reason, "email") {
			delete(body, "email")
			changed = true
		}
		if strings.Contains(reason, "phone") {
			delete(body, "phone")
			changed = true
		}
		if changed {
			resp, err = r.rest.PostREST("customers.json", map[string]interface{}{"customer": body})
			if err != nil {
				return 0, fmt.Errorf("customer create retry: %w", err)
			}
		}
	}

	if resp.StatusCode == 422 {
		return 0, &errors.ErrSkipRecord{
			RecordID: order.RecordID.String(),
			PONumber: order.PONumber,
			Reason:   "cannot create customer: " + truncate(string(resp.Body), 400),
		}
	}
	if !resp.OK() {
		return 0, fmt.Errorf("customer create: HTTP %d: %s", resp.StatusCode, truncate(string(resp.Body), 400))
	}

	var payload struct {
		Customer restCustomer `json:"customer"`
	}
	if err := resp.Decode(&payload); err != nil {
		return 0, fmt.Errorf("parse customer create response: %w", err)
	}
	r.logger.Info("Created customer",
		zap.Int64("customer_id", payload.Customer.ID),
		zap.String("company", order.BillToName),
		zap.String("first_name", order.BuyerFirstName),
		zap.String("last_name", order.BuyerLastName),
	)
	return payload.Customer.ID, nil
}

// customerCreateBody builds the creation payload from profile fields and
// whichever addresses have a street line; the bill-to address becomes the
// default.
func (r *Resolver) customerCreateBody(order *domain.SourceOrder, email string) map[string]interface{} {
	body := map[string]interface{}{
		"first_name": order.BuyerFirstName,
		"last_name":  order.BuyerLastName,
		"tags":       "markettime",
		"company":    order.BillToName,
	}
	if email != "" && normalize.ValidEmail(email) {
		body["email"] = email
	}

	var addresses []map[string]interface{}
	if order.BillToAddress1 != "" {
		addresses = append(addresses, cleanAddress(map[string]interface{}{
			"address1": order.BillToAddress1,
			"address2": order.BillToAddress2,
			"city":     order.BillToCity,
			"province": order.BillToState,
			"zip":      order.BillToZip,
			"country":  orDefault(order.BillToCountry, "US"),
			"phone":    order.BillToPhone,
			"company":  order.BillToName,
			"default":  true,
		}))
	}
	if order.ShipToAddress1 != "" {
		addresses = append(addresses, cleanAddress(map[string]interface{}{
			"address1": order.ShipToAddress1,
			"address2": order.ShipToAddress2,
			"city":     order.ShipToCity,
			"province": order.ShipToState,
			"zip":      order.ShipToZip,
			"country":  orDefault(order.ShipToCountry, "US"),
			"phone":    order.ShipToPhone,
			"company":  order.ShipToName,
		}))
	}
	if len(addresses) > 0 {
		body["addresses"] = addresses
	}
	return body
}

func cleanAddress(m map[string]interface{}) map[string]interface{} {
	for k, v := range m {
		if s, ok := v.(string); ok && s == "" {
			delete(m, k)
		}
	}
	return m
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
