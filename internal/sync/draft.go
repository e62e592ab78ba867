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

const metafieldNamespace = "b2b"

// DraftService assembles and creates Shopify draft orders from source
// orders. Variant lookups are cached per run; negative lookups are not
// cached, so a persistently missing SKU is re-queried on later records.
type DraftService struct {
	gql      graphClient
	variants *Cache // sku -> variant GID
	logger   *zap.Logger
}

// NewDraftService creates a DraftService with an empty variant cache.
func NewDraftService(gql graphClient, logger *zap.Logger) *DraftService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftService{
		gql:      gql,
		variants: NewCache(),
		logger:   logger,
	}
}

// EntityRefs carries the resolved Shopify identities a draft is attached
// to. Company/contact/location must all be present for a company
// purchasing entity; otherwise the customer reference is used.
type EntityRefs struct {
	CustomerID int64
	CompanyID  string
	ContactID  string
	LocationID string
}

// Create builds the draftOrderCreate input for the order and executes it,
// returning the new draft's GID. A userErrors response or a missing id is
// a hard failure for the record.
func (s *DraftService) Create(order *domain.SourceOrder, refs EntityRefs) (string, error) {
	input := s.BuildInput(order, refs)

	resp, err := s.gql.Execute(shopify.DraftOrderCreateMutation, map[string]interface{}{"input": input})
	if err != nil {
		return "", fmt.Errorf("draftOrderCreate: %w", err)
	}
	var result struct {
		DraftOrderCreate struct {
			DraftOrder struct {
				ID       string `json:"id"`
				Name     string `json:"name"`
				PONumber string `json:"poNumber"`
			} `json:"draftOrder"`
			UserErrors []errors.UserError `json:"userErrors"`
		} `json:"draftOrderCreate"`
	}
	if err := resp.Decode(&result); err != nil {
		return "", fmt.Errorf("parse draftOrderCreate response: %w", err)
	}
	if len(result.DraftOrderCreate.UserErrors) > 0 {
		return "", &errors.UserErrors{Operation: "draftOrderCreate", Errors: result.DraftOrderCreate.UserErrors}
	}
	if result.DraftOrderCreate.DraftOrder.ID == "" {
		return "", fmt.Errorf("draftOrderCreate returned no draft id")
	}
	return result.DraftOrderCreate.DraftOrder.ID, nil
}

// BuildInput assembles the full draft payload: line items, note, tags,
// addresses, metafields, and the purchasing entity reference.
func (s *DraftService) BuildInput(order *domain.SourceOrder, refs EntityRefs) shopify.DraftOrderInput {
	input := shopify.DraftOrderInput{
		LineItems:       s.buildLineItems(order),
		Note:            buildNote(order),
		Tags:            buildTags(order),
		BillingAddress:  mailingAddress(order, "billing"),
		ShippingAddress: mailingAddress(order, "shipping"),
		Metafields:      buildMetafields(order),
	}
	if order.PONumber != "" {
		input.PONumber = &order.PONumber
	}
	if email := order.BuyerEmail(); email != "" {
		input.Email = &email
	}

	if refs.CompanyID != "" && refs.ContactID != "" && refs.LocationID != "" {
		input.PurchasingEntity = &shopify.PurchasingEntityInput{
			PurchasingCompany: &shopify.PurchasingCompanyInput{
				CompanyID:         refs.CompanyID,
				CompanyContactID:  refs.ContactID,
				CompanyLocationID: refs.LocationID,
			},
		}
	} else if refs.CustomerID > 0 {
		gid := shopify.ToGID("Customer", refs.CustomerID)
		input.PurchasingEntity = &shopify.PurchasingEntityInput{CustomerID: &gid}
	}
	return input
}

// buildLineItems resolves each line against the catalog by SKU; misses
// fall back to a manual line with title, SKU and a parsed price
// (defaulting to zero when unparseable).
func (s *DraftService) buildLineItems(order *domain.SourceOrder) []shopify.DraftOrderLineItemInput {
	items := make([]shopify.DraftOrderLineItemInput, 0, len(order.Details))
	for _, detail := range order.Details {
		sku := detail.ItemNumber
		price, priceOK := normalize.Price(detail.UnitPrice.String())

		if variantID := s.findVariantBySKU(sku); variantID != "" {
			li := shopify.DraftOrderLineItemInput{
				VariantID: &variantID,
				Quantity:  detail.Quantity,
			}
			if priceOK {
				p := price.StringFixed(2)
				li.OriginalUnitPrice = &p
			}
			items = append(items, li)
			continue
		}

		title := detail.Name
		if title == "" {
			title = sku
		}
		p := "0"
		if priceOK {
			p = price.StringFixed(2)
		}
		li := shopify.DraftOrderLineItemInput{
			Title:             &title,
			Quantity:          detail.Quantity,
			OriginalUnitPrice: &p,
		}
		if sku != "" {
			skuCopy := sku
			li.SKU = &skuCopy
		}
		items = append(items, li)
	}
	return items
}

// findVariantBySKU resolves a catalog variant GID by SKU. Lookup errors
// and misses both yield "", and only hits are cached.
func (s *DraftService) findVariantBySKU(sku string) string {
	if sku == "" {
		return ""
	}
	if id, ok := s.variants.Get(sku); ok {
		return id
	}
	resp, err := s.gql.Execute(shopify.VariantBySKUQuery, map[string]interface{}{
		"q": "sku:" + sku,
	})
	if err != nil {
		s.logger.Warn("variant lookup failed (treated as not found)", zap.String("sku", sku), zap.Error(err))
		return ""
	}
	var result struct {
		ProductVariants struct {
			Nodes []struct {
				ID  string `json:"id"`
				SKU string `json:"sku"`
			} `json:"nodes"`
		} `json:"productVariants"`
	}
	if err := resp.Decode(&result); err != nil {
		return ""
	}
	if len(result.ProductVariants.Nodes) == 0 {
		return ""
	}
	id := result.ProductVariants.Nodes[0].ID
	if id != "" {
		s.variants.Put(sku, id)
	}
	return id
}

func buildNote(order *domain.SourceOrder) string {
	var parts []string
	if order.PONumber != "" {
		parts = append(parts, "PO: "+order.PONumber)
	}
	if order.SpecialInstructions != "" {
		parts = append(parts, order.SpecialInstructions)
	}
	if order.ShippingMethod != "" {
		parts = append(parts, "Shipping: "+order.ShippingMethod)
	}
	return strings.Join(parts, " | ")
}

// buildTags emits the fixed classification tag plus the identifier tags
// downstream automation keys off.
func buildTags(order *domain.SourceOrder) []string {
	tags := []string{
		"markettime",
		recordTag(order.RecordID.String()),
	}
	if id := order.RepGroupID.String(); id != "" {
		tags = append(tags, "mt_repGroupID:"+id)
	}
	if id := order.RetailerID.String(); id != "" {
		tags = append(tags, "mt_retailerID:"+id)
	}
	if id := order.ManufacturerID.String(); id != "" {
		tags = append(tags, "mt_manufacturerID:"+id)
	}
	return tags
}

// buildMetafields emits b2b.* metafields, each only when the source value
// is non-empty.
func buildMetafields(order *domain.SourceOrder) []shopify.MetafieldInput {
	var metafields []shopify.MetafieldInput
	if d := normalize.CalendarDate(order.ShipDate); d != "" {
		metafields = append(metafields, shopify.MetafieldInput{
			Namespace: metafieldNamespace, Key: "ship_date", Value: d,
		})
	}
	if email := strings.TrimSpace(order.BillToEmail); email != "" {
		metafields = append(metafields, shopify.MetafieldInput{
			Namespace: metafieldNamespace, Key: "bill_to_email", Value: email,
		})
	}
	if po := strings.TrimSpace(order.PONumber); po != "" {
		metafields = append(metafields, shopify.MetafieldInput{
			Namespace: metafieldNamespace, Key: "po_number", Value: po,
		})
	}
	return metafields
}

// mailingAddress maps the raw bill-to/ship-to fields onto the draft's
// mailing address. Unlike company addresses these keep the source's state
// and country spelling; Shopify resolves them itself.
func mailingAddress(order *domain.SourceOrder, kind string) *shopify.MailingAddressInput {
	if kind == "billing" {
		return &shopify.MailingAddressInput{
			FirstName: order.BuyerFirstName,
			LastName:  order.BuyerLastName,
			Company:   order.BillToName,
			Address1:  order.BillToAddress1,
			Address2:  order.BillToAddress2,
			City:      order.BillToCity,
			Province:  order.BillToState,
			Zip:       order.BillToZip,
			Country:   orDefault(order.BillToCountry, "US"),
			Phone:     order.BillToPhone,
		}
	}
	return &shopify.MailingAddressInput{
		FirstName: order.BuyerFirstName,
		LastName:  order.BuyerLastName,
		Company:   order.ShipToName,
		Address1:  order.ShipToAddress1,
		Address2:  order.ShipToAddress2,
		City:      order.ShipToCity,
		Province:  order.ShipToState,
		Zip:       order.ShipToZip,
		Country:   orDefault(order.ShipToCountry, "US"),
		Phone:     order.ShipToPhone,
	}
}
