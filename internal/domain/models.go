package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexString decodes a JSON value that the MarketTime API serves
// inconsistently as either a string or a number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// SourceOrder is one order row from the MarketTime orders/get endpoint.
// Read-only input for the run's duration.
type SourceOrder struct {
	RecordID                FlexString    `json:"recordID"`
	PONumber                string        `json:"poNumber"`
	ManufacturerOrderStatus string        `json:"manufacturerOrderStatus"`
	OrderDate               string        `json:"orderDate"`
	ShipDate                string        `json:"shipDate"`
	ShippingMethod          string        `json:"shippingMethod"`
	SpecialInstructions     string        `json:"specialInstructions"`
	BuyerFirstName          string        `json:"buyerFirstName"`
	BuyerLastName           string        `json:"buyerLastName"`
	BillToName              string        `json:"billToName"`
	BillToAddress1          string        `json:"billToAddress1"`
	BillToAddress2          string        `json:"billToAddress2"`
	BillToCity              string        `json:"billToCity"`
	BillToState             string        `json:"billToState"`
	BillToZip               string        `json:"billToZip"`
	BillToCountry           string        `json:"billToCountry"`
	BillToPhone             string        `json:"billToPhone"`
	BillToEmail             string        `json:"billToEmail"`
	ShipToName              string        `json:"shipToName"`
	ShipToAddress1          string        `json:"shipToAddress1"`
	ShipToAddress2          string        `json:"shipToAddress2"`
	ShipToCity              string        `json:"shipToCity"`
	ShipToState             string        `json:"shipToState"`
	ShipToZip               string        `json:"shipToZip"`
	ShipToCountry           string        `json:"shipToCountry"`
	ShipToPhone             string        `json:"shipToPhone"`
	ShipToEmail             string        `json:"shipToEmail"`
	RepGroupID              FlexString    `json:"repGroupID"`
	RetailerID              FlexString    `json:"retailerID"`
	ManufacturerID          FlexString    `json:"manufacturerID"`
	Details                 []OrderDetail `json:"details"`
}

// OrderDetail is one line item on a source order.
type OrderDetail struct {
	ItemNumber string     `json:"itemNumber"`
	Name       string     `json:"name"`
	Quantity   int        `json:"quantity"`
	UnitPrice  FlexString `json:"unitPrice"`
}

// IsOpen reports whether the manufacturer order status is OPEN, the only
// status this sync processes.
func (o *SourceOrder) IsOpen() bool {
	return strings.EqualFold(strings.TrimSpace(o.ManufacturerOrderStatus), "OPEN")
}

// BuyerEmail returns the ship-to email, falling back to bill-to.
func (o *SourceOrder) BuyerEmail() string {
	if o.ShipToEmail != "" {
		return o.ShipToEmail
	}
	return o.BillToEmail
}

// LocationName returns the desired company location name: ship-to name,
// falling back to bill-to name, falling back to "Default".
func (o *SourceOrder) LocationName() string {
	if o.ShipToName != "" {
		return o.ShipToName
	}
	if o.BillToName != "" {
		return o.BillToName
	}
	return "Default"
}
