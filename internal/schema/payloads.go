package schema

import "encoding/json"

// Payload is the decoded, canonical-shape payload of an event. One variant
// exists per registered type; everything else decodes to UnknownPayload.
type Payload interface {
	payloadType() string
}

// SaleRecorded is the canonical (v2) shape of "sale.recorded".
type SaleRecorded struct {
	TicketID   string     `json:"ticketId"`
	TotalCents int64      `json:"totalCents"`
	Currency   string     `json:"currency"`
	Items      []SaleLine `json:"items,omitempty"`
}

// SaleLine is one line item of a recorded sale.
type SaleLine struct {
	SKU        string `json:"sku"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"priceCents,omitempty"`
}

// PaymentCaptured is the payload of "payment.captured".
type PaymentCaptured struct {
	TicketID    string `json:"ticketId"`
	AmountCents int64  `json:"amountCents"`
	Method      string `json:"method"`
	Reference   string `json:"reference,omitempty"`
}

// PaymentFailed is the payload of "payment.failed".
type PaymentFailed struct {
	TicketID    string `json:"ticketId"`
	AmountCents int64  `json:"amountCents"`
	Method      string `json:"method"`
	Reason      string `json:"reason"`
}

// InventoryAdjusted is the payload of "inventory.adjusted".
type InventoryAdjusted struct {
	ItemID   string `json:"itemId"`
	DeltaQty int    `json:"deltaQty"`
	Reason   string `json:"reason"`
	Note     string `json:"note,omitempty"`
}

// ShiftOpened is the payload of "shift.opened".
type ShiftOpened struct {
	ShiftID           string `json:"shiftId"`
	CashierID         string `json:"cashierId"`
	OpeningFloatCents int64  `json:"openingFloatCents,omitempty"`
}

// ShiftClosed is the payload of "shift.closed".
type ShiftClosed struct {
	ShiftID          string `json:"shiftId"`
	CashierID        string `json:"cashierId"`
	ClosingCashCents int64  `json:"closingCashCents,omitempty"`
	OverShortCents   int64  `json:"overShortCents,omitempty"`
}

// UnknownPayload carries the raw bytes of an unregistered event type.
type UnknownPayload struct {
	EventType string
	Raw       json.RawMessage
}

// MarshalJSON renders the payload as its original bytes, so re-encoding
// an unknown payload is lossless.
func (u UnknownPayload) MarshalJSON() ([]byte, error) {
	if len(u.Raw) == 0 {
		return []byte("null"), nil
	}
	return u.Raw, nil
}

func (SaleRecorded) payloadType() string      { return "sale.recorded" }
func (PaymentCaptured) payloadType() string   { return "payment.captured" }
func (PaymentFailed) payloadType() string     { return "payment.failed" }
func (InventoryAdjusted) payloadType() string { return "inventory.adjusted" }
func (ShiftOpened) payloadType() string       { return "shift.opened" }
func (ShiftClosed) payloadType() string       { return "shift.closed" }
func (u UnknownPayload) payloadType() string  { return u.EventType }

// DecodePayload migrates payload to the latest version for its type and
// unmarshals it into the matching variant. Unregistered types come back as
// UnknownPayload with the raw bytes preserved.
func (r *Registry) DecodePayload(eventType string, version int, payload json.RawMessage) (Payload, error) {
	typ, _ := TypeVersion(eventType)
	_, raw, err := r.Migrate(eventType, version, payload)
	if err != nil {
		return nil, err
	}
	switch typ {
	case "sale.recorded":
		var p SaleRecorded
		err = json.Unmarshal(raw, &p)
		return p, err
	case "payment.captured":
		var p PaymentCaptured
		err = json.Unmarshal(raw, &p)
		return p, err
	case "payment.failed":
		var p PaymentFailed
		err = json.Unmarshal(raw, &p)
		return p, err
	case "inventory.adjusted":
		var p InventoryAdjusted
		err = json.Unmarshal(raw, &p)
		return p, err
	case "shift.opened":
		var p ShiftOpened
		err = json.Unmarshal(raw, &p)
		return p, err
	case "shift.closed":
		var p ShiftClosed
		err = json.Unmarshal(raw, &p)
		return p, err
	}
	return UnknownPayload{EventType: typ, Raw: raw}, nil
}
