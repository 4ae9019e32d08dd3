package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Negotiation statuses, in lifecycle order.
const (
	StatusAwaitingHuman   = "AWAITING_HUMAN"
	StatusInquirySent     = "INQUIRY_SENT"
	StatusInvoiceReceived = "INVOICE_RECEIVED"
	StatusOrderPlaced     = "ORDER_PLACED"
)

// DefaultUnits is the order quantity a fresh negotiation asks for.
const DefaultUnits = 500

// Negotiation tracks one restock request from draft to placed order.
type Negotiation struct {
	ID            int64           `json:"id"`
	ItemName      string          `json:"item_name"`
	SupplierName  string          `json:"supplier_name"`
	SupplierEmail string          `json:"supplier_email"`
	Draft         string          `json:"draft"`
	InvoiceAmount decimal.Decimal `json:"invoice_amount"`
	Status        string          `json:"status"`
	Units         int             `json:"units"`
	LastReply     string          `json:"last_reply,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ValidStatus reports whether s is a known negotiation status.
func ValidStatus(s string) bool {
	switch s {
	case StatusAwaitingHuman, StatusInquirySent, StatusInvoiceReceived, StatusOrderPlaced:
		return true
	}
	return false
}

// Terminal reports whether the negotiation can no longer change.
func (n Negotiation) Terminal() bool {
	return n.Status == StatusOrderPlaced
}
