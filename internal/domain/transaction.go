package domain

import (
	"time"
)

type WeightSource string

const (
	WeightSourceManual WeightSource = "manually"
	WeightSourceSystem WeightSource = "system"
)

func (s WeightSource) Valid() bool {
	return s == WeightSourceManual || s == WeightSourceSystem
}

// StoreSnapshot is copied into a transaction when it is opened and never
// refreshed afterwards.
type StoreSnapshot struct {
	StoreID       string `json:"store_id"`
	StoreName     string `json:"store_name"`
	StoreLocation string `json:"store_location"`
}

// Calibration holds the reference image of the accepted calibration. Each
// accepted recalibration replaces it.
type Calibration struct {
	Image        string     `json:"image,omitempty"`
	ErrorMargin  *float64   `json:"error_margin,omitempty"`
	CalibratedAt *time.Time `json:"calibrated_at,omitempty"`
}

func (c Calibration) Done() bool {
	return c.CalibratedAt != nil
}

type CredentialKind string

const (
	CredentialKindSignature CredentialKind = "signature"
	CredentialKindOTP       CredentialKind = "otp"
)

type Credential struct {
	Kind       CredentialKind `json:"kind,omitempty"`
	Signature  string         `json:"signature,omitempty"`
	VerifiedBy string         `json:"verified_by,omitempty"`
	VerifiedAt *time.Time     `json:"verified_at,omitempty"`
}

func (c Credential) Done() bool {
	return c.VerifiedAt != nil
}

type Item struct {
	ItemNo       int          `json:"item_no"`
	MaterialType string       `json:"material_type"`
	Image        string       `json:"image,omitempty"`
	Weight       float64      `json:"weight"` // kg
	WeightSource WeightSource `json:"weight_source"`
	CreatedAt    time.Time    `json:"created_at"`
}

type Transaction struct {
	TransactionID string        `json:"transaction_id"`
	Store         StoreSnapshot `json:"store"`
	ManagerName   string        `json:"manager_name"`
	VendorName    string        `json:"vendor_name"`
	Calibration   Calibration   `json:"calibration"`
	Credential    Credential    `json:"credential"`
	Items         []Item        `json:"items"`
	State         State         `json:"state"`
	FinalizedAt   *time.Time    `json:"finalized_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// NextItemNo is the number the next appended item receives.
func (t *Transaction) NextItemNo() int {
	return len(t.Items) + 1
}

// DisplayItems returns the items newest first. Item numbers are untouched.
func (t *Transaction) DisplayItems() []Item {
	out := make([]Item, len(t.Items))
	for i, item := range t.Items {
		out[len(t.Items)-1-i] = item
	}
	return out
}

// TotalWeight sums item weights without rounding.
func (t *Transaction) TotalWeight() float64 {
	var total float64
	for _, item := range t.Items {
		total += item.Weight
	}
	return total
}
