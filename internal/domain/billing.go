package domain

import (
	"math"
	"time"
)

// RateTable maps a material type to its price per kilogram.
type RateTable map[string]float64

func (r RateTable) Rate(material string) float64 {
	return r[material]
}

type MaterialSummary struct {
	MaterialType string  `json:"material_type"`
	ItemCount    int     `json:"item_count"`
	TotalWeight  float64 `json:"total_weight"`
	Rate         float64 `json:"rate"`
	TotalAmount  float64 `json:"total_amount"`
}

// Summary values are accumulated unrounded; call Display before showing them.
type Summary struct {
	PerMaterial      []MaterialSummary `json:"per_material"`
	GrandTotalWeight float64           `json:"grand_total_weight"`
	GrandTotalAmount float64           `json:"grand_total_amount"`
}

// Display returns a copy with weights and amounts rounded to two decimals.
func (s Summary) Display() Summary {
	out := Summary{
		PerMaterial:      make([]MaterialSummary, len(s.PerMaterial)),
		GrandTotalWeight: Round2(s.GrandTotalWeight),
		GrandTotalAmount: Round2(s.GrandTotalAmount),
	}
	for i, m := range s.PerMaterial {
		m.TotalWeight = Round2(m.TotalWeight)
		m.TotalAmount = Round2(m.TotalAmount)
		out.PerMaterial[i] = m
	}
	return out
}

type Bill struct {
	TransactionID string        `json:"transaction_id"`
	Store         StoreSnapshot `json:"store"`
	ManagerName   string        `json:"manager_name"`
	VendorName    string        `json:"vendor_name"`
	Currency      string        `json:"currency"`
	State         State         `json:"state"`
	Summary       Summary       `json:"summary"`
	GeneratedAt   time.Time     `json:"generated_at"`
}

type StoreSummary struct {
	StoreID          string    `json:"store_id"`
	TransactionCount int       `json:"transaction_count"`
	Currency         string    `json:"currency"`
	Summary          Summary   `json:"summary"`
	GeneratedAt      time.Time `json:"generated_at"`
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
