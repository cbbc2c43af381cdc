package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/seu-repo/wasteledger/internal/domain"
)

// transactionRow keeps the store snapshot in columns and embeds calibration,
// credential and the item list as JSON documents.
type transactionRow struct {
	TransactionID string         `gorm:"column:transaction_id;primaryKey;size:64"`
	StoreID       string         `gorm:"column:store_id;size:64;not null;index"`
	StoreName     string         `gorm:"column:store_name;not null"`
	StoreLocation string         `gorm:"column:store_location;not null"`
	ManagerName   string         `gorm:"column:manager_name;not null"`
	VendorName    string         `gorm:"column:vendor_name;not null"`
	Calibration   datatypes.JSON `gorm:"column:calibration"`
	Credential    datatypes.JSON `gorm:"column:credential"`
	Items         datatypes.JSON `gorm:"column:items"`
	State         string         `gorm:"column:state;size:32;not null"`
	FinalizedAt   *time.Time     `gorm:"column:finalized_at"`
	CreatedAt     time.Time      `gorm:"column:created_at;index"`
	UpdatedAt     time.Time      `gorm:"column:updated_at"`
}

func (transactionRow) TableName() string { return "transactions" }

type sequenceRow struct {
	StoreID   string    `gorm:"column:store_id;primaryKey;size:64"`
	Day       string    `gorm:"column:day;primaryKey;size:8"`
	LastNo    int       `gorm:"column:last_no;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (sequenceRow) TableName() string { return "transaction_sequences" }

func toRow(tx *domain.Transaction) (*transactionRow, error) {
	calibration, err := json.Marshal(tx.Calibration)
	if err != nil {
		return nil, fmt.Errorf("encode calibration: %w", err)
	}
	credential, err := json.Marshal(tx.Credential)
	if err != nil {
		return nil, fmt.Errorf("encode credential: %w", err)
	}
	items := tx.Items
	if items == nil {
		items = []domain.Item{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}

	return &transactionRow{
		TransactionID: tx.TransactionID,
		StoreID:       tx.Store.StoreID,
		StoreName:     tx.Store.StoreName,
		StoreLocation: tx.Store.StoreLocation,
		ManagerName:   tx.ManagerName,
		VendorName:    tx.VendorName,
		Calibration:   datatypes.JSON(calibration),
		Credential:    datatypes.JSON(credential),
		Items:         datatypes.JSON(itemsJSON),
		State:         string(tx.State),
		FinalizedAt:   tx.FinalizedAt,
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
	}, nil
}

func (r *transactionRow) toDomain() (*domain.Transaction, error) {
	tx := &domain.Transaction{
		TransactionID: r.TransactionID,
		Store: domain.StoreSnapshot{
			StoreID:       r.StoreID,
			StoreName:     r.StoreName,
			StoreLocation: r.StoreLocation,
		},
		ManagerName: r.ManagerName,
		VendorName:  r.VendorName,
		Items:       []domain.Item{},
		State:       domain.State(r.State),
		FinalizedAt: r.FinalizedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if len(r.Calibration) > 0 {
		if err := json.Unmarshal(r.Calibration, &tx.Calibration); err != nil {
			return nil, fmt.Errorf("decode calibration of %s: %w", r.TransactionID, err)
		}
	}
	if len(r.Credential) > 0 {
		if err := json.Unmarshal(r.Credential, &tx.Credential); err != nil {
			return nil, fmt.Errorf("decode credential of %s: %w", r.TransactionID, err)
		}
	}
	if len(r.Items) > 0 {
		if err := json.Unmarshal(r.Items, &tx.Items); err != nil {
			return nil, fmt.Errorf("decode items of %s: %w", r.TransactionID, err)
		}
	}
	return tx, nil
}
