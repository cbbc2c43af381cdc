package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/wasteledger/internal/adapter/queue"
	"github.com/seu-repo/wasteledger/internal/domain"
	"github.com/seu-repo/wasteledger/internal/observability/telemetry"
	"github.com/seu-repo/wasteledger/internal/ports"
)

// BillingConfig holds the rate table and currency used for bills
type BillingConfig struct {
	Currency string
	Rates    domain.RateTable
}

// DefaultRateTable returns the default price per kg of each material
func DefaultRateTable() domain.RateTable {
	return domain.RateTable{
		domain.MaterialRecyclingMetal:   25.00,
		domain.MaterialRecyclingPlastic: 12.00,
		domain.MaterialRecyclingPaper:   8.00,
		domain.MaterialCardboard:        6.00,
		domain.MaterialGlass:            2.00,
		domain.MaterialEWaste:           40.00,
		domain.MaterialOrganicWaste:     1.00,
		domain.MaterialHazardousWaste:   0,
		domain.MaterialGeneralWaste:     0,
	}
}

// DefaultBillingConfig returns the default billing configuration
func DefaultBillingConfig() *BillingConfig {
	return &BillingConfig{
		Currency: "INR",
		Rates:    DefaultRateTable(),
	}
}

// RatesFromConfig overlays configured rates on the defaults. Keys name a
// material case-insensitively, with spaces or underscores.
func RatesFromConfig(overrides map[string]float64) (domain.RateTable, error) {
	rates := DefaultRateTable()
	for key, rate := range overrides {
		material, ok := materialByKey(key)
		if !ok {
			return nil, fmt.Errorf("unknown material %q in rate table", key)
		}
		if rate < 0 {
			return nil, fmt.Errorf("negative rate for %s", material)
		}
		rates[material] = rate
	}
	return rates, nil
}

func materialByKey(key string) (string, bool) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "_", " "))
	for _, m := range domain.Materials {
		if strings.ToLower(m) == norm {
			return m, true
		}
	}
	return "", false
}

// BillingService aggregates transaction items into bills
type BillingService struct {
	txRepo  ports.TransactionRepository
	mq      queue.MessageQueue
	billing *BillingConfig
	locks   *keyedMutex
	log     *zap.Logger
	now     func() time.Time
}

// NewBillingService creates a new billing service
func NewBillingService(
	txRepo ports.TransactionRepository,
	mq queue.MessageQueue,
	billing *BillingConfig,
	log *zap.Logger,
) *BillingService {
	if billing == nil {
		billing = DefaultBillingConfig()
	}
	if billing.Rates == nil {
		billing.Rates = domain.RateTable{}
	}
	return &BillingService{
		txRepo:  txRepo,
		mq:      mq,
		billing: billing,
		locks:   transactionLocks,
		log:     log,
		now:     time.Now,
	}
}

// Summarize groups items by material in order of first occurrence. Totals
// are kept unrounded.
func (s *BillingService) Summarize(tx *domain.Transaction) domain.Summary {
	if tx == nil {
		return domain.Summary{PerMaterial: []domain.MaterialSummary{}}
	}
	return summarizeItems(tx.Items, s.billing.Rates)
}

func summarizeItems(items []domain.Item, rates domain.RateTable) domain.Summary {
	summary := domain.Summary{PerMaterial: []domain.MaterialSummary{}}
	index := make(map[string]int)

	for _, item := range items {
		i, ok := index[item.MaterialType]
		if !ok {
			i = len(summary.PerMaterial)
			index[item.MaterialType] = i
			summary.PerMaterial = append(summary.PerMaterial, domain.MaterialSummary{
				MaterialType: item.MaterialType,
				Rate:         rates.Rate(item.MaterialType),
			})
		}
		m := &summary.PerMaterial[i]
		m.ItemCount++
		m.TotalWeight += item.Weight
		summary.GrandTotalWeight += item.Weight
	}

	for i := range summary.PerMaterial {
		m := &summary.PerMaterial[i]
		m.TotalAmount = m.TotalWeight * m.Rate
		summary.GrandTotalAmount += m.TotalAmount
	}
	return summary
}

func (s *BillingService) bill(tx *domain.Transaction) *domain.Bill {
	return &domain.Bill{
		TransactionID: tx.TransactionID,
		Store:         tx.Store,
		ManagerName:   tx.ManagerName,
		VendorName:    tx.VendorName,
		Currency:      s.billing.Currency,
		State:         tx.State,
		Summary:       s.Summarize(tx).Display(),
		GeneratedAt:   s.now().UTC(),
	}
}

// GenerateBill builds the display-rounded bill of a transaction in any state
func (s *BillingService) GenerateBill(ctx context.Context, id string) (*domain.Bill, error) {
	tx, err := s.txRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	if tx == nil {
		return nil, domain.ErrTransactionNotFound
	}
	return s.bill(tx), nil
}

// FinalizeTransaction closes a transaction that has items and publishes its
// bill for export collaborators.
func (s *BillingService) FinalizeTransaction(ctx context.Context, id string) (*domain.Bill, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	tx, err := s.txRepo.Modify(ctx, id, func(tx *domain.Transaction) error {
		next, err := tx.State.Apply(domain.EventFinalize)
		if err != nil {
			return err
		}
		if len(tx.Items) == 0 {
			return &domain.ValidationError{Field: "items", Reason: "a transaction without items cannot be finalized"}
		}
		now := s.now().UTC()
		tx.State = next
		tx.FinalizedAt = &now
		tx.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	bill := s.bill(tx)
	telemetry.TransactionsFinalizedTotal.Inc()
	s.log.Info("Transaction finalized",
		zap.String("transaction_id", id),
		zap.Int("items", len(tx.Items)),
		zap.Float64("total_weight", bill.Summary.GrandTotalWeight),
		zap.Float64("total_amount", bill.Summary.GrandTotalAmount),
		zap.String("currency", bill.Currency),
	)
	publishEvent(s.mq, s.log, SubjectTransactionFinalized, id, bill)

	return bill, nil
}

// StoreSummary aggregates every item of every transaction of a store
func (s *BillingService) StoreSummary(ctx context.Context, storeID string) (*domain.StoreSummary, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return nil, &domain.ValidationError{Field: "store_id", Reason: "required"}
	}
	txs, err := s.txRepo.FindByStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	// FindByStore is newest first; aggregate oldest first so the material
	// order follows first occurrence in time.
	var items []domain.Item
	for i := len(txs) - 1; i >= 0; i-- {
		items = append(items, txs[i].Items...)
	}

	return &domain.StoreSummary{
		StoreID:          storeID,
		TransactionCount: len(txs),
		Currency:         s.billing.Currency,
		Summary:          summarizeItems(items, s.billing.Rates).Display(),
		GeneratedAt:      s.now().UTC(),
	}, nil
}
