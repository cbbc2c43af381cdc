package transaction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/wasteledger/internal/adapter/queue"
	"github.com/seu-repo/wasteledger/internal/domain"
	"github.com/seu-repo/wasteledger/internal/observability/telemetry"
	"github.com/seu-repo/wasteledger/internal/ports"
)

const (
	DefaultCalibrationTolerance = 0.1 // kg

	// calibrationEpsilon absorbs float noise so that a difference of exactly
	// the tolerance (10.00 vs 10.10) is accepted.
	calibrationEpsilon = 1e-9
)

type Service struct {
	repo       ports.TransactionRepository
	ids        *IDGenerator
	recognizer ports.WeightRecognizer
	verifier   ports.CredentialVerifier
	mq         queue.MessageQueue
	tolerance  float64
	locks      *keyedMutex
	log        *zap.Logger
	now        func() time.Time
}

func NewService(
	repo ports.TransactionRepository,
	ids *IDGenerator,
	recognizer ports.WeightRecognizer,
	verifier ports.CredentialVerifier,
	mq queue.MessageQueue,
	tolerance float64,
	log *zap.Logger,
) *Service {
	if tolerance <= 0 {
		tolerance = DefaultCalibrationTolerance
	}
	return &Service{
		repo:       repo,
		ids:        ids,
		recognizer: recognizer,
		verifier:   verifier,
		mq:         mq,
		tolerance:  tolerance,
		locks:      transactionLocks,
		log:        log,
		now:        time.Now,
	}
}

func (s *Service) CreateTransaction(ctx context.Context, in ports.CreateTransactionInput) (*domain.Transaction, error) {
	in = ports.CreateTransactionInput{
		StoreID:       strings.TrimSpace(in.StoreID),
		StoreName:     strings.TrimSpace(in.StoreName),
		StoreLocation: strings.TrimSpace(in.StoreLocation),
		ManagerName:   strings.TrimSpace(in.ManagerName),
		VendorName:    strings.TrimSpace(in.VendorName),
	}
	required := []struct{ field, value string }{
		{"store_id", in.StoreID},
		{"store_name", in.StoreName},
		{"store_location", in.StoreLocation},
		{"manager_name", in.ManagerName},
		{"vendor_name", in.VendorName},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, &domain.ValidationError{Field: r.field, Reason: "required"}
		}
	}

	var tx *domain.Transaction
	for attempt := 0; attempt < 2; attempt++ {
		id, err := s.ids.Generate(ctx, in.StoreID)
		if err != nil {
			return nil, err
		}

		now := s.now().UTC()
		tx = &domain.Transaction{
			TransactionID: id,
			Store: domain.StoreSnapshot{
				StoreID:       in.StoreID,
				StoreName:     in.StoreName,
				StoreLocation: in.StoreLocation,
			},
			ManagerName: in.ManagerName,
			VendorName:  in.VendorName,
			Items:       []domain.Item{},
			State:       domain.StateCreated,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		err = s.repo.Create(ctx, tx)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrDuplicateTransactionID) {
			s.log.Error("Failed to persist transaction", zap.String("transaction_id", id), zap.Error(err))
			return nil, fmt.Errorf("create transaction: %w", err)
		}

		telemetry.DuplicateIDCollisionsTotal.Inc()
		s.log.Warn("Transaction id collision",
			zap.String("transaction_id", id),
			zap.Int("attempt", attempt+1),
		)
		if attempt == 1 {
			return nil, err
		}
	}

	telemetry.TransactionsCreatedTotal.Inc()
	s.log.Info("Transaction created",
		zap.String("transaction_id", tx.TransactionID),
		zap.String("store_id", tx.Store.StoreID),
	)
	publishEvent(s.mq, s.log, SubjectTransactionCreated, tx.TransactionID, tx.Store)

	return tx, nil
}

func (s *Service) SubmitCalibration(ctx context.Context, id string, in ports.CalibrationInput) (*domain.Transaction, error) {
	if strings.TrimSpace(in.Image) == "" {
		return nil, &domain.ValidationError{Field: "image", Reason: "required"}
	}
	if !positive(in.FetchWeight) {
		return nil, &domain.ValidationError{Field: "fetch_weight", Reason: "must be a positive number"}
	}
	if !positive(in.EnterWeight) {
		return nil, &domain.ValidationError{Field: "enter_weight", Reason: "must be a positive number"}
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	diff := math.Abs(in.FetchWeight - in.EnterWeight)
	tx, err := s.repo.Modify(ctx, id, func(tx *domain.Transaction) error {
		next, err := tx.State.Apply(domain.EventCalibrate)
		if err != nil {
			return err
		}
		if diff > s.tolerance+calibrationEpsilon {
			return &domain.CalibrationMismatchError{
				Fetched:   in.FetchWeight,
				Entered:   in.EnterWeight,
				Tolerance: s.tolerance,
			}
		}

		now := s.now().UTC()
		margin := diff
		tx.Calibration = domain.Calibration{
			Image:        in.Image,
			ErrorMargin:  &margin,
			CalibratedAt: &now,
		}
		tx.State = next
		tx.UpdatedAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCalibrationMismatch) {
			telemetry.CalibrationResultsTotal.WithLabelValues("rejected").Inc()
			s.log.Info("Calibration rejected",
				zap.String("transaction_id", id),
				zap.Float64("fetch_weight", in.FetchWeight),
				zap.Float64("enter_weight", in.EnterWeight),
			)
		}
		return nil, err
	}

	telemetry.CalibrationResultsTotal.WithLabelValues("accepted").Inc()
	s.log.Info("Calibration accepted",
		zap.String("transaction_id", id),
		zap.Float64("error_margin", diff),
		zap.String("state", string(tx.State)),
	)
	publishEvent(s.mq, s.log, SubjectTransactionCalibrated, id, map[string]interface{}{
		"error_margin": diff,
	})

	return tx, nil
}

func (s *Service) VerifyCredential(ctx context.Context, id string, in ports.CredentialInput) (*domain.Transaction, error) {
	if in.Kind == "" {
		in.Kind = domain.CredentialKindSignature
	}

	current, err := s.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := current.State.Apply(domain.EventVerifyCredential); err != nil {
		return nil, err
	}
	if err := s.verifier.Verify(ctx, in); err != nil {
		s.log.Info("Credential rejected", zap.String("transaction_id", id), zap.Error(err))
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	tx, err := s.repo.Modify(ctx, id, func(tx *domain.Transaction) error {
		next, err := tx.State.Apply(domain.EventVerifyCredential)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		tx.Credential = domain.Credential{
			Kind:       in.Kind,
			Signature:  in.Signature,
			VerifiedBy: strings.TrimSpace(in.VerifiedBy),
			VerifiedAt: &now,
		}
		tx.State = next
		tx.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Credential verified",
		zap.String("transaction_id", id),
		zap.String("kind", string(in.Kind)),
	)
	publishEvent(s.mq, s.log, SubjectCredentialVerified, id, map[string]interface{}{
		"kind":        in.Kind,
		"verified_by": tx.Credential.VerifiedBy,
	})

	return tx, nil
}

// AddItem appends an item and returns the full item list in insertion
// order. Item numbers are assigned under the transaction lock.
func (s *Service) AddItem(ctx context.Context, id string, in ports.AddItemInput) ([]domain.Item, error) {
	in.MaterialType = strings.TrimSpace(in.MaterialType)
	if in.MaterialType == "" {
		return nil, &domain.ValidationError{Field: "material_type", Reason: "required"}
	}
	if !domain.IsKnownMaterial(in.MaterialType) {
		return nil, &domain.ValidationError{Field: "material_type", Reason: fmt.Sprintf("unknown material %q", in.MaterialType)}
	}
	if !positive(in.Weight) {
		return nil, &domain.ValidationError{Field: "weight", Reason: "must be a positive number"}
	}
	if !in.WeightSource.Valid() {
		return nil, &domain.ValidationError{Field: "weight_source", Reason: "must be manually or system"}
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	var added domain.Item
	tx, err := s.repo.Modify(ctx, id, func(tx *domain.Transaction) error {
		next, err := tx.State.Apply(domain.EventAddItem)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		added = domain.Item{
			ItemNo:       tx.NextItemNo(),
			MaterialType: in.MaterialType,
			Image:        in.Image,
			Weight:       in.Weight,
			WeightSource: in.WeightSource,
			CreatedAt:    now,
		}
		tx.Items = append(tx.Items, added)
		tx.State = next
		tx.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.ItemsAppendedTotal.WithLabelValues(string(in.WeightSource)).Inc()
	s.log.Info("Item added",
		zap.String("transaction_id", id),
		zap.Int("item_no", added.ItemNo),
		zap.String("material_type", added.MaterialType),
		zap.Float64("weight", added.Weight),
		zap.String("weight_source", string(added.WeightSource)),
	)
	publishEvent(s.mq, s.log, SubjectItemAdded, id, added)

	return tx.Items, nil
}

// CaptureWeight reads a weight from a raw scale photo. ErrWeightNotDetected
// means the caller should fall back to manual entry.
func (s *Service) CaptureWeight(ctx context.Context, raw []byte) (domain.Reading, error) {
	reading, _, err := s.recognizer.Capture(ctx, raw)
	if err != nil {
		return domain.Reading{}, err
	}
	return reading, nil
}

func (s *Service) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	if tx == nil {
		return nil, domain.ErrTransactionNotFound
	}
	return tx, nil
}

// ListTransactionsByStore returns the store's transactions, newest first.
func (s *Service) ListTransactionsByStore(ctx context.Context, storeID string) ([]domain.Transaction, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return nil, &domain.ValidationError{Field: "store_id", Reason: "required"}
	}
	txs, err := s.repo.FindByStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
