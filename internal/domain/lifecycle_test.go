package domain

import (
	"errors"
	"testing"
)

func TestStateApply(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		event   Event
		want    State
		wantErr bool
	}{
		{"calibrate new", StateCreated, EventCalibrate, StateCalibrated, false},
		{"recalibrate", StateCalibrated, EventCalibrate, StateCalibrated, false},
		{"recalibrate with items", StateItemsOpen, EventCalibrate, StateItemsOpen, false},
		{"verify after calibration", StateCalibrated, EventVerifyCredential, StateCredentialVerified, false},
		{"verify before calibration", StateCreated, EventVerifyCredential, StateCreated, true},
		{"first item", StateCredentialVerified, EventAddItem, StateItemsOpen, false},
		{"next item", StateItemsOpen, EventAddItem, StateItemsOpen, false},
		{"item before credential", StateCalibrated, EventAddItem, StateCalibrated, true},
		{"finalize", StateItemsOpen, EventFinalize, StateFinalized, false},
		{"finalize without items", StateCredentialVerified, EventFinalize, StateCredentialVerified, true},
		{"calibrate finalized", StateFinalized, EventCalibrate, StateFinalized, true},
		{"add to finalized", StateFinalized, EventAddItem, StateFinalized, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.from.Apply(tt.event)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				var te *TransitionError
				if !errors.As(err, &te) || te.From != tt.from || te.Event != tt.event {
					t.Errorf("unexpected transition error %+v", te)
				}
			} else if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("expected state %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDisplayItems_KeepsNumbers(t *testing.T) {
	tx := &Transaction{}
	for _, m := range []string{MaterialGlass, MaterialCardboard, MaterialEWaste} {
		tx.Items = append(tx.Items, Item{ItemNo: tx.NextItemNo(), MaterialType: m, Weight: 1})
	}

	display := tx.DisplayItems()
	wantNos := []int{3, 2, 1}
	for i, item := range display {
		if item.ItemNo != wantNos[i] {
			t.Errorf("display[%d]: expected item_no %d, got %d", i, wantNos[i], item.ItemNo)
		}
	}
	for i, item := range tx.Items {
		if item.ItemNo != i+1 {
			t.Errorf("stored item %d renumbered to %d", i+1, item.ItemNo)
		}
	}
}

func TestSummaryDisplay_RoundsOnlyCopy(t *testing.T) {
	s := Summary{
		PerMaterial:      []MaterialSummary{{MaterialType: MaterialGlass, TotalWeight: 1.005, TotalAmount: 10.0449}},
		GrandTotalWeight: 1.005,
		GrandTotalAmount: 10.0449,
	}
	d := s.Display()
	if d.PerMaterial[0].TotalAmount != 10.04 {
		t.Errorf("expected 10.04, got %v", d.PerMaterial[0].TotalAmount)
	}
	if s.PerMaterial[0].TotalAmount != 10.0449 {
		t.Errorf("original summary was modified: %v", s.PerMaterial[0].TotalAmount)
	}
}

func TestErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{&ProviderError{Provider: "vision", Kind: FailureTimeout}, ErrProviderFailure},
		{&CalibrationMismatchError{Fetched: 10, Entered: 10.2, Tolerance: 0.1}, ErrCalibrationMismatch},
		{&ValidationError{Field: "weight", Reason: "must be positive"}, ErrValidation},
		{&TransitionError{From: StateCreated, Event: EventAddItem}, ErrInvalidTransition},
	}
	for _, c := range cases {
		if !errors.Is(c.err, c.want) {
			t.Errorf("%T does not match %v", c.err, c.want)
		}
	}
}
