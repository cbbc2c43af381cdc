package queue

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew_NoneDriver(t *testing.T) {
	for _, driver := range []string{"", "none"} {
		mq, err := New(Config{Driver: driver}, zap.NewNop())
		if err != nil {
			t.Fatalf("driver %q: %v", driver, err)
		}
		if _, ok := mq.(NoopQueue); !ok {
			t.Errorf("driver %q: expected NoopQueue, got %T", driver, mq)
		}
		if err := mq.Publish("transaction.created", []byte("{}")); err != nil {
			t.Errorf("noop publish failed: %v", err)
		}
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	if _, err := New(Config{Driver: "kafka"}, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
