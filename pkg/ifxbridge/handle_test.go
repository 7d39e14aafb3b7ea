package ifxbridge

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestHandle_Accessors(t *testing.T) {
	d := &fakeDriver{}
	h := newFakeHandle(t, d)

	if h.ID() == uuid.Nil {
		t.Error("expected a non-zero handle ID")
	}
	if h.Conn() == nil || h.DB() == nil {
		t.Fatal("expected live connection resources")
	}

	created := h.CreatedAt()
	if got := h.Age(created.Add(5 * time.Second)); got != 5*time.Second {
		t.Errorf("Age = %v, want 5s", got)
	}
	if !h.LastValidated().Equal(created) {
		t.Errorf("LastValidated = %v, want the creation time %v", h.LastValidated(), created)
	}
}

func TestHandle_CloseIdempotent(t *testing.T) {
	d := &fakeDriver{}
	h := newFakeHandle(t, d)

	if err := h.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if d.OpenConns() != 0 {
		t.Errorf("%d connections still open after Close", d.OpenConns())
	}
}

func TestNewHandle_NilArguments(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected NewHandle to panic on nil resources")
		}
	}()
	NewHandle(nil, nil, time.Now())
}
