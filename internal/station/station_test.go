package station

import (
	"testing"

	"github.com/maemo32/tomasim/internal/tagid"
)

func TestOperandReadyWithoutTag(t *testing.T) {
	op := Operand{Value: 7}
	if !op.Ready() {
		t.Fatal("an operand with no pending tag must be ready")
	}
}

func TestOperandPendingUntilWoken(t *testing.T) {
	producer := tagid.New(tagid.FPAdd, 0)
	op := Operand{Tag: producer}
	if op.Ready() {
		t.Fatal("an operand with a pending tag must not be ready")
	}
	if woken := op.WakeIfMatches(tagid.New(tagid.FPAdd, 1), 99); woken {
		t.Fatal("WakeIfMatches must not fire for a non-matching producer")
	}
	if op.Ready() {
		t.Fatal("operand should still be pending after a non-matching wake")
	}
	if woken := op.WakeIfMatches(producer, 99); !woken {
		t.Fatal("WakeIfMatches must fire for the matching producer")
	}
	if !op.Ready() || op.Value != 99 {
		t.Fatalf("operand after wake = %+v, want Ready with Value=99", op)
	}
}

func TestStationResetKeepsID(t *testing.T) {
	id := tagid.New(tagid.IntALU, 2)
	st := Station{ID: id, State: Finished, Vj: Operand{Value: 5}}
	st.Reset()
	if st.ID != id {
		t.Errorf("Reset must preserve the slot's ID: got %v, want %v", st.ID, id)
	}
	if st.Busy() {
		t.Error("Reset must return the slot to Free")
	}
}

func TestLoadBufferAddressComputation(t *testing.T) {
	l := LoadBuffer{Base: Operand{Value: 100}, Offset: 24}
	if !l.AddressReady() {
		t.Fatal("a resolved base register must be address-ready")
	}
	if got := l.Address(); got != 124 {
		t.Errorf("Address() = %d, want 124", got)
	}
}

func TestStoreBufferReadyRequiresBothOperands(t *testing.T) {
	producer := tagid.New(tagid.IntALU, 0)
	s := StoreBuffer{Base: Operand{Value: 0}, Value: Operand{Tag: producer}}
	if s.Ready() {
		t.Fatal("a store with a pending value operand must not be ready")
	}
	s.Value.Resolve(5)
	if !s.Ready() {
		t.Fatal("a store with both operands resolved must be ready")
	}
}
