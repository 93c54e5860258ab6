package workload

import (
	"bytes"
	"testing"
)

func TestNewCopiesPayloadAndMetadata(t *testing.T) {
	payload := []byte("original payload")
	md := map[string]string{"source": "test"}
	w := New(TypeTextAnalysis, ComplexityLow, PriorityNormal, payload, md)

	payload[0] = 'X'
	md["source"] = "mutated"

	if !bytes.Equal(w.Payload, []byte("original payload")) {
		t.Fatalf("payload mutated through caller slice: %q", w.Payload)
	}
	if w.Metadata["source"] != "test" {
		t.Fatalf("metadata mutated through caller map: %q", w.Metadata["source"])
	}
	if w.ID == "" {
		t.Fatalf("expected generated workload ID")
	}
}

func TestPortionFloorsPayloadLength(t *testing.T) {
	w := New(TypeDataAnalysis, ComplexityMedium, PriorityNormal, make([]byte, 101), nil)
	p := w.Portion(0.6)
	if len(p.Payload) != 60 {
		t.Fatalf("expected floor(0.6*101)=60 bytes, got %d", len(p.Payload))
	}
	if len(w.Payload) != 101 {
		t.Fatalf("portioning mutated the original workload")
	}
	if p.Type != w.Type || p.Complexity != w.Complexity || p.Priority != w.Priority {
		t.Fatalf("portion did not preserve type/complexity/priority")
	}
	if p.ID == w.ID {
		t.Fatalf("portion should carry a distinct ID")
	}
}

func TestPortionClampsRatio(t *testing.T) {
	w := New(TypeDataAnalysis, ComplexityLow, PriorityLow, make([]byte, 10), nil)
	if got := len(w.Portion(1.5).Payload); got != 10 {
		t.Fatalf("ratio above 1 should clamp to full payload, got %d", got)
	}
	if got := len(w.Portion(-0.5).Payload); got != 0 {
		t.Fatalf("negative ratio should clamp to empty payload, got %d", got)
	}
}

func TestPriorityRankTotalOrder(t *testing.T) {
	order := []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Fatalf("expected %s to rank above %s", order[i], order[i-1])
		}
	}
	if Priority("bogus").Rank() != PriorityNormal.Rank() {
		t.Fatalf("unknown priority should rank as normal")
	}
}

func TestUtilizationMergeTakesMaxPerDimension(t *testing.T) {
	a := Utilization{CPU: 80, GPU: 10, Memory: 50}
	b := Utilization{CPU: 20, GPU: 60, Neural: 30, Memory: 40}
	m := a.Merge(b)
	want := Utilization{CPU: 80, GPU: 60, Neural: 30, Memory: 50}
	if m != want {
		t.Fatalf("merge mismatch: got %+v want %+v", m, want)
	}
}
