package track

import (
	"testing"
)

var testLap = []uint8{33, 36, 18, 23, 40, 34, 17, 20}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		id   uint8
		want Type
	}{
		{33, Start},
		{34, Finish},
		{10, Intersection},
		{36, Straight},
		{51, Straight},
		{17, Curve},
		{27, Curve},
		{99, Unknown},
	}
	for _, tt := range tests {
		if got := TypeOf(tt.id); got != tt.want {
			t.Errorf("TypeOf(%d) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestPieceString(t *testing.T) {
	var nilPiece *Piece
	if got := nilPiece.String(); got != "<none>" {
		t.Errorf("nil piece String() = %q", got)
	}
	if got := NewUnmappedPiece(36).String(); got != "straight(36)" {
		t.Errorf("unmapped String() = %q", got)
	}
	p := &Piece{Index: 2, RoadPieceID: 18, Type: Curve}
	if got := p.String(); got != "#2 curve(18)" {
		t.Errorf("mapped String() = %q", got)
	}
}

func TestRecorder_RecordsOneLapFromStart(t *testing.T) {
	var r Recorder

	// pieces before the first start piece are ignored
	for _, id := range []uint8{40, 34, 17, 20} {
		if r.Observe(id) {
			t.Fatalf("Observe(%d) completed before start", id)
		}
	}
	if r.Recording() {
		t.Fatal("recording before start piece")
	}

	for i, id := range testLap {
		if r.Observe(id) {
			t.Fatalf("Observe(%d) at %d completed early", id, i)
		}
	}
	if !r.Recording() {
		t.Fatal("expected recording in progress")
	}
	if r.Map() != nil {
		t.Fatal("map available before lap completes")
	}

	if !r.Observe(33) {
		t.Fatal("returning to start did not complete the lap")
	}
	m := r.Map()
	if len(m) != len(testLap) {
		t.Fatalf("map length = %d, want %d", len(m), len(testLap))
	}
	for i, p := range m {
		if p.Index != i || p.RoadPieceID != testLap[i] || p.Type != TypeOf(testLap[i]) {
			t.Errorf("m[%d] = %+v", i, p)
		}
	}

	// completion is reported once
	if r.Observe(36) || r.Observe(33) {
		t.Error("Observe reported completion twice")
	}
}

func TestRecorder_RestartsAfterRunaway(t *testing.T) {
	var r Recorder
	r.Observe(33)
	for i := 0; i < MaxLapPieces+1; i++ {
		r.Observe(36)
	}
	if r.Recording() {
		t.Fatal("runaway recording was not abandoned")
	}
	r.Observe(33)
	r.Observe(40)
	if !r.Observe(33) {
		t.Fatal("recording did not restart")
	}
	if got := len(r.Map()); got != 2 {
		t.Errorf("map length = %d, want 2", got)
	}
}

func lapMap() []*Piece {
	var r Recorder
	for _, id := range testLap {
		r.Observe(id)
	}
	r.Observe(33)
	return r.Map()
}

func TestLocator_AdvanceFollowsMap(t *testing.T) {
	m := lapMap()
	l := NewLocator(m)
	if l.Current() != m[0] {
		t.Fatalf("initial piece = %v, want %v", l.Current(), m[0])
	}

	for lap := 0; lap < 2; lap++ {
		for i := 1; i <= len(m); i++ {
			want := m[i%len(m)]
			got, resynced := l.Advance(want.RoadPieceID)
			if got != want {
				t.Fatalf("lap %d step %d: got %v, want %v", lap, i, got, want)
			}
			if resynced {
				t.Fatalf("lap %d step %d: unexpected resync", lap, i)
			}
		}
	}
}

func TestLocator_ResyncsOnMissedTransition(t *testing.T) {
	m := lapMap()
	l := NewLocator(m)

	// skip m[1] and m[2]
	got, resynced := l.Advance(m[3].RoadPieceID)
	if got != m[3] || !resynced {
		t.Errorf("Advance = %v, %v; want %v, true", got, resynced, m[3])
	}

	got, _ = l.Advance(99)
	if got != nil {
		t.Errorf("unknown id located at %v", got)
	}
	if l.Current() != m[3] {
		t.Errorf("unknown id moved locator to %v", l.Current())
	}
}

func TestLocator_Empty(t *testing.T) {
	l := NewLocator(nil)
	if l.Current() != nil {
		t.Error("empty locator has a current piece")
	}
	if p, _ := l.Advance(33); p != nil {
		t.Error("empty locator advanced")
	}
}
