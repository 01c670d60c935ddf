package pn53x

import "testing"

func TestCorrectTimerCyclesPN531Lag(t *testing.T) {
	got := correctTimerCycles(1000, 1, TimingPN531, false)
	want := 1000 - 2*128 - TimingPN531.correction()
	if got != want {
		t.Fatalf("correctTimerCycles = %d, want %d", got, want)
	}
}

func TestCorrectTimerCyclesOtherChipsLag(t *testing.T) {
	got := correctTimerCycles(1000, 1, TimingPN532, false)
	want := 1000 - 5*128 - TimingPN532.correction()
	if got != want {
		t.Fatalf("correctTimerCycles = %d, want %d", got, want)
	}
}

func TestCorrectTimerCyclesParityAdjustment(t *testing.T) {
	base := correctTimerCycles(1000, 1, TimingACR122, false)
	withParity := correctTimerCycles(1000, 1, TimingACR122, true)
	if base-withParity != 64 {
		t.Fatalf("parity adjustment = %d, want 64", base-withParity)
	}
}

func TestCorrectTimerCyclesPrescalerMultiplies(t *testing.T) {
	got := correctTimerCycles(10, 4, TimingSony, false)
	want := 10*4 - 5*128 - TimingSony.correction()
	if got != want {
		t.Fatalf("correctTimerCycles = %d, want %d", got, want)
	}
}
