package entropy

import "testing"

func TestSourceDeterminism(t *testing.T) {
	a := NewSource(1234)
	b := NewSource(1234)
	for i := 0; i < 100; i++ {
		av, bv := a.Float(), b.Float()
		if av != bv {
			t.Fatalf("draw %d diverged: %v vs %v", i, av, bv)
		}
		if av < 0 || av >= 1 {
			t.Fatalf("draw %d out of range: %v", i, av)
		}
	}
}

func TestSourceSeedsDiffer(t *testing.T) {
	a := NewSource(1)
	b := NewSource(2)
	same := 0
	for i := 0; i < 20; i++ {
		if a.Float() == b.Float() {
			same++
		}
	}
	if same == 20 {
		t.Fatal("different seeds produced identical streams")
	}
}

func TestWeightedPickEmpty(t *testing.T) {
	src := NewSource(7)
	if _, err := WeightedPick(src, nil, nil, 0); err != ErrNoOptions {
		t.Fatalf("expected ErrNoOptions, got %v", err)
	}
}

func TestWeightedPickDeterminism(t *testing.T) {
	opts := []Option{{ID: "a", Weight: 1}, {ID: "b", Weight: 2}, {ID: "c", Weight: 3}}
	a := NewSource(99)
	b := NewSource(99)
	for i := 0; i < 50; i++ {
		pa, _ := WeightedPick(a, opts, nil, 0)
		pb, _ := WeightedPick(b, opts, nil, 0)
		if pa != pb {
			t.Fatalf("pick %d diverged: %s vs %s", i, pa, pb)
		}
	}
}

func TestWeightedPickBiasShiftsFrequency(t *testing.T) {
	opts := []Option{{ID: "a", Weight: 1}, {ID: "b", Weight: 1}}
	src := NewSource(5)
	counts := map[string]int{}
	for i := 0; i < 2000; i++ {
		id, err := WeightedPick(src, opts, map[string]float64{"a": 3.0}, 0)
		if err != nil {
			t.Fatal(err)
		}
		counts[id]++
	}
	if counts["a"] <= counts["b"] {
		t.Fatalf("positive bias did not raise frequency: %v", counts)
	}
}

func TestWeightedPickFloorKeepsOptionAlive(t *testing.T) {
	opts := []Option{{ID: "a", Weight: 1}, {ID: "b", Weight: 1}}
	src := NewSource(11)
	counts := map[string]int{}
	// Bias far below -1 would zero the weight without the floor.
	for i := 0; i < 5000; i++ {
		id, err := WeightedPick(src, opts, map[string]float64{"a": -5.0}, 0.01)
		if err != nil {
			t.Fatal(err)
		}
		counts[id]++
	}
	if counts["a"] == 0 {
		t.Fatal("floored option was never selected")
	}
	if counts["a"] >= counts["b"] {
		t.Fatalf("negative bias did not lower frequency: %v", counts)
	}
}
