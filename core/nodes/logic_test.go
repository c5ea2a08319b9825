package nodes

import "testing"

func TestThresholdLogicBasic(t *testing.T) {
	g := NewGraph()
	id := g.NextID()
	l := NewThresholdLogic(id, 0.5)
	g.Add(l)

	if got := l.ProcessSample(0.2); got != 0.0 {
		t.Errorf("ProcessSample(0.2) = %v, want 0.0", got)
	}
	if got := l.ProcessSample(0.8); got != 1.0 {
		t.Errorf("ProcessSample(0.8) = %v, want 1.0", got)
	}
}

func TestHysteresisResistsOscillation(t *testing.T) {
	l := NewThresholdLogic(1, 0.5)
	l.SetHysteresis(0.3, 0.7)

	if got := l.ProcessSample(0.5); got != 0.0 {
		t.Errorf("mid-band before any rise should stay low, got %v", got)
	}
	if got := l.ProcessSample(0.8); got != 1.0 {
		t.Errorf("above high threshold should rise, got %v", got)
	}
	if got := l.ProcessSample(0.5); got != 1.0 {
		t.Errorf("mid-band after rising should hold high (hysteresis), got %v", got)
	}
	if got := l.ProcessSample(0.2); got != 0.0 {
		t.Errorf("below low threshold should fall, got %v", got)
	}
}

func TestEdgeDetection(t *testing.T) {
	l := NewThresholdLogic(1, 0.5)
	l.SetEdgeDetection(RisingEdge, 0.5)

	// In edge mode the node must output the one-sample edge pulse itself,
	// not the underlying threshold level: 0.4,0.6,0.7,0.4 -> 0,1,0,0.
	if got := l.ProcessSample(0.4); got != 0.0 {
		t.Errorf("ProcessSample(0.4) = %v, want 0.0", got)
	}
	if l.WasEdgeDetected() {
		t.Errorf("no rising edge expected on first low sample")
	}
	if got := l.ProcessSample(0.6); got != 1.0 {
		t.Errorf("ProcessSample(0.6) = %v, want 1.0 (rising edge pulse)", got)
	}
	if !l.WasEdgeDetected() {
		t.Errorf("rising edge expected on low-to-high transition")
	}
	if got := l.ProcessSample(0.7); got != 0.0 {
		t.Errorf("ProcessSample(0.7) = %v, want 0.0 (pulse, not sustained level)", got)
	}
	if l.WasEdgeDetected() {
		t.Errorf("no rising edge expected while staying high")
	}
	if got := l.ProcessSample(0.4); got != 0.0 {
		t.Errorf("ProcessSample(0.4) = %v, want 0.0", got)
	}
	if l.WasEdgeDetected() {
		t.Errorf("no rising edge expected on falling sample")
	}
}

func TestSequentialLogicMajorityVote(t *testing.T) {
	majority := func(history []bool) bool {
		trueCount := 0
		for _, v := range history {
			if v {
				trueCount++
			}
		}
		return trueCount*2 > len(history)
	}
	l := NewSequentialLogic(1, majority, 3)
	l.SetInitialConditions([]bool{true, true, false})

	if got := l.ProcessSample(0); got != 1.0 {
		t.Errorf("majority of [true,true,false] should be true, got %v", got)
	}
}

func TestMultiInputLogicAND(t *testing.T) {
	and := func(inputs []float64) bool {
		for _, v := range inputs {
			if v <= 0.5 {
				return false
			}
		}
		return true
	}
	l := NewMultiInputLogic(1, and, 2)
	if got := l.ProcessMultiInput([]float64{1.0, 1.0}); got != 1.0 {
		t.Errorf("AND of [1,1] should be true, got %v", got)
	}
	if got := l.ProcessMultiInput([]float64{1.0, 0.0}); got != 0.0 {
		t.Errorf("AND of [1,0] should be false, got %v", got)
	}
}

func TestCallbacksFireOnExpectedEvents(t *testing.T) {
	l := NewThresholdLogic(1, 0.5)
	var ticks, changes, trues int
	l.OnTick(func(float64) { ticks++ })
	l.OnChange(func(float64) { changes++ })
	l.OnChangeTo(func(float64) { trues++ }, true)

	l.ProcessSample(0.2) // false, no change from initial false.
	l.ProcessSample(0.8) // true, change + rising.
	l.ProcessSample(0.9) // true, no change.

	if ticks != 3 {
		t.Errorf("ticks = %d, want 3", ticks)
	}
	if changes != 1 {
		t.Errorf("changes = %d, want 1", changes)
	}
	if trues != 1 {
		t.Errorf("trues = %d, want 1", trues)
	}
}

func TestSaveRestoreStateRoundTrip(t *testing.T) {
	l := NewThresholdLogic(1, 0.5)
	l.SetEdgeDetection(RisingEdge, 0.5)
	l.ProcessSample(0.2)
	l.ProcessSample(0.8)

	snap := l.SaveState()

	other := NewThresholdLogic(2, 0.5)
	other.SetEdgeDetection(RisingEdge, 0.5)
	other.RestoreState(snap)

	if other.LastOutput() != l.LastOutput() {
		t.Errorf("restored LastOutput = %v, want %v", other.LastOutput(), l.LastOutput())
	}
	if other.WasEdgeDetected() != l.WasEdgeDetected() {
		t.Errorf("restored WasEdgeDetected mismatch")
	}
}

func TestGraphAtMostOnceProcessing(t *testing.T) {
	g := NewGraph()
	id := g.NextID()
	l := NewThresholdLogic(id, 0.5)
	g.Add(l)

	first, ok := g.Pull(id, 0.9)
	if !ok || first != 1.0 {
		t.Fatalf("first pull = %v, %v", first, ok)
	}
	second, ok := g.Pull(id, 0.1) // different input, but already processed this cycle.
	if !ok || second != 1.0 {
		t.Errorf("second pull within same cycle should return cached output, got %v", second)
	}

	g.ResetCycle()
	third, ok := g.Pull(id, 0.1)
	if !ok || third != 0.0 {
		t.Errorf("after ResetCycle, node should reprocess, got %v", third)
	}
}

func TestGraphGenerationInvalidatesStaleID(t *testing.T) {
	g := NewGraph()
	id := g.NextID()
	l := NewThresholdLogic(id, 0.5)
	g.Add(l)

	g.Remove(id)
	if _, ok := g.Get(id); ok {
		t.Errorf("disposed id should no longer resolve")
	}

	id2 := g.NextID()
	l2 := NewThresholdLogic(id2, 0.5)
	g.Add(l2)
	if id2.Index() == id.Index() && id2 == id {
		t.Errorf("reused index must bump generation so old id stays invalid")
	}
}

func TestModulatorGateFanIn(t *testing.T) {
	var gate ModulatorGate
	gate.SetExpected(3)
	if gate.Arrive() {
		t.Errorf("gate should not be satisfied after 1 of 3 arrivals")
	}
	if gate.Arrive() {
		t.Errorf("gate should not be satisfied after 2 of 3 arrivals")
	}
	if !gate.Arrive() {
		t.Errorf("gate should be satisfied after 3 of 3 arrivals")
	}
	gate.ResetCycle()
	if gate.Arrive() {
		t.Errorf("gate should require fresh arrivals after ResetCycle")
	}
}
