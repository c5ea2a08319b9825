// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package nodes

// LogicMode selects the computational model a Logic node evaluates under.
type LogicMode int

const (
	Direct     LogicMode = iota // stateless evaluation of the current input only.
	Sequential                  // state-based evaluation using a history of prior booleans.
	Temporal                    // time-dependent evaluation with timing constraints.
	MultiInput                  // parallel evaluation of several input signals at once.
)

// LogicOperator is one of the built-in boolean operations a Logic node can
// apply in Direct mode, or Custom to defer entirely to a user function.
type LogicOperator int

const (
	OpAND LogicOperator = iota
	OpOR
	OpXOR
	OpNOT
	OpNAND
	OpNOR
	OpIMPLIES
	OpTHRESHOLD
	OpHYSTERESIS
	OpEDGE
	OpCUSTOM
)

// EdgeType selects which transitions OpEDGE (or set_edge_detection) reacts to.
type EdgeType int

const (
	RisingEdge EdgeType = iota
	FallingEdge
	BothEdges
)

// EventType identifies the circumstance under which a registered callback
// fires.
type EventType int

const (
	EventTick       EventType = iota // every sample.
	EventChange                      // any state change.
	EventTrue                        // transition to true.
	EventFalse                       // transition to false.
	EventWhileTrue                   // every tick while true.
	EventWhileFalse                  // every tick while false.
	EventConditional                 // custom predicate.
)

// Callback receives the boolean output of a Logic node as a float (1.0/0.0),
// matching the node's own sample representation.
type Callback func(value float64)

// Condition is a custom predicate for EventConditional callbacks.
type Condition func(value float64) bool

type logicCallback struct {
	fn        Callback
	eventType EventType
	cond      Condition
}

// DirectFunc is a stateless per-sample boolean function.
type DirectFunc func(input float64) bool

// MultiInputFunc evaluates several simultaneous inputs to one boolean.
type MultiInputFunc func(inputs []float64) bool

// SequentialFunc evaluates a boolean history to the next boolean.
type SequentialFunc func(history []bool) bool

// TemporalFunc evaluates an input together with elapsed time.
type TemporalFunc func(input, timeSeconds float64) bool

// Logic is a digital signal node: it quantizes a continuous input into a
// binary (1.0/0.0) output using one of four computational models, with
// optional hysteresis, edge detection, and a callback system keyed by
// EventType.
type Logic struct {
	base

	mode     LogicMode
	operator LogicOperator

	directFn     DirectFunc
	multiFn      MultiInputFunc
	multiCount   int
	sequentialFn SequentialFunc
	temporalFn   TemporalFunc

	history     []bool
	historySize int

	threshold     float64
	lowThreshold  float64
	highThreshold float64
	useHysteresis bool
	lastBool      bool // hysteresis latch, held between samples.

	edgeType           EdgeType
	edgeDetected       bool
	edgeDetectionArmed bool
	prevResult         bool

	temporalTime float64

	inputBuffer []float64

	callbacks []logicCallback
}

// NewThresholdLogic creates a Logic node that quantizes input against a
// single threshold: output is 1.0 when input exceeds threshold.
func NewThresholdLogic(id NodeID, threshold float64) *Logic {
	l := &Logic{base: newBase(id), mode: Direct, operator: OpTHRESHOLD, threshold: threshold}
	l.directFn = l.defaultDirectFunc()
	return l
}

// NewOperatorLogic creates a Logic node configured with one of the
// built-in boolean operators.
func NewOperatorLogic(id NodeID, op LogicOperator, threshold float64) *Logic {
	l := &Logic{base: newBase(id), mode: Direct, operator: op, threshold: threshold}
	l.directFn = l.defaultDirectFunc()
	return l
}

// NewDirectLogic creates a Logic node driven entirely by a custom
// stateless function.
func NewDirectLogic(id NodeID, fn DirectFunc) *Logic {
	return &Logic{base: newBase(id), mode: Direct, operator: OpCUSTOM, directFn: fn, threshold: 0.5}
}

// NewMultiInputLogic creates a Logic node that evaluates inputCount
// simultaneous inputs via fn.
func NewMultiInputLogic(id NodeID, fn MultiInputFunc, inputCount int) *Logic {
	return &Logic{
		base: newBase(id), mode: MultiInput, operator: OpCUSTOM,
		multiFn: fn, multiCount: inputCount,
		inputBuffer: make([]float64, inputCount),
	}
}

// NewSequentialLogic creates a Logic node that evaluates a rolling history
// of booleans via fn.
func NewSequentialLogic(id NodeID, fn SequentialFunc, historySize int) *Logic {
	return &Logic{base: newBase(id), mode: Sequential, operator: OpCUSTOM, sequentialFn: fn, historySize: historySize}
}

// NewTemporalLogic creates a Logic node that evaluates input against
// elapsed time via fn.
func NewTemporalLogic(id NodeID, fn TemporalFunc) *Logic {
	return &Logic{base: newBase(id), mode: Temporal, operator: OpCUSTOM, temporalFn: fn}
}

func (l *Logic) defaultDirectFunc() DirectFunc {
	switch l.operator {
	case OpNOT:
		return func(in float64) bool { return in <= l.threshold }
	case OpHYSTERESIS:
		return l.hysteresisFunc()
	case OpEDGE:
		return func(in float64) bool { return in > l.threshold }
	default:
		return func(in float64) bool { return in > l.threshold }
	}
}

func (l *Logic) hysteresisFunc() DirectFunc {
	return func(in float64) bool {
		if l.hysteresisState() {
			if in < l.lowThreshold {
				l.setHysteresisState(false)
			}
		} else if in > l.highThreshold {
			l.setHysteresisState(true)
		}
		return l.hysteresisState()
	}
}

// hysteresisState/setHysteresisState are split out so defaultDirectFunc's
// closure can be built once and still observe later state changes.
func (l *Logic) hysteresisState() bool    { return l.useHysteresis && l.lastBool }
func (l *Logic) setHysteresisState(v bool) { l.lastBool = v }

// ProcessSample evaluates input through the configured logic function and
// produces a binary (1.0/0.0) output, updating history/edge/hysteresis
// state and firing any registered callbacks.
func (l *Logic) ProcessSample(input float64) float64 {
	var result bool
	switch l.mode {
	case MultiInput:
		result = l.processMultiSingle(input)
	case Sequential:
		result = l.processSequential(input)
	case Temporal:
		result = l.processTemporal(input)
	default:
		result = l.processDirect(input)
	}

	if l.edgeDetectionArmed {
		l.evaluateEdge(result)
		if l.operator == OpEDGE {
			result = l.edgeDetected
		}
	}

	output := 0.0
	if result {
		output = 1.0
	}
	prevOutput := l.LastOutput()
	l.setLastOutput(output)
	l.pushHistory(result)
	l.markProcessed()
	l.notifyCallbacks(output, prevOutput)
	return output
}

func (l *Logic) processDirect(input float64) bool {
	if l.directFn == nil {
		return input > l.threshold
	}
	return l.directFn(input)
}

// ProcessMultiInput evaluates a full set of simultaneous inputs at once,
// the batch entry point for MultiInput mode (distinct from feeding inputs
// one at a time via add_input/ProcessSample).
func (l *Logic) ProcessMultiInput(inputs []float64) float64 {
	result := false
	if l.multiFn != nil {
		result = l.multiFn(inputs)
	}
	output := 0.0
	if result {
		output = 1.0
	}
	prevOutput := l.LastOutput()
	l.setLastOutput(output)
	l.pushHistory(result)
	l.markProcessed()
	l.notifyCallbacks(output, prevOutput)
	return output
}

func (l *Logic) processMultiSingle(input float64) bool {
	l.addInput(input)
	if l.multiFn == nil {
		return false
	}
	return l.multiFn(l.inputBuffer)
}

func (l *Logic) addInput(input float64) {
	l.inputBuffer = append(l.inputBuffer[:0], l.inputBuffer[1:]...)
	l.inputBuffer = append(l.inputBuffer, input)
}

func (l *Logic) processSequential(input float64) bool {
	if l.sequentialFn == nil {
		return input > l.threshold
	}
	return l.sequentialFn(l.history)
}

func (l *Logic) processTemporal(input float64) bool {
	if l.temporalFn == nil {
		return input > l.threshold
	}
	return l.temporalFn(input, l.temporalTime)
}

// AdvanceTime moves a Temporal-mode node's internal clock forward; the
// caller (typically the scheduler's sample-accurate tick) owns the rate.
func (l *Logic) AdvanceTime(seconds float64) { l.temporalTime += seconds }

func (l *Logic) evaluateEdge(result bool) {
	prev := l.prevResult
	switch l.edgeType {
	case RisingEdge:
		l.edgeDetected = !prev && result
	case FallingEdge:
		l.edgeDetected = prev && !result
	case BothEdges:
		l.edgeDetected = prev != result
	}
	l.prevResult = result
}

func (l *Logic) pushHistory(v bool) {
	if l.historySize == 0 {
		return
	}
	l.history = append(l.history, v)
	if len(l.history) > l.historySize {
		l.history = l.history[len(l.history)-l.historySize:]
	}
}

func (l *Logic) notifyCallbacks(output, prevOutput float64) {
	changed := output != prevOutput
	for _, cb := range l.callbacks {
		switch cb.eventType {
		case EventTick:
			cb.fn(output)
		case EventChange:
			if changed {
				cb.fn(output)
			}
		case EventTrue:
			if changed && output == 1.0 {
				cb.fn(output)
			}
		case EventFalse:
			if changed && output == 0.0 {
				cb.fn(output)
			}
		case EventWhileTrue:
			if output == 1.0 {
				cb.fn(output)
			}
		case EventWhileFalse:
			if output == 0.0 {
				cb.fn(output)
			}
		case EventConditional:
			if cb.cond != nil && cb.cond(output) {
				cb.fn(output)
			}
		}
	}
}

// OnTick registers a callback invoked on every processed sample.
func (l *Logic) OnTick(cb Callback) { l.callbacks = append(l.callbacks, logicCallback{fn: cb, eventType: EventTick}) }

// OnChange registers a callback invoked whenever the output flips.
func (l *Logic) OnChange(cb Callback) {
	l.callbacks = append(l.callbacks, logicCallback{fn: cb, eventType: EventChange})
}

// OnChangeTo registers a callback invoked when the output transitions to
// targetState.
func (l *Logic) OnChangeTo(cb Callback, targetState bool) {
	evt := EventFalse
	if targetState {
		evt = EventTrue
	}
	l.callbacks = append(l.callbacks, logicCallback{fn: cb, eventType: evt})
}

// WhileTrue registers a callback invoked every tick the output is true.
func (l *Logic) WhileTrue(cb Callback) {
	l.callbacks = append(l.callbacks, logicCallback{fn: cb, eventType: EventWhileTrue})
}

// WhileFalse registers a callback invoked every tick the output is false.
func (l *Logic) WhileFalse(cb Callback) {
	l.callbacks = append(l.callbacks, logicCallback{fn: cb, eventType: EventWhileFalse})
}

// OnConditional registers a callback invoked whenever cond(output) is true.
func (l *Logic) OnConditional(cb Callback, cond Condition) {
	l.callbacks = append(l.callbacks, logicCallback{fn: cb, eventType: EventConditional, cond: cond})
}

// RemoveHooksOfType drops every callback registered under eventType.
func (l *Logic) RemoveHooksOfType(eventType EventType) {
	kept := l.callbacks[:0]
	for _, cb := range l.callbacks {
		if cb.eventType != eventType {
			kept = append(kept, cb)
		}
	}
	l.callbacks = kept
}

// RemoveAllHooks drops every registered callback.
func (l *Logic) RemoveAllHooks() { l.callbacks = nil }

// SetThreshold sets the decision boundary used by the default direct
// function and by THRESHOLD/EDGE evaluation.
func (l *Logic) SetThreshold(threshold float64) {
	l.threshold = threshold
	l.useHysteresis = false
}

// SetHysteresis configures a Schmitt-trigger style threshold pair: output
// falls to false only below low, and rises to true only above high,
// holding state in between to resist oscillation near a single threshold.
func (l *Logic) SetHysteresis(low, high float64) {
	l.lowThreshold = low
	l.highThreshold = high
	l.useHysteresis = true
	l.operator = OpHYSTERESIS
	l.directFn = l.hysteresisFunc()
}

// SetEdgeDetection configures which transitions WasEdgeDetected reports.
func (l *Logic) SetEdgeDetection(edgeType EdgeType, threshold float64) {
	l.edgeType = edgeType
	l.threshold = threshold
	l.edgeDetectionArmed = true
	l.operator = OpEDGE
	l.directFn = l.defaultDirectFunc()
}

// SetOperator switches the built-in boolean operator used in Direct mode.
func (l *Logic) SetOperator(op LogicOperator) {
	l.operator = op
	l.directFn = l.defaultDirectFunc()
}

// SetDirectFunction installs a custom stateless boolean function.
func (l *Logic) SetDirectFunction(fn DirectFunc) {
	l.mode = Direct
	l.operator = OpCUSTOM
	l.directFn = fn
}

// SetMultiInputFunction installs a custom multi-input boolean function.
func (l *Logic) SetMultiInputFunction(fn MultiInputFunc, inputCount int) {
	l.mode = MultiInput
	l.operator = OpCUSTOM
	l.multiFn = fn
	l.multiCount = inputCount
	l.inputBuffer = make([]float64, inputCount)
}

// SetSequentialFunction installs a custom history-based boolean function.
func (l *Logic) SetSequentialFunction(fn SequentialFunc, historySize int) {
	l.mode = Sequential
	l.operator = OpCUSTOM
	l.sequentialFn = fn
	l.historySize = historySize
}

// SetTemporalFunction installs a custom time-aware boolean function.
func (l *Logic) SetTemporalFunction(fn TemporalFunc) {
	l.mode = Temporal
	l.operator = OpCUSTOM
	l.temporalFn = fn
}

// SetInitialConditions preloads the history buffer, letting sequential
// logic begin from a known state sequence rather than an empty history.
func (l *Logic) SetInitialConditions(initial []bool) {
	l.history = append([]bool(nil), initial...)
}

// Mode, Operator, Threshold, HistorySize, History, InputCount,
// WasEdgeDetected, and EdgeKind are read-only accessors mirroring the
// node's configuration and last-evaluation state.
func (l *Logic) Mode() LogicMode          { return l.mode }
func (l *Logic) Operator() LogicOperator  { return l.operator }
func (l *Logic) Threshold() float64       { return l.threshold }
func (l *Logic) HistorySize() int         { return l.historySize }
func (l *Logic) History() []bool          { return l.history }
func (l *Logic) InputCount() int          { return l.multiCount }
func (l *Logic) WasEdgeDetected() bool    { return l.edgeDetected }
func (l *Logic) EdgeKind() EdgeType       { return l.edgeType }

// Reset clears history, edge, and hysteresis state back to initial
// conditions, without discarding the configured function/operator.
func (l *Logic) Reset() {
	l.history = l.history[:0]
	l.edgeDetected = false
	l.lastBool = false
	l.prevResult = false
	l.temporalTime = 0
	for i := range l.inputBuffer {
		l.inputBuffer[i] = 0
	}
	l.setLastOutput(0)
}

// LogicSnapshot is the externally visible state needed to resume a Logic
// node elsewhere: history, edge/hysteresis flags, and the last output.
type LogicSnapshot struct {
	History      []bool
	LastOutput   float64
	EdgeDetected bool
	Hysteresis   bool
	TemporalTime float64
}

// SaveState captures a snapshot suitable for RestoreState, e.g. when
// migrating a node graph across a staging boundary.
func (l *Logic) SaveState() LogicSnapshot {
	return LogicSnapshot{
		History:      append([]bool(nil), l.history...),
		LastOutput:   l.LastOutput(),
		EdgeDetected: l.edgeDetected,
		Hysteresis:   l.lastBool,
		TemporalTime: l.temporalTime,
	}
}

// RestoreState reinstates a previously captured snapshot.
func (l *Logic) RestoreState(snap LogicSnapshot) {
	l.history = append([]bool(nil), snap.History...)
	l.setLastOutput(snap.LastOutput)
	l.edgeDetected = snap.EdgeDetected
	l.lastBool = snap.Hysteresis
	l.temporalTime = snap.TemporalTime
}
