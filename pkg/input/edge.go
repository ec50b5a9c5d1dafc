// Package input turns raw gamepad samples into control values.
//
// Everything here is polled once per control tick: edge detectors and toggles
// keep one bit of memory between calls, conditioners are pure functions.
package input

// EdgeDetector reports rising edges of a momentary button.
// The zero value is ready to use and treats the button as released.
type EdgeDetector struct {
	prev bool
}

// Detect returns true only when sample is pressed and the previous sample was not.
// The sample is always remembered, including releases.
func (e *EdgeDetector) Detect(sample bool) bool {
	rising := sample && !e.prev
	e.prev = sample
	return rising
}

// Previous returns the sample seen by the last Detect call.
func (e *EdgeDetector) Previous() bool {
	return e.prev
}

// Clear forgets the previous sample so the next press is reported as an edge.
func (e *EdgeDetector) Clear() {
	e.prev = false
}
