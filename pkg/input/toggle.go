package input

// Toggle flips a persistent boolean on each new button press.
// Holding the button across many ticks flips it once; it has to be released
// and pressed again to flip back.
type Toggle struct {
	edge  EdgeDetector
	value bool
}

// NewToggle creates a toggle starting at initial with the button released.
func NewToggle(initial bool) Toggle {
	return Toggle{value: initial}
}

// Update feeds one button sample and reports whether the value changed.
func (t *Toggle) Update(pressed bool) bool {
	if !t.edge.Detect(pressed) {
		return false
	}
	t.value = !t.value
	return true
}

// Get returns the current value.
func (t *Toggle) Get() bool {
	return t.value
}

// Set forces the value. Edge memory is left alone, so a button that is
// currently held will not flip the value again.
func (t *Toggle) Set(value bool) {
	t.value = value
}

// Reset clears edge memory and sets the value to false.
func (t *Toggle) Reset() {
	t.ResetTo(false)
}

// ResetTo clears edge memory and sets the value.
func (t *Toggle) ResetTo(value bool) {
	t.edge.Clear()
	t.value = value
}
