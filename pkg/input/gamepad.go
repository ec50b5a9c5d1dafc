package input

// Button names a momentary gamepad button.
// Names follow the W3C standard gamepad layout so browser clients can send them as-is.
type Button string

const (
	ButtonA           Button = "a"
	ButtonB           Button = "b"
	ButtonX           Button = "x"
	ButtonY           Button = "y"
	ButtonLeftBumper  Button = "left_bumper"
	ButtonRightBumper Button = "right_bumper"
	ButtonBack        Button = "back"
	ButtonStart       Button = "start"
	ButtonDpadUp      Button = "dpad_up"
	ButtonDpadDown    Button = "dpad_down"
	ButtonDpadLeft    Button = "dpad_left"
	ButtonDpadRight   Button = "dpad_right"
)

// Gamepad is one sample of the driver's controller.
// Stick axes follow the browser convention: right and down are positive.
type Gamepad struct {
	LeftX   float64         `json:"left_x"`
	LeftY   float64         `json:"left_y"`
	RightX  float64         `json:"right_x"`
	RightY  float64         `json:"right_y"`
	Buttons map[Button]bool `json:"buttons,omitempty"`
}

// Pressed reports whether b is held in this sample.
func (g Gamepad) Pressed(b Button) bool {
	return g.Buttons[b]
}

// Neutral returns a copy with every axis centred and the same buttons held.
// Used when a read fails: motion stops but edge memory is not disturbed.
func (g Gamepad) Neutral() Gamepad {
	return Gamepad{Buttons: g.Buttons}
}
