package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// GPIODriver is the control-line side of the platform HAL.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output
	ConfigureOutput(pin GPIOPin) error

	// SetPin drives the pin high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error
}

// ChipSelect is the control line that frames a bus transaction.
// The zero polarity is active low, which is what nearly every SPI part uses.
type ChipSelect struct {
	Driver     GPIODriver
	Pin        GPIOPin
	ActiveHigh bool
}

// NewChipSelect binds pin on driver as an active-low chip select.
func NewChipSelect(driver GPIODriver, pin GPIOPin) *ChipSelect {
	return &ChipSelect{Driver: driver, Pin: pin}
}

// Assert drives the line to its active level.
func (cs *ChipSelect) Assert() error {
	return cs.Driver.SetPin(cs.Pin, cs.ActiveHigh)
}

// Deassert drives the line to its inactive level.
func (cs *ChipSelect) Deassert() error {
	return cs.Driver.SetPin(cs.Pin, !cs.ActiveHigh)
}

func (cs *ChipSelect) usable() bool {
	return cs != nil && cs.Driver != nil
}
