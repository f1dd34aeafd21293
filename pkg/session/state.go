package session

import "strconv"

// State is the connection state of a session.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateLoggingIn
	StateLoggedIn
	StatePinPending
	StateReconnectScheduled
	StateDisposed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateHandshaking:
		return "HANDSHAKING"
	case StateLoggingIn:
		return "LOGGING_IN"
	case StateLoggedIn:
		return "LOGGED_IN"
	case StatePinPending:
		return "PIN_PENDING"
	case StateReconnectScheduled:
		return "RECONNECT_SCHEDULED"
	case StateDisposed:
		return "DISPOSED"
	default:
		return "UNKNOWN"
	}
}

// DeviceState mirrors what the device last reported.
type DeviceState struct {
	Manufacturer        string
	Model               string
	AndroidVersion      string
	RemoteServer        string
	RemoteServerVersion string

	// PlayerModel is the audio output reported with volume pushes.
	PlayerModel string

	PowerKnown bool
	Power      bool

	VolumeMax   int
	VolumeLevel int
	Muted       bool

	App string
}

// VolumePercent returns the volume as 0-100, or -1 before the device
// reported its range.
func (d DeviceState) VolumePercent() int {
	if d.VolumeMax <= 0 {
		return -1
	}
	pct := d.VolumeLevel * 100 / d.VolumeMax
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func (d *DeviceState) setProperty(name, value string) {
	switch name {
	case PropertyManufacturer:
		d.Manufacturer = value
	case PropertyModel:
		d.Model = value
	case PropertyAndroidVersion:
		d.AndroidVersion = value
	case PropertyRemoteServer:
		d.RemoteServer = value
	case PropertyRemoteServerVersion:
		d.RemoteServerVersion = value
	}
}

func onOff(b bool) string {
	if b {
		return ValueOn
	}
	return ValueOff
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
