package session

import (
	"github.com/gtv-remote/gtv-go/pkg/connection"
)

// Channels reported through UpdateChannel and accepted by HandleCommand.
const (
	ChannelPower    = "power"
	ChannelVolume   = "volume"
	ChannelMute     = "mute"
	ChannelApp      = "app"
	ChannelKeypress = "keypress"
	ChannelPinCode  = "pincode"
	ChannelKeyboard = "keyboard"
	ChannelDebug    = "debug"
)

// Properties reported through UpdateProperty.
const (
	PropertyManufacturer        = "manufacturer"
	PropertyModel               = "model"
	PropertyAndroidVersion      = "androidVersion"
	PropertyRemoteServer        = "remoteServer"
	PropertyRemoteServerVersion = "remoteServerVersion"
)

// Channel values for on/off channels.
const (
	ValueOn  = "ON"
	ValueOff = "OFF"
)

// Status is the reachability of the device as seen by the host.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusOnline
	StatusOffline
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "ONLINE"
	case StatusOffline:
		return "OFFLINE"
	default:
		return "UNKNOWN"
	}
}

// StatusDetail qualifies a Status.
type StatusDetail uint8

const (
	DetailNone StatusDetail = iota
	DetailConfigurationError
	DetailCommunicationError
	DetailPairingRequired
	DetailConfigurationPending
)

// String returns the detail name.
func (d StatusDetail) String() string {
	switch d {
	case DetailNone:
		return "NONE"
	case DetailConfigurationError:
		return "CONFIGURATION_ERROR"
	case DetailCommunicationError:
		return "COMMUNICATION_ERROR"
	case DetailPairingRequired:
		return "PAIRING_REQUIRED"
	case DetailConfigurationPending:
		return "CONFIGURATION_PENDING"
	default:
		return "UNKNOWN"
	}
}

// Callback is the host surface a session reports to. Methods may be
// called from any session goroutine and must not block for long.
type Callback interface {
	// UpdateProperty reports a device property (see Property constants).
	UpdateProperty(name, value string)

	// UpdateChannel reports a channel state (see Channel constants).
	UpdateChannel(channel, value string)

	// UpdateStatus reports reachability.
	UpdateStatus(status Status, detail StatusDetail, description string)

	// Scheduler returns the scheduler for session timers. A nil
	// scheduler selects the runtime timers.
	Scheduler() connection.Scheduler

	// ThingID identifies the device. It names the keystore file.
	ThingID() string
}
