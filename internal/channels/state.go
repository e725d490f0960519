package channels

// ConnectionState describes a user's connection to a channel's external
// service.
type ConnectionState int

const (
	// ConnectionUnnecessary means the channel works without credentials.
	ConnectionUnnecessary ConnectionState = iota
	// ConnectionInitial means the user never connected the channel.
	ConnectionInitial
	// ConnectionConnected means the stored credentials are usable.
	ConnectionConnected
	// ConnectionExpired means stored credentials exist but no longer work.
	ConnectionExpired
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionUnnecessary:
		return "unnecessary"
	case ConnectionInitial:
		return "initial"
	case ConnectionConnected:
		return "connected"
	case ConnectionExpired:
		return "expired"
	default:
		return "unknown"
	}
}
