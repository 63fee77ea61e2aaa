package event

// Channels published by the built-in systems.
const (
	ChannelSession   = "session"
	ChannelCollision = "collision"
	ChannelScript    = "script"
)
