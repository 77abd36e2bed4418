package service

// Broadcaster pushes messages to WebSocket subscribers of a session (avoids import cycle)
type Broadcaster interface {
	BroadcastToSession(sessionID string, msgType string, payload interface{})
	DisconnectSession(sessionID string)
}

// Message types pushed to session subscribers
const (
	MsgProgress     = "progress"
	MsgStateChanged = "state_changed"
	MsgError        = "error"
)

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToSession(string, string, interface{}) {}
func (noopBroadcaster) DisconnectSession(string)                      {}
