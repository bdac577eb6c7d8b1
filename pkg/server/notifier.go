package server

import "log/slog"

// Notifier receives session lifecycle notifications. Implementations are
// invoked from the worker pool and must not block for long.
type Notifier interface {
	// Identified is called when a session completes identification.
	Identified(remoteAddress string)

	// AuthenticationFailed is called when a session presents an invalid
	// authentication proof.
	AuthenticationFailed(remoteAddress string)
}

// LogNotifier logs lifecycle notifications through slog.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Identified(remoteAddress string) {
	n.Logger.Info("session identified", "remote_address", remoteAddress)
}

func (n *LogNotifier) AuthenticationFailed(remoteAddress string) {
	n.Logger.Warn("session authentication failed", "remote_address", remoteAddress)
}
