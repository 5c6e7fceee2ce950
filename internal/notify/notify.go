// Package notify defines the Notifier collaborator spec §7 calls out for
// ConfigParseError and ActionExecutionError: user-visible notification
// display is an explicit Non-goal, so this repository satisfies the
// interface point with a logging default rather than a native notification
// center binding.
package notify

import (
	"go.uber.org/zap"

	"github.com/ognistik/macrowhisper-go/internal/logging"
)

// Notifier surfaces a one-line message to the user.
type Notifier interface {
	Notify(title, message string)
}

// LogNotifier logs the notification at warn level instead of displaying it.
type LogNotifier struct {
	log *logging.Logger
}

// New builds a LogNotifier writing through log.
func New(log *logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(title, message string) {
	n.log.Warn(title, zap.String("message", message))
}
