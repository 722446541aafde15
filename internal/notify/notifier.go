package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/flowboard/internal/engine"
)

// Messenger posts a text message to a channel on some platform.
type Messenger interface {
	SendMessage(ctx context.Context, channelID, text string) error
	Platform() string
}

// Notifier formats assignment events and delivers them to a configured
// channel. Satisfies engine.Notifier. Delivery failures are reported to the
// caller, which logs and swallows them — the primary mutation never
// depends on notification success.
type Notifier struct {
	messenger Messenger
	channel   string
}

var _ engine.Notifier = (*Notifier)(nil)

// New creates a Notifier. messenger may be nil, in which case
// notifications fall back to the log.
func New(messenger Messenger, channel string) *Notifier {
	return &Notifier{messenger: messenger, channel: channel}
}

// NotifyAssignment delivers one message covering all newly assigned users.
func (n *Notifier) NotifyAssignment(ctx context.Context, a engine.TaskAssignment) error {
	text := formatAssignment(a)

	if n.messenger == nil {
		log.Info().Str("text", text).Msg("notify: no messenger configured")
		return nil
	}

	if err := n.messenger.SendMessage(ctx, n.channel, text); err != nil {
		return fmt.Errorf("notify.Notifier.NotifyAssignment: %w", err)
	}

	return nil
}

func formatAssignment(a engine.TaskAssignment) string {
	var b strings.Builder

	users := make([]string, 0, len(a.AssignedTo))
	for _, u := range a.AssignedTo {
		users = append(users, "<@"+u.String()+">")
	}

	fmt.Fprintf(&b, "%s assigned to %q on card %q (board %q)",
		strings.Join(users, ", "), a.TaskTitle, a.CardName, a.BoardName)
	if a.DueDate != nil {
		fmt.Fprintf(&b, ", due %s", a.DueDate.Format("2006-01-02"))
	}

	return b.String()
}
