package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// LogNotifier writes notifications to the process log.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Show(_ context.Context, title, body string) error {
	n.log.Info("notification", zap.String("title", title), zap.String("body", body))
	return nil
}

// CommandNotifier runs a desktop command such as "notify-send -a comprafacil"
// with the title and body appended as the last two arguments.
type CommandNotifier struct {
	name string
	args []string
}

func NewCommandNotifier(command string) (*CommandNotifier, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, ErrEmptyCommand
	}
	return &CommandNotifier{name: fields[0], args: fields[1:]}, nil
}

func (n *CommandNotifier) Name() string { return "command" }

func (n *CommandNotifier) Show(ctx context.Context, title, body string) error {
	args := append(append([]string{}, n.args...), title, body)
	out, err := exec.CommandContext(ctx, n.name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", n.name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
