package interview

import (
	"context"
	"log/slog"
)

// Dispatcher routes an inbound chat message: a start command opens an
// interview, a sender with an interview in progress continues it, a
// borrower with a pending draft answers it, and the remaining text is
// offered to the owner keywords.
type Dispatcher struct {
	machine   *Machine
	responder *BorrowerResponder
	commands  *OwnerCommands
	logger    *slog.Logger
}

func NewDispatcher(machine *Machine, responder *BorrowerResponder, commands *OwnerCommands, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		machine:   machine,
		responder: responder,
		commands:  commands,
		logger:    logger.With(slog.String("component", "chatDispatcher")),
	}
}

func (d *Dispatcher) Handle(ctx context.Context, from, text string) (bool, error) {
	cmd := ParseCommand(text)
	if cmd.Type == CommandStartAgreement {
		return true, d.machine.Start(ctx, from, cmd.BorrowerName, cmd.Amount)
	}

	handled, err := d.machine.OnReply(ctx, from, text)
	if handled || err != nil {
		return handled, err
	}

	handled, err = d.responder.Handle(ctx, from, text)
	if handled || err != nil {
		return handled, err
	}

	handled, err = d.commands.Handle(ctx, from, cmd)
	if !handled && err == nil {
		d.logger.DebugContext(ctx, "Chat message not handled", "from", from)
	}
	return handled, err
}
