package commands

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/aeolun/loungechat/pkg/protocol"
)

// ErrNoActiveChannel is returned when text cannot be sent because the
// target channel is not in the model
var ErrNoActiveChannel = errors.New("no active channel")

// Navigator is the selection surface the interceptor drives
type Navigator interface {
	Channel(id int64) (*protocol.Network, *protocol.Channel, bool)
	ActivateID(id int64) bool
	NextChannel() bool
	PrevChannel() bool
}

// Sender forwards text to the server
type Sender interface {
	SendInput(target int64, text string) error
}

// Result describes what happened to one line of input
type Result struct {
	// Forwarded is true when the text was handed to the server
	Forwarded bool

	// Err is set when a local command failed or forwarding was impossible
	Err error

	// Notice is local output to show the user (e.g. help)
	Notice string
}

// Interceptor decides whether typed input is a client command or goes to the server
type Interceptor struct {
	nav    Navigator
	out    Sender
	logger *log.Logger
}

// NewInterceptor creates an interceptor
func NewInterceptor(nav Navigator, out Sender) *Interceptor {
	return &Interceptor{nav: nav, out: out}
}

// SetLogger sets the logger
func (i *Interceptor) SetLogger(logger *log.Logger) {
	i.logger = logger
}

// logf logs a message if a logger is set
func (i *Interceptor) logf(format string, args ...interface{}) {
	if i.logger != nil {
		i.logger.Printf(format, args...)
	}
}

// HandleInput handles one submitted line. Local commands act on the
// selection and are never forwarded; everything else is sent to activeID
// unchanged. Empty input is dropped.
func (i *Interceptor) HandleInput(text string, activeID int64) Result {
	if strings.TrimSpace(text) == "" {
		return Result{}
	}

	if strings.HasPrefix(text, "//") {
		return i.forward(activeID, text[1:])
	}

	if strings.HasPrefix(text, "/") {
		name, args, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
		if cmd := FindCommand(name); cmd != nil && cmd.Run != nil {
			res := cmd.Run(i, activeID, strings.TrimSpace(args), text)
			if res.Err != nil {
				i.logf("/%s failed: %v", cmd.Name, res.Err)
			}
			return res
		}
		// Anything else is an IRC command for the server
	}

	return i.forward(activeID, text)
}

func (i *Interceptor) forward(activeID int64, text string) Result {
	if _, _, ok := i.nav.Channel(activeID); !ok {
		return Result{Err: ErrNoActiveChannel}
	}
	if err := i.out.SendInput(activeID, text); err != nil {
		return Result{Err: fmt.Errorf("failed to send input: %w", err)}
	}
	return Result{Forwarded: true}
}

// runJump switches locally only when the target resolves in the active
// network. Anything else, a bare /jump included, goes to the server as typed.
func runJump(i *Interceptor, activeID int64, args, line string) Result {
	net, _, ok := i.nav.Channel(activeID)
	if !ok || args == "" {
		return i.forward(activeID, line)
	}

	target := BestChannelMatch(net.Channels, args)
	if target == nil || !i.nav.ActivateID(target.ID) {
		i.logf("/jump %q matched nothing in %s, forwarding", args, net.Name)
		return i.forward(activeID, line)
	}
	return Result{}
}

func runNext(i *Interceptor, _ int64, _, _ string) Result {
	i.nav.NextChannel()
	return Result{}
}

func runPrev(i *Interceptor, _ int64, _, _ string) Result {
	i.nav.PrevChannel()
	return Result{}
}

func runHelp(_ *Interceptor, _ int64, _, _ string) Result {
	var b strings.Builder
	for n, row := range GenerateHelpContent() {
		if n > 0 {
			b.WriteString("  ")
		}
		b.WriteString(row[0])
		b.WriteString(" ")
		b.WriteString(row[1])
	}
	return Result{Notice: b.String()}
}
