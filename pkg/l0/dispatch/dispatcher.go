// Package dispatch interprets validated frame payloads as text commands
// and produces the response for each of them.
package dispatch

import (
	"bytes"
	"errors"
	"math"

	"github.com/golang/glog"
)

// Responses.
const (
	RespPong         = "ACK:pong"
	RespLEDOK        = "LED:OK"
	RespLEDErr       = "LED:ERR"
	RespMotorOK      = "MOTOR:OK"
	RespMotorFormat  = "MOTOR:ERR:FORMAT"
	RespMotorBadArgs = "MOTOR:ERR:BAD_ARGS"
	RespUnknown      = "UNKNOWN"
)

const trimSet = " \t\r\n"

var (
	cmdPing     = []byte("ping")
	prefixLED   = []byte("led:")
	prefixMotor = []byte("motor:")
)

var (
	// ErrLEDState indicates a led command other than on/off.
	ErrLEDState = errors.New("led state must be on or off")
	// ErrMotorFormat indicates a motor command without the steps/dir separator.
	ErrMotorFormat = errors.New("motor command must be motor:<steps>:<dir>")
	// ErrMotorArgs indicates non-numeric steps or a dir other than 0/1.
	ErrMotorArgs = errors.New("motor steps must be digits and dir 0 or 1")
)

// Kind is the recognized form of a command.
type Kind int

// Command kinds.
const (
	KindUnknown Kind = iota
	KindPing
	KindLED
	KindMotor
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindPing:
		return "ping"
	case KindLED:
		return "led"
	case KindMotor:
		return "motor"
	}
	return "unknown"
}

// MotorCommand is a validated motor request. Actuation belongs to a
// MotorHandler, the dispatcher only parses.
type MotorCommand struct {
	Steps     uint32
	Clockwise bool
}

// Command is a parsed payload.
type Command struct {
	Kind  Kind
	On    bool
	Motor MotorCommand
	// Err is set when the payload has a known prefix but fails validation.
	Err error
}

// DigitalOutput drives a single digital line.
type DigitalOutput interface {
	Set(high bool)
}

// MotorHandler receives validated motor commands.
type MotorHandler interface {
	HandleMotor(MotorCommand)
}

// MotorHandlerFunc is the func form of MotorHandler.
type MotorHandlerFunc func(MotorCommand)

// HandleMotor implements MotorHandler.
func (f MotorHandlerFunc) HandleMotor(cmd MotorCommand) {
	f(cmd)
}

// Dispatcher maps payloads to responses and drives the output line.
type Dispatcher struct {
	Output DigitalOutput
	Motor  MotorHandler
}

// Handle processes one validated payload and returns exactly one
// response.
func (d *Dispatcher) Handle(payload []byte) string {
	cmd := Parse(payload)
	if glog.V(2) {
		glog.Infof("command %s: %q err=%v", cmd.Kind, payload, cmd.Err)
	}
	switch cmd.Kind {
	case KindPing:
		return RespPong
	case KindLED:
		if cmd.Err != nil {
			return RespLEDErr
		}
		if out := d.Output; out != nil {
			out.Set(cmd.On)
		}
		return RespLEDOK
	case KindMotor:
		switch cmd.Err {
		case nil:
		case ErrMotorFormat:
			return RespMotorFormat
		default:
			return RespMotorBadArgs
		}
		if h := d.Motor; h != nil {
			h.HandleMotor(cmd.Motor)
		}
		return RespMotorOK
	}
	return RespUnknown
}

// Parse recognizes a command. The payload ends at the first NUL byte and
// surrounding whitespace and line endings are ignored.
func Parse(payload []byte) (cmd Command) {
	if n := bytes.IndexByte(payload, 0); n >= 0 {
		payload = payload[:n]
	}
	s := bytes.Trim(payload, trimSet)
	switch {
	case bytes.Equal(s, cmdPing):
		cmd.Kind = KindPing
	case bytes.HasPrefix(s, prefixLED):
		cmd.Kind = KindLED
		switch string(bytes.Trim(s[len(prefixLED):], trimSet)) {
		case "on":
			cmd.On = true
		case "off":
		default:
			cmd.Err = ErrLEDState
		}
	case bytes.HasPrefix(s, prefixMotor):
		cmd.Kind = KindMotor
		cmd.Motor, cmd.Err = parseMotor(bytes.Trim(s[len(prefixMotor):], trimSet))
	}
	return
}

func parseMotor(args []byte) (MotorCommand, error) {
	sep := bytes.IndexByte(args, ':')
	if sep < 0 {
		return MotorCommand{}, ErrMotorFormat
	}
	steps, ok := parseSteps(bytes.Trim(args[:sep], trimSet))
	dir := bytes.Trim(args[sep+1:], trimSet)
	if !ok || len(dir) != 1 || (dir[0] != '0' && dir[0] != '1') {
		return MotorCommand{}, ErrMotorArgs
	}
	return MotorCommand{Steps: steps, Clockwise: dir[0] == '1'}, nil
}

// parseSteps accepts a non-empty run of decimal digits. Values beyond
// 32 bits saturate.
func parseSteps(s []byte) (uint32, bool) {
	if len(s) == 0 {
		return 0, false
	}
	var n uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		if n <= math.MaxUint32 {
			n = n*10 + uint64(c-'0')
		}
	}
	if n > math.MaxUint32 {
		n = math.MaxUint32
	}
	return uint32(n), true
}
