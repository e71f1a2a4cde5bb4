// Package device adds the device commands to the shell.
package device

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/framelink/pkg/cli/sh"
	"github.com/robotalks/framelink/pkg/l0/comm"
)

var (
	// PingCmd checks the device is alive.
	PingCmd = ishell.Cmd{
		Name:    "ping",
		Aliases: []string{"p"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, "ping")
		}),
	}

	// LEDCmd drives the LED.
	LEDCmd = ishell.Cmd{
		Name: "led",
		Help: "on|off",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			cmd, err := LEDCommand(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, cmd)
		}),
	}

	// MotorCmd requests a motor move.
	MotorCmd = ishell.Cmd{
		Name:    "motor",
		Aliases: []string{"m"},
		Help:    "STEPS cw|ccw|1|0",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			cmd, err := MotorCommand(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, cmd)
		}),
	}

	// SendCmd sends raw text, useful to probe error responses.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"raw"},
		Help:    "TEXT",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("TEXT required"))
				return
			}
			sh.DoCommand(c, strings.Join(c.Args, " "))
		}),
	}

	// StatsCmd prints the host side link counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			stats := s.Conn.Client.Stats()
			if s.OutputJSON {
				out, err := json.Marshal(&stats)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			c.Printf("%s unmatched=%d\n", stats, s.Conn.Client.Unmatched())
		}),
	}
)

// LEDCommand builds the LED command text.
func LEDCommand(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("on or off required")
	}
	switch strings.ToLower(args[0]) {
	case "on", "1":
		return "led:on", nil
	case "off", "0":
		return "led:off", nil
	}
	return "", fmt.Errorf("invalid LED state %q", args[0])
}

// MotorCommand builds the motor command text.
func MotorCommand(args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("STEPS and DIR required")
	}
	steps, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return "", fmt.Errorf("invalid STEPS: %v", err)
	}
	var dir string
	switch strings.ToLower(args[1]) {
	case "cw", "1":
		dir = "1"
	case "ccw", "0":
		dir = "0"
	default:
		return "", fmt.Errorf("invalid DIR %q", args[1])
	}
	cmd := "motor:" + strconv.FormatUint(steps, 10) + ":" + dir
	if !comm.ValidPayloadLength(len(cmd)) {
		return "", comm.ErrPayloadLength
	}
	return cmd, nil
}

func init() {
	sh.AddCmds(
		&PingCmd,
		&LEDCmd,
		&MotorCmd,
		&SendCmd,
		&StatsCmd,
	)
}
