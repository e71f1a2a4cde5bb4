package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/abiosoft/ishell"
	"golang.org/x/time/rate"

	"github.com/robotalks/framelink/pkg/l1/link"
	"github.com/robotalks/framelink/pkg/l1/transport"
)

// Config provides the options to reach a device.
type Config struct {
	// Link is the transport URL, e.g. tcp://127.0.0.1:7000.
	Link    string
	Timeout time.Duration
	Rate    float64
}

var defaultConfig = Config{
	Link:    "tcp://127.0.0.1:7000",
	Timeout: link.DefaultTimeout,
	Rate:    link.DefaultRate,
}

func init() {
	if val := os.Getenv("FRAMELINK_LINK"); val != "" {
		defaultConfig.Link = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Link, "link", defaultConfig.Link, "Device transport URL")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Response timeout")
	flag.Float64Var(&defaultConfig.Rate, "rate", defaultConfig.Rate, "Max commands per second")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Config *Config
	Conn   *LinkConn
}

// LinkConn is an open link with its response reader running.
type LinkConn struct {
	Ctx    context.Context
	Cancel func()
	URL    string
	Client *link.Client
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

type commandOutput struct {
	Command  string `json:"command"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// DoCommand sends a raw command and prints the response.
func DoCommand(c *ishell.Context, cmd string) (string, error) {
	s := ShellFrom(c)
	if s.Conn == nil {
		err := fmt.Errorf("not connected")
		c.Err(err)
		return "", err
	}
	resp, err := s.Conn.Client.Exec(s.Conn.Ctx, cmd)
	if s.OutputJSON {
		out := commandOutput{Command: cmd, Response: resp}
		if err != nil {
			out.Error = err.Error()
		}
		data, _ := json.Marshal(&out)
		c.Println(string(data))
		return resp, err
	}
	if err != nil {
		c.Err(err)
		return "", err
	}
	c.Println(resp)
	return resp, nil
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect opens the link at url.
func (s *Shell) Connect(url string) error {
	stream, err := transport.Open(url)
	if err != nil {
		return err
	}
	conn := &LinkConn{URL: url, Client: link.New(stream)}
	conn.Client.Timeout = s.Config.Timeout
	if s.Config.Rate > 0 {
		conn.Client.Limiter = rate.NewLimiter(rate.Limit(s.Config.Rate), link.DefaultBurst)
	}
	conn.Ctx, conn.Cancel = context.WithCancel(context.Background())
	s.Disconnect()
	s.Conn = conn
	go func() {
		if err := conn.Client.Run(conn.Ctx); err != nil && conn.Ctx.Err() == nil {
			s.Shell.Printf("link %s closed: %v\n", url, err)
		}
	}()
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", url))
	return nil
}

// Disconnect closes the current link.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Cancel()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Link != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Link)
		}
		if err := s.Connect(s.Config.Link); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Link, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// ConnectCmd opens a link.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[URL]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			url := s.Config.Link
			if len(c.Args) > 0 {
				url = c.Args[0]
			}
			if url == "" {
				c.Err(fmt.Errorf("URL required"))
				return
			}
			if err := s.Connect(url); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd closes the current link.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
