package device

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang/glog"

	fx "github.com/robotalks/framelink/pkg/framework"
	"github.com/robotalks/framelink/pkg/l0/comm"
	"github.com/robotalks/framelink/pkg/l0/dispatch"
)

// Config defines the options of a simulated device.
type Config struct {
	// Link is a transport URL the device opens, e.g. serial:///dev/ttyUSB0.
	Link string
	// Listen is a transport URL the device accepts hosts on.
	// Ignored when Link is set.
	Listen        string
	QueueSize     int
	IdleDelay     time.Duration
	StatsInterval time.Duration
	LEDName       string
}

var defaultConfig = Config{
	Listen:        "tcp://127.0.0.1:7000",
	QueueSize:     comm.RxQueueSize,
	IdleDelay:     fx.DefaultIdleDelay,
	StatsInterval: 10 * time.Second,
	LEDName:       "LD2",
}

func init() {
	if val := os.Getenv("FRAMELINK_LINK"); val != "" {
		defaultConfig.Link = val
	}
	if val := os.Getenv("FRAMELINK_LISTEN"); val != "" {
		defaultConfig.Listen = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Link, "link", defaultConfig.Link, "Transport URL to open, e.g. serial:///dev/ttyUSB0?baud=115200")
	flag.StringVar(&defaultConfig.Listen, "listen", defaultConfig.Listen, "Transport URL to accept hosts on, tcp:// or ws://")
	flag.IntVar(&defaultConfig.QueueSize, "queue-size", defaultConfig.QueueSize, "Receive queue slots")
	flag.DurationVar(&defaultConfig.IdleDelay, "idle-delay", defaultConfig.IdleDelay, "Main loop idle delay")
	flag.DurationVar(&defaultConfig.StatsInterval, "stats-interval", defaultConfig.StatsInterval, "Link counters log interval, 0 to disable")
	flag.StringVar(&defaultConfig.LEDName, "led", defaultConfig.LEDName, "Name of the LED output")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

type fileConfig struct {
	Link          string `toml:"link"`
	Listen        string `toml:"listen"`
	QueueSize     int    `toml:"queue_size"`
	IdleDelay     string `toml:"idle_delay"`
	StatsInterval string `toml:"stats_interval"`
	LED           string `toml:"led"`
}

// LoadFile overlays the keys defined in a TOML file.
func (c *Config) LoadFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load device config: %w", err)
	}
	if meta.IsDefined("link") {
		c.Link = strings.TrimSpace(raw.Link)
	}
	if meta.IsDefined("listen") {
		c.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("queue_size") {
		if raw.QueueSize < 2 {
			return fmt.Errorf("queue_size %d too small", raw.QueueSize)
		}
		c.QueueSize = raw.QueueSize
	}
	if meta.IsDefined("idle_delay") {
		if c.IdleDelay, err = time.ParseDuration(raw.IdleDelay); err != nil {
			return fmt.Errorf("idle_delay: %w", err)
		}
	}
	if meta.IsDefined("stats_interval") {
		if c.StatsInterval, err = time.ParseDuration(raw.StatsInterval); err != nil {
			return fmt.Errorf("stats_interval: %w", err)
		}
	}
	if meta.IsDefined("led") {
		c.LEDName = strings.TrimSpace(raw.LED)
	}
	return nil
}

// Serve runs one firmware instance against stream until the stream fails
// or ctx is done.
func (c *Config) Serve(ctx context.Context, stream io.ReadWriter, out dispatch.DigitalOutput) error {
	fw := NewFirmwareWith(NewStreamPlatform(stream), out, c.QueueSize)
	loop := fx.NewLoop()
	loop.IdleDelay = c.IdleDelay
	loop.Add(fw, &MotorDriver{})
	if c.StatsInterval > 0 {
		loop.AddTask(fx.StageIdle, &statsReporter{fw: fw, interval: c.StatsInterval})
	}
	if err := fw.Start(); err != nil {
		return err
	}
	return loop.Run(ctx)
}

type statsReporter struct {
	fw       *Firmware
	interval time.Duration
	last     time.Time
	logged   comm.StatsSnapshot
}

func (r *statsReporter) Tick(tc fx.TickContext) error {
	now := tc.Time()
	if r.last.IsZero() {
		r.last = now
		return nil
	}
	if now.Sub(r.last) < r.interval {
		return nil
	}
	r.last = now
	if s := r.fw.Stats(); s != r.logged {
		r.logged = s
		glog.Infof("link: %s", s)
	}
	return nil
}
