package bridge

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/robotalks/framelink/pkg/l1/mqtt"
)

// Config defines the bridge options.
type Config struct {
	// MQTTURL is the broker, the path is the topic prefix.
	// e.g. mqtt://localhost:1883/epicure/
	MQTTURL string
	// Link is the transport URL of the device.
	Link string

	CommandsTopic string
	StatusTopic   string
	LogsTopic     string
	StatsTopic    string
	ResultsTopic  string
	DeviceTopic   string

	Heartbeat      time.Duration
	MaxMissed      int
	StatsInterval  time.Duration
	CommandTimeout time.Duration
	RateLimit      float64
	QueueSize      int
	MetricsAddr    string
}

var defaultConfig = Config{
	MQTTURL:        "mqtt://localhost:1883/epicure/",
	Link:           "serial:///dev/ttyUSB0?baud=115200",
	CommandsTopic:  "commands",
	StatusTopic:    "status",
	LogsTopic:      "logs",
	StatsTopic:     "stats",
	ResultsTopic:   "results",
	DeviceTopic:    "device",
	Heartbeat:      5 * time.Second,
	MaxMissed:      2,
	StatsInterval:  10 * time.Second,
	CommandTimeout: 500 * time.Millisecond,
	RateLimit:      50,
	QueueSize:      16,
	MetricsAddr:    ":9108",
}

func init() {
	if val := os.Getenv("FRAMELINK_MQTT_URL"); val != "" {
		defaultConfig.MQTTURL = val
	}
	if val := os.Getenv("FRAMELINK_LINK"); val != "" {
		defaultConfig.Link = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.MQTTURL, "mqtt", defaultConfig.MQTTURL, "MQTT broker URL, path is the topic prefix")
	flag.StringVar(&defaultConfig.Link, "link", defaultConfig.Link, "Device transport URL")
	flag.DurationVar(&defaultConfig.Heartbeat, "heartbeat", defaultConfig.Heartbeat, "Heartbeat ping interval, 0 to disable")
	flag.DurationVar(&defaultConfig.StatsInterval, "stats-interval", defaultConfig.StatsInterval, "Link stats publish interval, 0 to disable")
	flag.DurationVar(&defaultConfig.CommandTimeout, "timeout", defaultConfig.CommandTimeout, "Response timeout per command")
	flag.Float64Var(&defaultConfig.RateLimit, "rate", defaultConfig.RateLimit, "Max commands per second to the device")
	flag.StringVar(&defaultConfig.MetricsAddr, "metrics", defaultConfig.MetricsAddr, "Prometheus listen address, empty to disable")
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
	MQTT           string  `toml:"mqtt"`
	Link           string  `toml:"link"`
	Heartbeat      string  `toml:"heartbeat"`
	MaxMissed      int     `toml:"max_missed"`
	StatsInterval  string  `toml:"stats_interval"`
	CommandTimeout string  `toml:"command_timeout"`
	RateLimit      float64 `toml:"rate_limit"`
	QueueSize      int     `toml:"queue_size"`
	MetricsAddr    string  `toml:"metrics_addr"`
	Topics         struct {
		Commands string `toml:"commands"`
		Status   string `toml:"status"`
		Logs     string `toml:"logs"`
		Stats    string `toml:"stats"`
		Results  string `toml:"results"`
		Device   string `toml:"device"`
	} `toml:"topics"`
}

// LoadFile overlays the keys defined in a TOML file.
func (c *Config) LoadFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load bridge config: %w", err)
	}
	if meta.IsDefined("mqtt") {
		c.MQTTURL = strings.TrimSpace(raw.MQTT)
	}
	if meta.IsDefined("link") {
		c.Link = strings.TrimSpace(raw.Link)
	}
	durations := []struct {
		key string
		val string
		dst *time.Duration
	}{
		{"heartbeat", raw.Heartbeat, &c.Heartbeat},
		{"stats_interval", raw.StatsInterval, &c.StatsInterval},
		{"command_timeout", raw.CommandTimeout, &c.CommandTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		if *d.dst, err = time.ParseDuration(strings.TrimSpace(d.val)); err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
	}
	if meta.IsDefined("max_missed") {
		c.MaxMissed = raw.MaxMissed
	}
	if meta.IsDefined("rate_limit") {
		c.RateLimit = raw.RateLimit
	}
	if meta.IsDefined("queue_size") {
		c.QueueSize = raw.QueueSize
	}
	if meta.IsDefined("metrics_addr") {
		c.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	topics := []struct {
		key string
		val string
		dst *string
	}{
		{"commands", raw.Topics.Commands, &c.CommandsTopic},
		{"status", raw.Topics.Status, &c.StatusTopic},
		{"logs", raw.Topics.Logs, &c.LogsTopic},
		{"stats", raw.Topics.Stats, &c.StatsTopic},
		{"results", raw.Topics.Results, &c.ResultsTopic},
		{"device", raw.Topics.Device, &c.DeviceTopic},
	}
	for _, t := range topics {
		if meta.IsDefined("topics", t.key) {
			*t.dst = strings.TrimSpace(t.val)
		}
	}
	return c.Validate()
}

// Validate checks the options.
func (c *Config) Validate() error {
	if c.MQTTURL == "" {
		return fmt.Errorf("mqtt url is required")
	}
	if c.CommandsTopic == "" || c.StatusTopic == "" {
		return fmt.Errorf("commands and status topics are required")
	}
	if c.MaxMissed < 1 {
		return fmt.Errorf("max_missed must be at least 1")
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1")
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate_limit must be positive")
	}
	return nil
}

// NewQueue creates the MQTT queue. The broker publishes StatusOffline on
// the status topic if the bridge disappears.
func (c *Config) NewQueue() (*mqtt.Queue, error) {
	opts, prefix, qos, err := mqtt.ClientOptionsFromURL(c.MQTTURL, "bridge")
	if err != nil {
		return nil, err
	}
	opts.SetWill(prefix+c.StatusTopic, StatusOffline, qos, false)
	q := mqtt.NewQueue(opts, prefix)
	q.QoS = qos
	return q, nil
}
