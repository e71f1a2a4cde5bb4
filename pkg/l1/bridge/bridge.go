// Package bridge connects an MQTT broker to the device link: commands
// published by operators are forwarded over the link and the device
// responses, liveness and link health are published back.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/framelink/pkg/l0/comm"
	"github.com/robotalks/framelink/pkg/l0/dispatch"
	"github.com/robotalks/framelink/pkg/l1/link"
	"github.com/robotalks/framelink/pkg/l1/mqtt"
	"github.com/robotalks/framelink/pkg/l1/msgs"
)

// Status payloads published on the status topic next to the device
// responses.
const (
	StatusOnline  = "STM:ONLINE"
	StatusOffline = "STM:OFFLINE"
	StatusBusy    = "BRIDGE:BUSY"
)

const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultTimeout  = "timeout"
	resultError    = "error"
)

// Device is what the bridge needs from the link.
type Device interface {
	Exec(ctx context.Context, cmd string) (string, error)
	Ping(ctx context.Context) error
	Stats() comm.StatsSnapshot
	Unmatched() uint64
	Done() <-chan struct{}
}

// Bridge forwards commands and publishes device state.
type Bridge struct {
	Config  *Config
	Queue   *mqtt.Queue
	Device  Device
	Metrics *Metrics

	cmdCh     chan string
	online    bool
	announced bool
	missed    int
	lastSeen  time.Time
	rtt       time.Duration
}

// New creates a Bridge.
func New(conf *Config, q *mqtt.Queue, dev Device) *Bridge {
	size := conf.QueueSize
	if size < 1 {
		size = 1
	}
	return &Bridge{
		Config: conf,
		Queue:  q,
		Device: dev,
		cmdCh:  make(chan string, size),
	}
}

// Run implements Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.Queue.Sub(b.Config.CommandsTopic, b.onCommand)
	defer sub.Close()
	b.logf("bridge started")

	var heartbeatC, statsC <-chan time.Time
	if d := b.Config.Heartbeat; d > 0 {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		heartbeatC = ticker.C
		b.heartbeat(ctx)
	}
	if d := b.Config.StatsInterval; d > 0 {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		statsC = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			b.logf("bridge stopped")
			return ctx.Err()
		case <-b.Device.Done():
			b.setOnline(false)
			b.logf("link closed")
			return link.ErrClosed
		case cmd := <-b.cmdCh:
			b.forward(ctx, cmd)
		case <-heartbeatC:
			b.heartbeat(ctx)
		case <-statsC:
			b.publishStats()
		}
	}
}

// Online reports the last known device liveness.
func (b *Bridge) Online() bool {
	return b.online
}

func (b *Bridge) onCommand(topic string, payload []byte) {
	cmd := strings.TrimSpace(string(payload))
	if cmd == "" {
		return
	}
	select {
	case b.cmdCh <- cmd:
	default:
		if m := b.Metrics; m != nil {
			m.DroppedCommands.Inc()
		}
		b.pub(b.Config.StatusTopic, StatusBusy)
		b.logf("busy, dropped %q", cmd)
	}
}

func (b *Bridge) forward(ctx context.Context, cmd string) {
	start := time.Now()
	resp, err := b.Device.Exec(ctx, cmd)
	latency := time.Since(start)

	var result string
	switch {
	case err == nil:
		b.seen(latency)
		b.pub(b.Config.StatusTopic, resp)
		result = resultOK
		if IsErrorResponse(resp) {
			result = resultRejected
		}
		b.logf("%s -> %s (%s)", cmd, resp, latency.Round(time.Microsecond))
	case errors.Is(err, link.ErrNoReply):
		result = resultTimeout
		b.miss()
		b.logf("%s: no reply", cmd)
	default:
		result = resultError
		b.logf("%s: %v", cmd, err)
	}
	if m := b.Metrics; m != nil {
		m.observeCommand(dispatch.Parse([]byte(cmd)).Kind.String(), result, latency)
	}
	b.pubTyped(b.Config.ResultsTopic, msgs.NewCommandResult("mqtt", cmd, resp, err, latency))
}

func (b *Bridge) heartbeat(ctx context.Context) {
	start := time.Now()
	err := b.Device.Ping(ctx)
	var respErr *link.ResponseError
	if err == nil || errors.As(err, &respErr) {
		b.seen(time.Since(start))
		if m := b.Metrics; m != nil {
			m.Heartbeats.WithLabelValues(resultOK).Inc()
		}
	} else {
		glog.V(1).Infof("heartbeat: %v", err)
		b.miss()
		if m := b.Metrics; m != nil {
			m.Heartbeats.WithLabelValues(resultTimeout).Inc()
		}
	}
	status := &msgs.DeviceStatus{}
	status.Online = b.online
	status.RttUs = b.rtt.Microseconds()
	status.ConsecutiveFailures = uint32(b.missed)
	if !b.lastSeen.IsZero() {
		status.LastSeenUnixMs = b.lastSeen.UnixMilli()
	}
	b.pubTyped(b.Config.DeviceTopic, status)
}

func (b *Bridge) publishStats() {
	stats, unmatched := b.Device.Stats(), b.Device.Unmatched()
	if m := b.Metrics; m != nil {
		m.observeLink(stats, unmatched)
	}
	b.pubTyped(b.Config.StatsTopic, msgs.NewLinkStats(stats, unmatched))
}

func (b *Bridge) seen(rtt time.Duration) {
	b.lastSeen, b.rtt, b.missed = time.Now(), rtt, 0
	b.setOnline(true)
}

func (b *Bridge) miss() {
	b.missed++
	if b.missed >= b.Config.MaxMissed {
		b.setOnline(false)
	}
}

func (b *Bridge) setOnline(online bool) {
	if b.announced && b.online == online {
		return
	}
	b.online, b.announced = online, true
	status := StatusOffline
	if online {
		status = StatusOnline
	}
	if m := b.Metrics; m != nil {
		if online {
			m.DeviceOnline.Set(1)
		} else {
			m.DeviceOnline.Set(0)
		}
	}
	b.pub(b.Config.StatusTopic, status)
	b.logf("device %s", strings.ToLower(strings.TrimPrefix(status, "STM:")))
}

func (b *Bridge) pub(topic, payload string) {
	if topic == "" {
		return
	}
	b.Queue.Pub(topic, []byte(payload))
}

func (b *Bridge) pubTyped(topic string, msg msgs.SerializableMessage) {
	if topic == "" {
		return
	}
	data, err := msgs.Encode(msg)
	if err != nil {
		glog.Errorf("encode %T: %v", msg, err)
		return
	}
	b.Queue.Pub(topic, data)
}

func (b *Bridge) logf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	glog.Info(line)
	b.pub(b.Config.LogsTopic, line)
}

// IsErrorResponse tells whether the device rejected a command.
func IsErrorResponse(resp string) bool {
	return resp == dispatch.RespUnknown || strings.HasSuffix(resp, ":ERR") || strings.Contains(resp, ":ERR:")
}
