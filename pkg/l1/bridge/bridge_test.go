package bridge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/framelink/pkg/l0/comm"
	"github.com/robotalks/framelink/pkg/l0/dispatch"
	"github.com/robotalks/framelink/pkg/l1/link"
	"github.com/robotalks/framelink/pkg/l1/mqtt"
	"github.com/robotalks/framelink/pkg/l1/msgs"
)

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	paho.Client
	lock sync.Mutex
	pubs []published
}

func (c *fakeClient) Subscribe(string, byte, paho.MessageHandler) paho.Token {
	return &paho.DummyToken{}
}

func (c *fakeClient) Unsubscribe(...string) paho.Token {
	return &paho.DummyToken{}
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.lock.Lock()
	c.pubs = append(c.pubs, published{topic: topic, payload: payload.([]byte)})
	c.lock.Unlock()
	return &paho.DummyToken{}
}

func (c *fakeClient) texts(topic string) []string {
	c.lock.Lock()
	defer c.lock.Unlock()
	var res []string
	for _, p := range c.pubs {
		if p.topic == topic {
			res = append(res, string(p.payload))
		}
	}
	return res
}

func (c *fakeClient) typed(t *testing.T, topic string) []interface{} {
	c.lock.Lock()
	defer c.lock.Unlock()
	var res []interface{}
	for _, p := range c.pubs {
		if p.topic != topic {
			continue
		}
		typed, err := msgs.DecodeTyped(p.payload)
		require.NoError(t, err)
		msg, err := typed.Decode()
		require.NoError(t, err)
		res = append(res, msg)
	}
	return res
}

type fakeDevice struct {
	lock    sync.Mutex
	resps   map[string]string
	errs    map[string]error
	pingErr error
	execs   []string
	done    chan struct{}
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		resps: map[string]string{
			"ping":     dispatch.RespPong,
			"led:on":   dispatch.RespLEDOK,
			"motor:10": dispatch.RespMotorFormat,
			"hello":    dispatch.RespUnknown,
		},
		errs: make(map[string]error),
		done: make(chan struct{}),
	}
}

func (d *fakeDevice) Exec(ctx context.Context, cmd string) (string, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.execs = append(d.execs, cmd)
	if err := d.errs[cmd]; err != nil {
		return "", err
	}
	return d.resps[cmd], nil
}

func (d *fakeDevice) Ping(ctx context.Context) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.pingErr
}

func (d *fakeDevice) Stats() comm.StatsSnapshot {
	return comm.StatsSnapshot{FramesSent: 3, FramesReceived: 2, ChecksumDrops: 1}
}

func (d *fakeDevice) Unmatched() uint64     { return 1 }
func (d *fakeDevice) Done() <-chan struct{} { return d.done }

func newTestBridge(t *testing.T) (*Bridge, *fakeClient, *fakeDevice, *prometheus.Registry) {
	client := &fakeClient{}
	dev := newFakeDevice()
	reg := prometheus.NewRegistry()
	b := New(NewConfig(), &mqtt.Queue{Client: client, TopicPrefix: "epicure/"}, dev)
	b.Metrics = NewMetrics(reg)
	return b, client, dev, reg
}

func gathered(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	next:
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if labels[l.GetName()] != l.GetValue() {
					continue next
				}
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func TestBridgeForward(t *testing.T) {
	b, client, dev, reg := newTestBridge(t)
	dev.errs["motor:1:1"] = link.ErrNoReply
	ctx := context.Background()

	for _, cmd := range []string{"ping", "led:on", "motor:10", "hello", "motor:1:1"} {
		b.forward(ctx, cmd)
	}
	require.Equal(t, []string{
		StatusOnline,
		dispatch.RespPong,
		dispatch.RespLEDOK,
		dispatch.RespMotorFormat,
		dispatch.RespUnknown,
	}, client.texts("epicure/status"))
	require.Len(t, client.texts("epicure/logs"), 6)

	results := client.typed(t, "epicure/results")
	require.Len(t, results, 5)
	last := results[4].(*msgs.CommandResult)
	require.Equal(t, "motor:1:1", last.Command)
	require.Equal(t, link.ErrNoReply.Error(), last.Error)

	require.Equal(t, 1.0, gathered(t, reg, "framelink_commands_total", map[string]string{"kind": "ping", "result": resultOK}))
	require.Equal(t, 1.0, gathered(t, reg, "framelink_commands_total", map[string]string{"kind": "motor", "result": resultRejected}))
	require.Equal(t, 1.0, gathered(t, reg, "framelink_commands_total", map[string]string{"kind": "motor", "result": resultTimeout}))
	require.Equal(t, 1.0, gathered(t, reg, "framelink_device_online", nil))
}

func TestBridgeHeartbeat(t *testing.T) {
	b, client, dev, reg := newTestBridge(t)
	ctx := context.Background()

	dev.pingErr = link.ErrNoReply
	b.heartbeat(ctx)
	require.Empty(t, client.texts("epicure/status"))
	b.heartbeat(ctx)
	require.Equal(t, []string{StatusOffline}, client.texts("epicure/status"))

	dev.pingErr = &link.ResponseError{Command: "ping", Response: dispatch.RespUnknown}
	b.heartbeat(ctx)
	require.True(t, b.Online())
	dev.pingErr = nil
	b.heartbeat(ctx)
	require.Equal(t, []string{StatusOffline, StatusOnline}, client.texts("epicure/status"))

	statuses := client.typed(t, "epicure/device")
	require.Len(t, statuses, 4)
	require.False(t, statuses[1].(*msgs.DeviceStatus).Online)
	require.Equal(t, uint32(2), statuses[1].(*msgs.DeviceStatus).ConsecutiveFailures)
	require.True(t, statuses[3].(*msgs.DeviceStatus).Online)
	require.NotZero(t, statuses[3].(*msgs.DeviceStatus).LastSeenUnixMs)

	require.Equal(t, 2.0, gathered(t, reg, "framelink_heartbeats_total", map[string]string{"result": resultTimeout}))
	require.Equal(t, 2.0, gathered(t, reg, "framelink_heartbeats_total", map[string]string{"result": resultOK}))
}

func TestBridgeRun(t *testing.T) {
	b, client, dev, reg := newTestBridge(t)
	b.Config.Heartbeat = 0
	b.Config.StatsInterval = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return len(client.texts("epicure/logs")) > 0
	}, time.Second, time.Millisecond)
	b.Queue.Deliver("epicure/commands", []byte(" led:on \n"))
	require.Eventually(t, func() bool {
		texts := client.texts("epicure/status")
		return len(texts) == 2 && texts[1] == dispatch.RespLEDOK
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		return len(client.typed(t, "epicure/stats")) > 0
	}, time.Second, time.Millisecond)
	stats := client.typed(t, "epicure/stats")[0].(*msgs.LinkStats)
	require.Equal(t, uint64(1), stats.ChecksumDrops)
	require.Equal(t, uint64(1), stats.Unmatched)
	require.Equal(t, 3.0, gathered(t, reg, "framelink_link_counter", map[string]string{"counter": "frames_sent"}))

	close(dev.done)
	select {
	case err := <-errCh:
		require.True(t, errors.Is(err, link.ErrClosed))
	case <-time.After(time.Second):
		t.Fatal("bridge did not stop")
	}
	texts := client.texts("epicure/status")
	require.Equal(t, StatusOffline, texts[len(texts)-1])
}

func TestBridgeBusy(t *testing.T) {
	b, client, _, reg := newTestBridge(t)
	b.cmdCh = make(chan string, 1)
	b.onCommand("commands", []byte("ping"))
	b.onCommand("commands", []byte("ping"))
	b.onCommand("commands", []byte("   "))
	require.Len(t, b.cmdCh, 1)
	require.Equal(t, []string{StatusBusy}, client.texts("epicure/status"))
	require.Equal(t, 1.0, gathered(t, reg, "framelink_dropped_commands_total", nil))
}

func TestIsErrorResponse(t *testing.T) {
	require.False(t, IsErrorResponse(dispatch.RespPong))
	require.False(t, IsErrorResponse(dispatch.RespMotorOK))
	require.True(t, IsErrorResponse(dispatch.RespLEDErr))
	require.True(t, IsErrorResponse(dispatch.RespMotorBadArgs))
	require.True(t, IsErrorResponse(dispatch.RespUnknown))
}

func TestConfigLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mqtt = "mqtt://broker:1883/lab/"
heartbeat = "2s"
max_missed = 3

[topics]
status = "state"
`), 0644))
	conf := NewConfig()
	require.NoError(t, conf.LoadFile(path))
	require.Equal(t, "mqtt://broker:1883/lab/", conf.MQTTURL)
	require.Equal(t, 2*time.Second, conf.Heartbeat)
	require.Equal(t, 3, conf.MaxMissed)
	require.Equal(t, "state", conf.StatusTopic)
	require.Equal(t, "commands", conf.CommandsTopic)
	require.Equal(t, Default().CommandTimeout, conf.CommandTimeout)

	require.NoError(t, os.WriteFile(path, []byte(`max_missed = 0`), 0644))
	require.Error(t, NewConfig().LoadFile(path))
	require.NoError(t, os.WriteFile(path, []byte(`heartbeat = "often"`), 0644))
	require.Error(t, NewConfig().LoadFile(path))
}
