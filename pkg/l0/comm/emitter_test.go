package comm

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingTransmitter struct {
	writes   [][]byte
	timeouts []time.Duration
	failAt   int
}

func (r *recordingTransmitter) Transmit(p []byte, timeout time.Duration) error {
	if r.failAt > 0 && len(r.writes)+1 == r.failAt {
		return errors.New("timeout")
	}
	r.writes = append(r.writes, append([]byte(nil), p...))
	r.timeouts = append(r.timeouts, timeout)
	return nil
}

func (r *recordingTransmitter) bytes() (out []byte) {
	for _, w := range r.writes {
		out = append(out, w...)
	}
	return
}

func TestEmitterSend(t *testing.T) {
	var tx recordingTransmitter
	var stats Stats
	e := NewEmitter(&tx)
	e.Observer = &stats

	require.NoError(t, e.Send("ACK:pong"))
	require.Equal(t, [][]byte{
		{FrameStart},
		{8},
		[]byte("ACK:pong"),
		{Checksum([]byte("ACK:pong"))},
	}, tx.writes)
	require.Equal(t, []time.Duration{HeaderTimeout, HeaderTimeout, PayloadTimeout, HeaderTimeout}, tx.timeouts)
	require.Equal(t, uint64(1), stats.Snapshot().FramesSent)
}

func TestEmitterRejectsLength(t *testing.T) {
	testCases := []struct {
		name string
		resp string
	}{
		{"empty", ""},
		{"at ceiling", strings.Repeat("x", MaxPayload)},
		{"above ceiling", strings.Repeat("x", MaxPayload+10)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var tx recordingTransmitter
			var stats Stats
			e := NewEmitter(&tx)
			e.Observer = &stats
			require.ErrorIs(t, e.Send(tc.resp), ErrPayloadLength)
			require.Empty(t, tx.writes)
			require.Equal(t, uint64(1), stats.Snapshot().SendRejected)
		})
	}
}

func TestEmitterLongestPayload(t *testing.T) {
	var tx recordingTransmitter
	resp := strings.Repeat("y", MaxPayload-1)
	require.NoError(t, NewEmitter(&tx).Send(resp))
	out := tx.bytes()
	require.Len(t, out, MaxPayload+2)
	require.Equal(t, byte(MaxPayload-1), out[1])
}

func TestEmitterTransmitError(t *testing.T) {
	var tx recordingTransmitter
	tx.failAt = 3
	var stats Stats
	e := NewEmitter(&tx)
	e.Observer = &stats
	err := e.Send("LED:OK")
	var txErr *TransmitError
	require.ErrorAs(t, err, &txErr)
	require.Equal(t, "payload", txErr.Part)
	require.Len(t, tx.writes, 2)
	require.Equal(t, uint64(1), stats.Snapshot().SendErrors)
}

func TestEmitterRoundTrip(t *testing.T) {
	payloads := []string{"ping", "ACK:pong", "MOTOR:ERR:BAD_ARGS", "\xAA\x00\xAA", strings.Repeat("z", MaxPayload-1)}
	for _, p := range payloads {
		var tx recordingTransmitter
		require.NoError(t, NewEmitter(&tx).Send(p))

		var parser Parser
		var got []byte
		for _, b := range tx.bytes() {
			if pr := parser.Parse(b); pr.Payload != nil {
				got = append([]byte(nil), pr.Payload...)
			}
		}
		require.Equal(t, []byte(p), got)
		require.Equal(t, Checksum([]byte(p)), tx.bytes()[len(p)+2])
	}
}

func TestEmitterTransmitFunc(t *testing.T) {
	var parser Parser
	var got []string
	e := NewEmitter(TransmitFunc(func(p []byte, timeout time.Duration) error {
		require.Positive(t, timeout)
		for _, b := range p {
			if pr := parser.Parse(b); pr.Payload != nil {
				got = append(got, string(pr.Payload))
			}
		}
		return nil
	}))
	require.NoError(t, e.Send("LED:OK"))
	require.ErrorIs(t, e.Send(""), ErrPayloadLength)
	require.NoError(t, e.Send("UNKNOWN"))
	require.Equal(t, []string{"LED:OK", "UNKNOWN"}, got)
	require.Equal(t, StateIdle, parser.State())
}
