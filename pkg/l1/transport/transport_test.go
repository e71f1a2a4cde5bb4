package transport

import (
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSerialConfig(t *testing.T) {
	testCases := []struct {
		url     string
		name    string
		baud    int
		timeout time.Duration
		fail    bool
	}{
		{url: "serial:///dev/ttyUSB0", name: "/dev/ttyUSB0", baud: DefaultBaud},
		{url: "serial:///dev/ttyACM1?baud=9600", name: "/dev/ttyACM1", baud: 9600},
		{url: "serial://COM3?baud=57600&read-timeout=100ms", name: "COM3", baud: 57600, timeout: 100 * time.Millisecond},
		{url: "serial://", fail: true},
		{url: "serial:///dev/ttyS0?baud=fast", fail: true},
		{url: "serial:///dev/ttyS0?baud=-1", fail: true},
		{url: "serial:///dev/ttyS0?read-timeout=x", fail: true},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			u, err := url.Parse(tc.url)
			require.NoError(t, err)
			conf, err := SerialConfig(u)
			if tc.fail {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.name, conf.Name)
			require.Equal(t, tc.baud, conf.Baud)
			require.Equal(t, tc.timeout, conf.ReadTimeout)
		})
	}
}

func TestUnsupportedScheme(t *testing.T) {
	_, err := Open("udp://127.0.0.1:9")
	require.ErrorIs(t, err, ErrUnsupportedScheme)
	_, err = Listen("serial:///dev/ttyUSB0")
	require.ErrorIs(t, err, ErrUnsupportedScheme)
}

func exchange(t *testing.T, ln Listener, dialURL string) {
	accepted := make(chan io.ReadWriteCloser, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
		close(accepted)
	}()

	client, err := Open(dialURL)
	require.NoError(t, err)
	defer client.Close()

	var server io.ReadWriteCloser
	select {
	case server = <-accepted:
		require.NotNil(t, server)
	case <-time.After(2 * time.Second):
		t.Fatal("accept timed out")
	}
	defer server.Close()

	_, err = client.Write([]byte{0xAA, 0x04, 'p', 'i', 'n', 'g', 0xAE})
	require.NoError(t, err)
	buf := make([]byte, 7)
	_, err = io.ReadFull(server, buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAA, 0x04, 'p', 'i', 'n', 'g', 0xAE}, buf)

	_, err = server.Write([]byte("ACK"))
	require.NoError(t, err)
	buf = buf[:3]
	_, err = io.ReadFull(client, buf)
	require.NoError(t, err)
	require.Equal(t, "ACK", string(buf))
}

func TestTCP(t *testing.T) {
	ln, err := Listen("tcp://127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	exchange(t, ln, "tcp://"+ln.Addr().String())
}

func TestWebsocket(t *testing.T) {
	ln, err := Listen("ws://127.0.0.1:0/link")
	require.NoError(t, err)
	exchange(t, ln, "ws://"+ln.Addr().String()+"/link")
	require.NoError(t, ln.Close())
	_, err = ln.Accept()
	require.Error(t, err)
}
