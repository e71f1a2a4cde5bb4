// Package transport opens the byte streams a link runs on.
//
// Supported URLs:
//
//	serial:///dev/ttyUSB0?baud=115200&read-timeout=100ms
//	tcp://host:port
//	ws://host:port/path (wss for TLS, Open only)
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/tarm/serial"
)

// DefaultBaud is the UART speed of the device.
const DefaultBaud = 115200

// ErrUnsupportedScheme is returned for URLs no transport handles.
var ErrUnsupportedScheme = errors.New("unsupported transport")

// Listener accepts streams from peers.
type Listener interface {
	Accept() (io.ReadWriteCloser, error)
	Addr() net.Addr
	Close() error
}

// Open connects to the peer described by rawURL.
func Open(rawURL string) (io.ReadWriteCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "serial":
		conf, err := SerialConfig(u)
		if err != nil {
			return nil, err
		}
		port, err := serial.OpenPort(conf)
		if err != nil {
			return nil, fmt.Errorf("open serial port %s: %w", conf.Name, err)
		}
		return port, nil
	case "tcp":
		return net.Dial("tcp", u.Host)
	case "ws", "wss":
		return dialWebsocket(u)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
}

// Listen accepts peers on a tcp:// or ws:// URL.
func Listen(rawURL string) (Listener, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "tcp":
		ln, err := net.Listen("tcp", u.Host)
		if err != nil {
			return nil, err
		}
		return &tcpListener{ln: ln}, nil
	case "ws":
		return listenWebsocket(u)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
}

// SerialConfig extracts port settings from a serial URL. The port name is
// the URL path (serial:///dev/ttyUSB0) or host (serial://COM3).
func SerialConfig(u *url.URL) (*serial.Config, error) {
	name := u.Host + u.Path
	if name == "" {
		return nil, fmt.Errorf("serial port name missing in %q", u.String())
	}
	conf := &serial.Config{Name: name, Baud: DefaultBaud}
	q := u.Query()
	if val := q.Get("baud"); val != "" {
		baud, err := strconv.Atoi(val)
		if err != nil || baud <= 0 {
			return nil, fmt.Errorf("invalid baud %q", val)
		}
		conf.Baud = baud
	}
	if val := q.Get("read-timeout"); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid read-timeout %q: %w", val, err)
		}
		conf.ReadTimeout = timeout
	}
	return conf, nil
}

type tcpListener struct {
	ln net.Listener
}

func (l *tcpListener) Accept() (io.ReadWriteCloser, error) {
	return l.ln.Accept()
}

func (l *tcpListener) Addr() net.Addr {
	return l.ln.Addr()
}

func (l *tcpListener) Close() error {
	return l.ln.Close()
}
