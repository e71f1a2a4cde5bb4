package transport

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

func dialWebsocket(u *url.URL) (io.ReadWriteCloser, error) {
	origin := "http://" + u.Host + "/"
	if u.Scheme == "wss" {
		origin = "https://" + u.Host + "/"
	}
	conn, err := websocket.Dial(u.String(), "", origin)
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}

// wsConn lets the handler goroutine, which owns the connection, return
// only after the accepting side closed it.
type wsConn struct {
	*websocket.Conn
	done chan struct{}
	once sync.Once
}

func (c *wsConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(func() { close(c.done) })
	return err
}

type wsListener struct {
	ln     net.Listener
	server *http.Server
	connCh chan *wsConn
	closed chan struct{}
	once   sync.Once
}

func listenWebsocket(u *url.URL) (*wsListener, error) {
	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, err
	}
	l := &wsListener{
		ln:     ln,
		connCh: make(chan *wsConn),
		closed: make(chan struct{}),
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.Handle(path, websocket.Handler(l.serve))
	l.server = &http.Server{Handler: mux}
	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			glog.Warningf("websocket server %s: %v", ln.Addr(), err)
		}
	}()
	return l, nil
}

func (l *wsListener) serve(ws *websocket.Conn) {
	ws.PayloadType = websocket.BinaryFrame
	conn := &wsConn{Conn: ws, done: make(chan struct{})}
	select {
	case l.connCh <- conn:
	case <-l.closed:
		return
	}
	select {
	case <-conn.done:
	case <-l.closed:
		ws.Close()
	}
}

func (l *wsListener) Accept() (io.ReadWriteCloser, error) {
	select {
	case conn := <-l.connCh:
		return conn, nil
	case <-l.closed:
		return nil, net.ErrClosed
	}
}

func (l *wsListener) Addr() net.Addr {
	return l.ln.Addr()
}

func (l *wsListener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return l.server.Close()
}
