package framework

import (
	"errors"
	"flag"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeepSetFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	link := "serial:///dev/ttyUSB0"
	listen := "tcp://127.0.0.1:7000"
	fs.StringVar(&link, "link", link, "")
	fs.StringVar(&listen, "listen", listen, "")
	require.NoError(t, fs.Parse([]string{"-link", "tcp://device:7000"}))

	err := KeepSetFlags(fs, func() error {
		link, listen = "serial:///dev/ttyACM0", "ws://0.0.0.0:8080/link"
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "tcp://device:7000", link)
	require.Equal(t, "ws://0.0.0.0:8080/link", listen)

	errLoad := errors.New("bad file")
	require.ErrorIs(t, KeepSetFlags(fs, func() error { return errLoad }), errLoad)
}
