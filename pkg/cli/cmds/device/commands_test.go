package device

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLEDCommand(t *testing.T) {
	cmd, err := LEDCommand([]string{"ON"})
	require.NoError(t, err)
	require.Equal(t, "led:on", cmd)
	cmd, err = LEDCommand([]string{"0"})
	require.NoError(t, err)
	require.Equal(t, "led:off", cmd)
	_, err = LEDCommand([]string{"dim"})
	require.Error(t, err)
	_, err = LEDCommand(nil)
	require.Error(t, err)
}

func TestMotorCommand(t *testing.T) {
	testCases := []struct {
		args []string
		cmd  string
	}{
		{[]string{"10", "cw"}, "motor:10:1"},
		{[]string{"0", "ccw"}, "motor:0:0"},
		{[]string{"4294967295", "1"}, "motor:4294967295:1"},
		{[]string{"4294967296", "1"}, ""},
		{[]string{"-1", "1"}, ""},
		{[]string{"10", "left"}, ""},
		{[]string{"10"}, ""},
	}
	for _, tc := range testCases {
		cmd, err := MotorCommand(tc.args)
		if tc.cmd == "" {
			require.Error(t, err, "%v", tc.args)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tc.cmd, cmd)
	}
}
