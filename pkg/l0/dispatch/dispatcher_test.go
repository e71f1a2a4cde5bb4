package dispatch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeOutput struct {
	levels []bool
}

func (o *fakeOutput) Set(high bool) {
	o.levels = append(o.levels, high)
}

func TestDispatcherHandle(t *testing.T) {
	testCases := []struct {
		payload string
		resp    string
		levels  []bool
		motor   []MotorCommand
	}{
		{"ping", RespPong, nil, nil},
		{"  ping\r\n", RespPong, nil, nil},
		{"ping\x00garbage", RespPong, nil, nil},
		{"Ping", RespUnknown, nil, nil},
		{"pingpong", RespUnknown, nil, nil},
		{"led:on", RespLEDOK, []bool{true}, nil},
		{"led:off", RespLEDOK, []bool{false}, nil},
		{"led: on \n", RespLEDOK, []bool{true}, nil},
		{"led:bogus", RespLEDErr, nil, nil},
		{"led:", RespLEDErr, nil, nil},
		{"led:ON", RespLEDErr, nil, nil},
		{"motor:10:1", RespMotorOK, nil, []MotorCommand{{Steps: 10, Clockwise: true}}},
		{"motor:0:0", RespMotorOK, nil, []MotorCommand{{Steps: 0}}},
		{"motor: 250 : 0 ", RespMotorOK, nil, []MotorCommand{{Steps: 250}}},
		{"motor:abc:1", RespMotorBadArgs, nil, nil},
		{"motor::1", RespMotorBadArgs, nil, nil},
		{"motor:-5:1", RespMotorBadArgs, nil, nil},
		{"motor:10:2", RespMotorBadArgs, nil, nil},
		{"motor:10:", RespMotorBadArgs, nil, nil},
		{"motor:10:1:1", RespMotorBadArgs, nil, nil},
		{"motor:10", RespMotorFormat, nil, nil},
		{"motor:", RespMotorFormat, nil, nil},
		{"xyz", RespUnknown, nil, nil},
		{"", RespUnknown, nil, nil},
		{"\x00ping", RespUnknown, nil, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.payload, func(t *testing.T) {
			var out fakeOutput
			var motor []MotorCommand
			d := &Dispatcher{
				Output: &out,
				Motor: MotorHandlerFunc(func(cmd MotorCommand) {
					motor = append(motor, cmd)
				}),
			}
			require.Equal(t, tc.resp, d.Handle([]byte(tc.payload)))
			require.Equal(t, tc.levels, out.levels)
			require.Equal(t, tc.motor, motor)
		})
	}
}

func TestDispatcherWithoutCollaborators(t *testing.T) {
	var d Dispatcher
	require.Equal(t, RespLEDOK, d.Handle([]byte("led:on")))
	require.Equal(t, RespMotorOK, d.Handle([]byte("motor:1:1")))
}

func TestParse(t *testing.T) {
	cmd := Parse([]byte("motor:99999999999999999999:0"))
	require.Equal(t, KindMotor, cmd.Kind)
	require.NoError(t, cmd.Err)
	require.Equal(t, uint32(math.MaxUint32), cmd.Motor.Steps)
	require.False(t, cmd.Motor.Clockwise)

	cmd = Parse([]byte("motor:4294967295:1"))
	require.Equal(t, MotorCommand{Steps: math.MaxUint32, Clockwise: true}, cmd.Motor)

	cmd = Parse([]byte("motor:12"))
	require.Equal(t, ErrMotorFormat, cmd.Err)

	cmd = Parse([]byte("led:dim"))
	require.Equal(t, KindLED, cmd.Kind)
	require.Equal(t, ErrLEDState, cmd.Err)

	require.Equal(t, "unknown", Parse([]byte("status")).Kind.String())
}
