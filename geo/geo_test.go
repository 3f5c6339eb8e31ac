package geo_test

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"i4.energy/across/ltem/action"
	"i4.energy/across/ltem/geo"
)

func TestAddRejectsBadFences(t *testing.T) {
	tests := []struct {
		name  string
		fence geo.Geofence
	}{
		{"radius circle with lon2", geo.Geofence{Shape: geo.CircleRadius, Lat1: 45, Lon1: -93, Lat2: 500, Lon2: 1}},
		{"radius circle with point 4", geo.Geofence{Shape: geo.CircleRadius, Lat1: 45, Lon1: -93, Lat2: 500, Lon4: -93}},
		{"point circle with lat3", geo.Geofence{Shape: geo.CirclePoint, Lat1: 45, Lon1: -93, Lat2: 45.1, Lon2: -93, Lat3: 1}},
		{"triangle with lat4", geo.Geofence{Shape: geo.Triangle, Lat1: 1, Lon1: 1, Lat2: 2, Lon2: 2, Lat3: 3, Lon3: 3, Lat4: 4}},
		{"reporting mode", geo.Geofence{Mode: geo.ModeEnter, Shape: geo.CircleRadius, Lat1: 45, Lon1: -93, Lat2: 500}},
		{"unknown shape", geo.Geofence{Shape: geo.Shape(7), Lat1: 45, Lon1: -93}},
		{"latitude out of range", geo.Geofence{Shape: geo.CirclePoint, Lat1: 91, Lon1: -93, Lat2: 45, Lon2: -93}},
		{"longitude out of range", geo.Geofence{Shape: geo.CirclePoint, Lat1: 45, Lon1: -181, Lat2: 45, Lon2: -93}},
		{"negative radius", geo.Geofence{Shape: geo.CircleRadius, Lat1: 45, Lon1: -93, Lat2: -1}},
		{"radius too large", geo.Geofence{Shape: geo.CircleRadius, Lat1: 45, Lon1: -93, Lat2: geo.MaxRadius + 1}},
		{"not a number", geo.Geofence{Shape: geo.CirclePoint, Lat1: math.NaN(), Lon1: -93, Lat2: 45, Lon2: -93}},
		{"infinite unused value", geo.Geofence{Shape: geo.Quadrangle, Lat4: math.Inf(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No expectations: any dispatch fails the test.
			inv := action.NewMockInvoker(gomock.NewController(t))

			err := geo.Add(t.Context(), inv, tt.fence)
			assert.ErrorIs(t, err, action.ErrBadRequest)
			assert.Equal(t, action.BadRequest, action.CodeOf(err))
		})
	}
}

func TestAddRejectedFenceWritesNothing(t *testing.T) {
	port := &modemPort{}
	d := action.NewDispatcher(port, action.Config{})

	err := geo.Add(t.Context(), d, geo.Geofence{
		ID: 1, Shape: geo.CirclePoint, Lat1: 45, Lon1: -93, Lat2: 45, Lon2: -93, Lat3: 44,
	})
	assert.ErrorIs(t, err, action.ErrBadRequest)
	assert.Zero(t, port.written.Len())
}

func TestAddCommand(t *testing.T) {
	tests := []struct {
		name  string
		fence geo.Geofence
		want  string
	}{
		{
			name:  "radius circle",
			fence: geo.Geofence{ID: 1, Shape: geo.CircleRadius, Lat1: 44.975, Lon1: -93.2650, Lat2: 250},
			want:  `AT+QCFGEXT="addgeo",1,0,0,44.975000,-93.265000,250.000000`,
		},
		{
			name:  "single point circle",
			fence: geo.Geofence{ID: 2, Shape: geo.CircleRadius, Lat1: 45, Lon1: -93},
			want:  `AT+QCFGEXT="addgeo",2,0,0,45.000000,-93.000000,0.000000`,
		},
		{
			name:  "point circle",
			fence: geo.Geofence{ID: 2, Shape: geo.CirclePoint, Lat1: 45, Lon1: -93, Lat2: 45.01, Lon2: -93},
			want:  `AT+QCFGEXT="addgeo",2,0,1,45.000000,-93.000000,45.010000,-93.000000`,
		},
		{
			name:  "triangle",
			fence: geo.Geofence{ID: 3, Shape: geo.Triangle, Lat1: 1, Lon1: 2, Lat2: 3, Lon2: 4, Lat3: 5, Lon3: 6},
			want:  `AT+QCFGEXT="addgeo",3,0,2,1.000000,2.000000,3.000000,4.000000,5.000000,6.000000`,
		},
		{
			name: "quadrangle",
			fence: geo.Geofence{ID: 255, Shape: geo.Quadrangle,
				Lat1: -89.123456, Lon1: -179.654321, Lat2: -89, Lon2: -179, Lat3: -88, Lon3: -178, Lat4: -87, Lon4: -177},
			want: `AT+QCFGEXT="addgeo",255,0,3,-89.123456,-179.654321,-89.000000,-179.000000,-88.000000,-178.000000,-87.000000,-177.000000`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := geo.AddCommand(tt.fence)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), geo.MaxAddCommandLen)
			assert.LessOrEqual(t, len(got)+1, action.MaxCommandLen)
		})
	}
}

func TestSinglePointCircle(t *testing.T) {
	inv := action.NewMockInvoker(gomock.NewController(t))
	inv.EXPECT().
		Dispatch(gomock.Any(), gomock.Cond(func(cmd string) bool {
			return strings.HasSuffix(cmd, ",45.000000,-93.000000,0.000000") &&
				strings.Count(cmd, ",") == 6
		})).
		Return(action.Result{Code: action.Success, Final: "OK"})

	err := geo.Add(t.Context(), inv, geo.Geofence{
		ID: 4, Shape: geo.CircleRadius, Lat1: 45, Lon1: -93,
	})
	assert.NoError(t, err)
}

func TestDelete(t *testing.T) {
	t.Run("one dispatch", func(t *testing.T) {
		inv := action.NewMockInvoker(gomock.NewController(t))
		inv.EXPECT().
			Dispatch(gomock.Any(), `AT+QCFGEXT="deletegeo",5`).
			Return(action.Result{Code: action.Success, Final: "OK"}).
			Times(1)

		assert.NoError(t, geo.Delete(t.Context(), inv, 5))
	})

	t.Run("timeout propagates", func(t *testing.T) {
		inv := action.NewMockInvoker(gomock.NewController(t))
		inv.EXPECT().
			Dispatch(gomock.Any(), `AT+QCFGEXT="deletegeo",5`).
			Return(action.Result{Code: action.Timeout, Command: `AT+QCFGEXT="deletegeo",5`}).
			Times(1)

		err := geo.Delete(t.Context(), inv, 5)
		assert.ErrorIs(t, err, action.ErrTimeout)
		assert.Equal(t, action.Timeout, action.CodeOf(err))
	})

	t.Run("modem error", func(t *testing.T) {
		inv := action.NewMockInvoker(gomock.NewController(t))
		inv.EXPECT().
			Dispatch(gomock.Any(), gomock.Any()).
			Return(action.Result{Code: action.ProtocolError, Final: "+CME ERROR: 3"})

		err := geo.Delete(t.Context(), inv, 9)
		assert.ErrorIs(t, err, action.ErrProtocol)
		assert.Contains(t, err.Error(), "+CME ERROR: 3")
	})
}

// modemPort answers every write with reply.
type modemPort struct {
	reply   string
	written bytes.Buffer
	pending bytes.Buffer
}

func (p *modemPort) Write(b []byte) (int, error) {
	p.written.Write(b)
	p.pending.WriteString(p.reply)
	return len(b), nil
}

func (p *modemPort) Read(b []byte) (int, error) {
	if p.pending.Len() == 0 {
		return 0, nil
	}
	return p.pending.Read(b)
}

func TestQuery(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  geo.Position
		code  action.ResultCode
	}{
		{"inside", "\r\n+QCFGEXT: \"querygeo\",3,1\r\n\r\nOK\r\n", geo.PositionInside, action.Success},
		{"outside", "\r\n+QCFGEXT: \"querygeo\",3,2\r\n\r\nOK\r\n", geo.PositionOutside, action.Success},
		{"reported unknown", "\r\n+QCFGEXT: \"querygeo\",3,0\r\n\r\nOK\r\n", geo.PositionUnknown, action.Success},
		{"no payload", "\r\nOK\r\n", geo.PositionUnknown, action.Success},
		{"urc interleaved", "\r\n+QIURC: \"pdpdeact\",1\r\n+QCFGEXT: \"querygeo\",3,1\r\nOK\r\n", geo.PositionInside, action.Success},
		{"bad position", "\r\n+QCFGEXT: \"querygeo\",3,x\r\n\r\nOK\r\n", geo.PositionUnknown, action.ProtocolError},
		{"wrong fence", "\r\n+QCFGEXT: \"querygeo\",4,1\r\n\r\nOK\r\n", geo.PositionUnknown, action.ProtocolError},
		{"short payload", "\r\n+QCFGEXT: \"querygeo\",3\r\n\r\nOK\r\n", geo.PositionUnknown, action.ProtocolError},
		{"modem error", "\r\n+CME ERROR: 50\r\n", geo.PositionUnknown, action.ProtocolError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := &modemPort{reply: tt.reply}
			d := action.NewDispatcher(port, action.Config{PollInterval: time.Millisecond})

			pos, err := geo.Query(t.Context(), d, 3)
			assert.Equal(t, tt.want, pos)
			assert.Equal(t, tt.code, action.CodeOf(err))
			assert.Equal(t, "AT+QCFGEXT=\"querygeo\",3\r", port.written.String())
		})
	}

	t.Run("timeout", func(t *testing.T) {
		port := &modemPort{}
		d := action.NewDispatcher(port, action.Config{
			DefaultTimeout: 20 * time.Millisecond,
			PollInterval:   time.Millisecond,
		})

		pos, err := geo.Query(t.Context(), d, 3)
		assert.Equal(t, geo.PositionUnknown, pos)
		assert.ErrorIs(t, err, action.ErrTimeout)
	})
}

func TestShapeNames(t *testing.T) {
	for _, s := range []geo.Shape{geo.CircleRadius, geo.CirclePoint, geo.Triangle, geo.Quadrangle} {
		got, err := geo.ParseShape(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := geo.ParseShape("hexagon")
	assert.Error(t, err)
	assert.True(t, strings.HasPrefix(geo.Shape(9).String(), "Shape("))
	assert.Equal(t, "inside", geo.PositionInside.String())
}
