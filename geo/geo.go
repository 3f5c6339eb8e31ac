// Package geo manages the modem's geofences through the AT+QCFGEXT
// addgeo, deletegeo and querygeo operations.
package geo

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"i4.energy/across/ltem/action"
)

// Mode selects how the modem reports geofence events.
type Mode int

const (
	// ModeNoURC disables event reporting. It is the only supported mode.
	ModeNoURC Mode = iota
	ModeEnter
	ModeExit
	ModeEnterExit
)

// Shape is the geometry of a geofence.
type Shape int

const (
	// CircleRadius is a circle around (Lat1, Lon1) with a radius in meters
	// carried in Lat2. A zero radius fences the single point.
	CircleRadius Shape = iota
	// CirclePoint is a circle around (Lat1, Lon1) passing through
	// (Lat2, Lon2).
	CirclePoint
	// Triangle has corners at points 1 to 3.
	Triangle
	// Quadrangle has corners at points 1 to 4.
	Quadrangle
)

func (s Shape) String() string {
	switch s {
	case CircleRadius:
		return "circle-radius"
	case CirclePoint:
		return "circle-point"
	case Triangle:
		return "triangle"
	case Quadrangle:
		return "quadrangle"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// ParseShape parses the names printed by Shape.String.
func ParseShape(s string) (Shape, error) {
	for sh := CircleRadius; sh <= Quadrangle; sh++ {
		if sh.String() == s {
			return sh, nil
		}
	}
	return 0, fmt.Errorf("unknown geofence shape %q", s)
}

// values is the number of coordinate values the shape uses.
func (s Shape) values() int {
	switch s {
	case CircleRadius:
		return 3
	case CirclePoint:
		return 4
	case Triangle:
		return 6
	case Quadrangle:
		return 8
	default:
		return 0
	}
}

// Position is the modem's view of where it is relative to a geofence.
type Position int

const (
	PositionUnknown Position = iota
	PositionInside
	PositionOutside
)

func (p Position) String() string {
	switch p {
	case PositionUnknown:
		return "unknown"
	case PositionInside:
		return "inside"
	case PositionOutside:
		return "outside"
	default:
		return fmt.Sprintf("Position(%d)", int(p))
	}
}

// MaxRadius is the largest CircleRadius radius in meters.
const MaxRadius = 100000

const (
	addPrefix = `AT+QCFGEXT="addgeo",`
	// coordWidth is the widest formatted value: ",-180.000000", or the
	// radius ",100000.000000".
	coordWidth = len(",100000.000000")

	// MaxAddCommandLen is the length of the longest addgeo command: a
	// three digit id, mode, shape and eight coordinate values.
	MaxAddCommandLen = len(addPrefix) + len("255,3,3") + 8*coordWidth
)

// Geofence describes one fence. Coordinates a shape does not use must be
// zero.
type Geofence struct {
	ID    uint8
	Mode  Mode
	Shape Shape
	Lat1  float64
	Lon1  float64
	Lat2  float64
	Lon2  float64
	Lat3  float64
	Lon3  float64
	Lat4  float64
	Lon4  float64
}

func (g Geofence) coords() []float64 {
	return []float64{g.Lat1, g.Lon1, g.Lat2, g.Lon2, g.Lat3, g.Lon3, g.Lat4, g.Lon4}
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", action.ErrBadRequest, fmt.Sprintf(format, args...))
}

// Validate checks the fence against what the modem accepts. The returned
// error wraps action.ErrBadRequest.
func (g Geofence) Validate() error {
	if g.Mode != ModeNoURC {
		return badRequest("geofence mode %d not supported", g.Mode)
	}
	n := g.Shape.values()
	if n == 0 {
		return badRequest("unknown geofence shape %d", g.Shape)
	}

	coords := g.coords()
	for i, v := range coords {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return badRequest("coordinate %d is not finite", i+1)
		}
		if i >= n && v != 0 {
			return badRequest("coordinate %d is not used by %v and must be zero", i+1, g.Shape)
		}
	}

	for i := 0; i < n; i += 2 {
		if g.Shape == CircleRadius && i == 2 {
			if coords[i] < 0 || coords[i] > MaxRadius {
				return badRequest("radius %v out of range", coords[i])
			}
			continue
		}
		if coords[i] < -90 || coords[i] > 90 {
			return badRequest("latitude %v out of range", coords[i])
		}
		if coords[i+1] < -180 || coords[i+1] > 180 {
			return badRequest("longitude %v out of range", coords[i+1])
		}
	}
	return nil
}

// AddCommand formats the addgeo command for g.
func AddCommand(g Geofence) (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(MaxAddCommandLen)
	fmt.Fprintf(&b, "%s%d,%d,%d", addPrefix, g.ID, g.Mode, g.Shape)
	for _, v := range g.coords()[:g.Shape.values()] {
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(v, 'f', 6, 64))
	}
	if b.Len() > MaxAddCommandLen {
		return "", badRequest("addgeo command exceeds %d bytes", MaxAddCommandLen)
	}
	return b.String(), nil
}

// Add creates geofence g on the modem. An invalid fence is rejected before
// anything is sent.
func Add(ctx context.Context, inv action.Invoker, g Geofence) error {
	cmd, err := AddCommand(g)
	if err != nil {
		return err
	}
	return inv.Dispatch(ctx, cmd).Err()
}

// Delete removes geofence id.
func Delete(ctx context.Context, inv action.Invoker, id uint8) error {
	return inv.Dispatch(ctx, fmt.Sprintf(`AT+QCFGEXT="deletegeo",%d`, id)).Err()
}

const queryPrefix = `+QCFGEXT: "querygeo",`

// Query returns the position relative to geofence id. A successful response
// without a querygeo line yields PositionUnknown; a querygeo line that
// cannot be read is a protocol error.
func Query(ctx context.Context, inv action.Invoker, id uint8) (Position, error) {
	res := inv.Dispatch(ctx, fmt.Sprintf(`AT+QCFGEXT="querygeo",%d`, id),
		action.WithParser(queryParser(id)))
	if err := res.Err(); err != nil {
		return PositionUnknown, err
	}
	pos, ok := res.Value.(Position)
	if !ok {
		return PositionUnknown, nil
	}
	return pos, nil
}

func queryParser(id uint8) action.Parser {
	return action.ParserFunc(func(lines []string) (any, error) {
		for _, line := range lines {
			payload, ok := strings.CutPrefix(line, queryPrefix)
			if !ok {
				continue
			}
			fields, err := action.Fields(payload)
			if err != nil {
				return nil, err
			}
			if len(fields) != 2 {
				return nil, fmt.Errorf("querygeo: want 2 fields, got %q", payload)
			}
			gotID, err := strconv.Atoi(fields[0])
			if err != nil || gotID != int(id) {
				return nil, fmt.Errorf("querygeo: response for fence %q, want %d", fields[0], id)
			}
			pos, err := strconv.Atoi(fields[1])
			if err != nil || pos < int(PositionUnknown) || pos > int(PositionOutside) {
				return nil, fmt.Errorf("querygeo: bad position %q", fields[1])
			}
			return Position(pos), nil
		}
		return PositionUnknown, nil
	})
}
