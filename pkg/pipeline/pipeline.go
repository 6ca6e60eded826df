// Package pipeline wires the time grid, the solar position engine and the
// tracker solver into a single request-scoped computation.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/suntrack/pkg/calcerr"
	"github.com/chrissnell/suntrack/pkg/solar"
	"github.com/chrissnell/suntrack/pkg/timegrid"
	"github.com/chrissnell/suntrack/pkg/tracker"
)

// Compatibility defaults for callers that omit parameters
const (
	DefaultAltitude    = 254.0
	DefaultTimeZone    = "America/Fortaleza"
	DefaultAxisTilt    = 0.0
	DefaultAxisAzimuth = 180.0
	DefaultMaxAngle    = 55.0
	DefaultRestAngle   = 0.0
	DefaultGCR         = 0.3014
)

// chunkSize is the number of instants evaluated per unit of work; one day at
// the default step
const chunkSize = 288

// Request is everything needed to compute one window of tracker angles
type Request struct {
	Site     solar.Site
	Start    string // local wall clock, timegrid.Layout
	End      string
	Step     time.Duration
	Geometry tracker.Geometry
}

// DefaultRequest returns a request carrying the compatibility defaults. The
// caller still has to provide latitude, longitude, start and end.
func DefaultRequest() Request {
	return Request{
		Site: solar.Site{
			Altitude: DefaultAltitude,
			TimeZone: DefaultTimeZone,
		},
		Step: timegrid.DefaultStep,
		Geometry: tracker.Geometry{
			AxisTilt:            DefaultAxisTilt,
			AxisAzimuth:         DefaultAxisAzimuth,
			MaxAngle:            DefaultMaxAngle,
			RestAngle:           DefaultRestAngle,
			GroundCoverageRatio: DefaultGCR,
		},
	}
}

// Options tune how a request is executed without changing its result
type Options struct {
	// Workers is the number of chunks evaluated concurrently; <= 1 runs sequentially
	Workers int
	// MaxPoints rejects windows with more instants than this; 0 leaves only
	// the timegrid.MaxInstants ceiling
	MaxPoints int
}

// ResultRow is one output instant
type ResultRow struct {
	Timestamp    time.Time `json:"timestamp"`
	Zenith       float64   `json:"zenith"`
	Azimuth      float64   `json:"azimuth"`
	TrackerAngle float64   `json:"tracker_theta"`
}

// Trace keeps every intermediate stage of a run, index-aligned
type Trace struct {
	Request   Request
	Times     []time.Time
	Positions []solar.Position
	Samples   []tracker.Sample
}

// Rows assembles the trace into output rows
func (t *Trace) Rows() ([]ResultRow, error) {
	return Assemble(t.Times, t.Positions, t.Samples)
}

// Compute runs the full chain and returns one row per grid instant. Either the
// whole sequence or an error is returned, never a partial result.
func Compute(ctx context.Context, req Request, opts Options) ([]ResultRow, error) {
	trace, err := Run(ctx, req, opts)
	if err != nil {
		return nil, err
	}
	return trace.Rows()
}

// Run evaluates the request and returns every intermediate stage
func Run(ctx context.Context, req Request, opts Options) (*Trace, error) {
	if err := req.Site.Validate(); err != nil {
		return nil, err
	}
	if err := req.Geometry.Validate(); err != nil {
		return nil, err
	}
	if req.Step <= 0 {
		return nil, calcerr.Config("step", "must be positive")
	}

	loc, err := timegrid.LoadLocation(req.Site.TimeZone)
	if err != nil {
		return nil, err
	}
	from, err := timegrid.ParseWallClock("start", req.Start, loc)
	if err != nil {
		return nil, err
	}
	to, err := timegrid.ParseWallClock("end", req.End, loc)
	if err != nil {
		return nil, err
	}

	n, err := timegrid.Count(from, to, req.Step)
	if err != nil {
		return nil, err
	}
	if opts.MaxPoints > 0 && n > opts.MaxPoints {
		return nil, calcerr.Config("window", fmt.Sprintf("%d instants exceeds the limit of %d", n, opts.MaxPoints))
	}

	// Range enforces timegrid.MaxInstants when no tighter limit is set
	times, err := timegrid.Range(from, to, req.Step)
	if err != nil {
		return nil, err
	}

	trace := &Trace{
		Request:   req,
		Times:     times,
		Positions: make([]solar.Position, len(times)),
		Samples:   make([]tracker.Sample, len(times)),
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for lo := 0; lo < len(times); lo += chunkSize {
		lo, hi := lo, min(lo+chunkSize, len(times))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return trace.evaluate(lo, hi)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A cancellation that raced the last chunk still fails the request
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return trace, nil
}

// evaluate fills positions and samples for times[lo:hi]. Chunks never share
// indices, so concurrent calls need no locking.
func (t *Trace) evaluate(lo, hi int) error {
	positions, err := solar.Positions(t.Times[lo:hi], t.Request.Site)
	if err != nil {
		return err
	}
	samples, err := tracker.Solve(positions, t.Request.Geometry)
	if err != nil {
		return err
	}
	copy(t.Positions[lo:hi], positions)
	copy(t.Samples[lo:hi], samples)
	return nil
}

// Assemble zips the three stages by position
func Assemble(times []time.Time, positions []solar.Position, samples []tracker.Sample) ([]ResultRow, error) {
	if len(times) != len(positions) || len(times) != len(samples) {
		return nil, calcerr.Computation("result assembly",
			"length mismatch: %d instants, %d positions, %d samples", len(times), len(positions), len(samples))
	}

	rows := make([]ResultRow, len(times))
	for i := range times {
		rows[i] = ResultRow{
			Timestamp:    times[i],
			Zenith:       positions[i].ApparentZenith,
			Azimuth:      positions[i].Azimuth,
			TrackerAngle: samples[i].Theta,
		}
	}
	return rows, nil
}
