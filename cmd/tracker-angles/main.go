// tracker-angles prints the sun position and single-axis tracker angle for
// every step of a local time window.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/chrissnell/suntrack/pkg/config"
	"github.com/chrissnell/suntrack/pkg/pipeline"
)

func main() {
	req := pipeline.DefaultRequest()
	g := &req.Geometry

	siteName := flag.String("site", "", "Use a site preset from -config instead of the location flags")
	cfgFile := flag.String("config", "config.yaml", "Configuration source holding site presets")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' or 'sqlite'")
	lat := flag.Float64("lat", 0, "Latitude in degrees, north positive")
	lon := flag.Float64("lon", 0, "Longitude in degrees, east positive")
	flag.Float64Var(&req.Site.Altitude, "altitude", req.Site.Altitude, "Altitude in meters")
	flag.StringVar(&req.Site.TimeZone, "tz", req.Site.TimeZone, "IANA time zone of start and end")
	flag.StringVar(&req.Start, "start", "", "Local start, e.g. \"2024-06-21 00:00\" (required)")
	flag.StringVar(&req.End, "end", "", "Local end, inclusive (required)")
	step := flag.Duration("step", req.Step, "Sampling step")
	flag.Float64Var(&g.AxisTilt, "axis-tilt", g.AxisTilt, "Axis tilt from horizontal, degrees")
	flag.Float64Var(&g.AxisAzimuth, "axis-azimuth", g.AxisAzimuth, "Axis azimuth clockwise from north, degrees")
	flag.Float64Var(&g.MaxAngle, "max-angle", g.MaxAngle, "Mechanical rotation limit, degrees")
	flag.Float64Var(&g.RestAngle, "rest-angle", g.RestAngle, "Angle held while the sun is down, degrees")
	flag.Float64Var(&g.GroundCoverageRatio, "gcr", g.GroundCoverageRatio, "Ground coverage ratio; 0 disables backtracking")
	flag.Float64Var(&g.CrossAxisTilt, "cross-axis-tilt", g.CrossAxisTilt, "Ground slope across the rows, degrees")
	workers := flag.Int("workers", 1, "Parallel evaluation workers")
	maxPoints := flag.Int("max-points", config.DefaultMaxPoints, "Largest number of instants to compute")
	format := flag.String("format", "table", "Output format: table, csv or json")
	summary := flag.Bool("summary", false, "Print a daylight and angle summary after the rows")
	flag.Parse()

	if req.Start == "" || req.End == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -lat <deg> -lon <deg> -start <local time> -end <local time>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *siteName != "" {
		site, err := loadSite(*cfgFile, *cfgBackend, *siteName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading site %s: %v\n", *siteName, err)
			os.Exit(1)
		}
		req.Site = site.Site()
		req.Geometry = site.Geometry()
	} else {
		req.Site.Latitude = *lat
		req.Site.Longitude = *lon
	}
	req.Step = *step

	trace, err := pipeline.Run(context.Background(), req, pipeline.Options{Workers: *workers, MaxPoints: *maxPoints})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	rows, err := trace.Rows()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch *format {
	case "table":
		err = writeTable(rows)
	case "csv":
		err = writeCSV(rows)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(rows)
	default:
		err = fmt.Errorf("unknown format %q", *format)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *summary {
		printSummary(pipeline.Summarize(trace))
	}
}

func loadSite(cfgFile, backend, name string) (config.SiteData, error) {
	provider, err := config.Open(cfgFile, backend)
	if err != nil {
		return config.SiteData{}, err
	}
	defer provider.Close()

	cfg, err := provider.LoadConfig()
	if err != nil {
		return config.SiteData{}, err
	}
	site, ok := cfg.FindSite(name)
	if !ok {
		return config.SiteData{}, fmt.Errorf("no such site")
	}
	return site, nil
}

func writeTable(rows []pipeline.ResultRow) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "timestamp\tzenith\tazimuth\ttracker_theta\t")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t\n", r.Timestamp.Format(time.RFC3339), r.Zenith, r.Azimuth, r.TrackerAngle)
	}
	return w.Flush()
}

func writeCSV(rows []pipeline.ResultRow) error {
	w := csv.NewWriter(os.Stdout)
	if err := w.Write([]string{"timestamp", "zenith", "azimuth", "tracker_theta"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Timestamp.Format(time.RFC3339),
			strconv.FormatFloat(r.Zenith, 'f', -1, 64),
			strconv.FormatFloat(r.Azimuth, 'f', -1, 64),
			strconv.FormatFloat(r.TrackerAngle, 'f', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func printSummary(s pipeline.Summary) {
	fmt.Fprintf(os.Stderr, "\nSummary\n")
	fmt.Fprintf(os.Stderr, "  Samples:      %d (%d daylight, %d backtracked, %d clamped)\n",
		s.Samples, s.DaylightSamples, s.BacktrackedSamples, s.ClampedSamples)
	if s.Sunrise != nil && s.Sunset != nil {
		fmt.Fprintf(os.Stderr, "  Sunrise:      %s\n", s.Sunrise.Format("15:04"))
		fmt.Fprintf(os.Stderr, "  Sunset:       %s\n", s.Sunset.Format("15:04"))
	} else {
		fmt.Fprintf(os.Stderr, "  Sunrise:      none (polar day or night)\n")
	}
	if s.TrackerAngle != nil {
		fmt.Fprintf(os.Stderr, "  Tracker θ:    min %.2f° max %.2f° mean %.2f°\n",
			s.TrackerAngle.Min, s.TrackerAngle.Max, s.TrackerAngle.Mean)
	}
	if s.Zenith != nil {
		fmt.Fprintf(os.Stderr, "  Zenith:       min %.2f°\n", s.Zenith.Min)
	}
}
