// Command matchtest tracks the points of a YAML job from a reference frame
// into a current frame and prints per-point results.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"camtrack/internal/config"
	"camtrack/internal/match"
	"camtrack/internal/track"
	"camtrack/internal/version"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

func main() {
	jobPath := flag.String("c", "", "Path to job YAML")
	refPath := flag.String("ref", "", "Reference frame, overrides the job's reference")
	curPath := flag.String("cur", "", "Current frame, overrides the job's current")
	verbose := flag.Bool("v", false, "Debug logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *jobPath == "" {
		fmt.Println("Usage: matchtest -c <job.yaml> [-ref <image>] [-cur <image>] [-v]")
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	job, err := config.Load(*jobPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load job: %v\n", err)
		os.Exit(1)
	}
	if *refPath != "" {
		job.Reference = *refPath
	} else {
		job.Reference = relativeTo(*jobPath, job.Reference)
	}
	if *curPath != "" {
		job.Current = *curPath
	} else {
		job.Current = relativeTo(*jobPath, job.Current)
	}

	ref, err := loadFrame(job.Reference)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load reference: %v\n", err)
		os.Exit(1)
	}
	defer ref.Close()
	cur, err := loadFrame(job.Current)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load current: %v\n", err)
		os.Exit(1)
	}
	defer cur.Close()

	fmt.Printf("Reference: %s %v\n", job.Reference, ref.Size())
	fmt.Printf("Current:   %s %v\n", job.Current, cur.Size())
	fmt.Printf("Patch %d px, search ±%.1f px, rotation ±%.1f°, precision %v, method %s\n",
		job.PatchSize, job.SearchRadius, job.RotationRange, job.Precision, job.Method)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tracker := track.New(job.Settings(), logger)
	results, err := tracker.Track(ctx, ref, cur, job.Targets())
	if err != nil && results == nil {
		fmt.Fprintf(os.Stderr, "Tracking failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n%-12s %10s %10s %10s %10s %9s %8s %6s %10s\n",
		"ID", "X", "Y", "dX", "dY", "Rot", "Score", "Levels", "Time")
	fmt.Println(strings.Repeat("-", 93))
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("%-12s %s\n", r.Target.ID, failureReason(r.Err))
			continue
		}
		m := r.Match
		fmt.Printf("%-12s %10.3f %10.3f %10.3f %10.3f %9.3f %8.4f %6d %10v\n",
			r.Target.ID, m.X, m.Y, r.Displacement.X, r.Displacement.Y,
			m.Rotation, m.Score, m.Levels, m.Timing.Total.Round(time.Microsecond))
	}

	fmt.Printf("\n%s\n", track.Summarize(results))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Interrupted: %v\n", err)
		os.Exit(1)
	}
}

func relativeTo(jobPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(jobPath), p)
}

func loadFrame(path string) (*match.Image, error) {
	if path == "" {
		return nil, errors.New("no path given")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return match.FromGoImage(img)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, match.ErrSearchFailure):
		return "search failed: " + err.Error()
	case errors.Is(err, match.ErrInvalidInput):
		return "invalid input: " + err.Error()
	default:
		return "error: " + err.Error()
	}
}
