// Package config loads tracking jobs from YAML files.
package config

import (
	"image"
	"os"

	"camtrack/internal/match"
	"camtrack/internal/track"
	"camtrack/pkg/geometry"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Point is one point to track, in reference frame pixels.
type Point struct {
	ID    string      `yaml:"id"`
	X     float64     `yaml:"x"`
	Y     float64     `yaml:"y"`
	Guess *[2]float64 `yaml:"guess,omitempty"` // expected position in the current frame
}

// Job describes a tracking run between two frames.
type Job struct {
	Reference string `yaml:"reference"`
	Current   string `yaml:"current"`

	PatchSize     int     `yaml:"patch_size"`
	SearchRadius  float64 `yaml:"search_radius"`
	RotationRange float64 `yaml:"rotation_range"`

	Precision        PrecisionConfig  `yaml:"precision"`
	InitialPrecision *PrecisionConfig `yaml:"initial_precision,omitempty"`

	Method         string `yaml:"method"`
	Workers        int    `yaml:"workers"`
	ParallelAngles bool   `yaml:"parallel_angles"`
	MaxCanonical   int    `yaml:"max_canonical"`

	Points []Point `yaml:"points"`
}

// PrecisionConfig mirrors match.Precision.
type PrecisionConfig struct {
	X   float64 `yaml:"x"`
	Y   float64 `yaml:"y"`
	Rot float64 `yaml:"rot"`
}

func (p PrecisionConfig) toMatch() match.Precision {
	return match.Precision{X: p.X, Y: p.Y, Rot: p.Rot}
}

// Default returns a job with every tunable set.
func Default() Job {
	return Job{
		PatchSize:     41,
		SearchRadius:  10,
		RotationRange: 0,
		Precision:     PrecisionConfig{X: 0.1, Y: 0.1, Rot: 0.5},
		Method:        match.CCorrNormed.String(),
		MaxCanonical:  256,
	}
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(b []byte) (Job, error) {
	job := Default()
	if err := yaml.Unmarshal(b, &job); err != nil {
		return Job{}, errors.Wrap(err, "decode job")
	}
	if err := job.Validate(); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Load reads and parses a job file.
func Load(path string) (Job, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Job{}, errors.Wrapf(err, "read job %s", path)
	}
	job, err := Parse(b)
	if err != nil {
		return Job{}, errors.WithMessagef(err, "job %s", path)
	}
	return job, nil
}

// Validate checks the job for values the matcher would reject.
func (j Job) Validate() error {
	if j.PatchSize < 3 {
		return errors.Errorf("patch_size %d must be at least 3", j.PatchSize)
	}
	if j.SearchRadius < 0 {
		return errors.Errorf("search_radius %g is negative", j.SearchRadius)
	}
	if j.RotationRange < 0 || j.RotationRange > 180 {
		return errors.Errorf("rotation_range %g outside [0, 180]", j.RotationRange)
	}
	if j.Precision.X <= 0 || j.Precision.Y <= 0 {
		return errors.Errorf("precision x and y must be positive, got %g and %g", j.Precision.X, j.Precision.Y)
	}
	if j.RotationRange > 0 && j.Precision.Rot <= 0 {
		return errors.New("precision rot must be positive when rotation_range is set")
	}
	if _, err := match.ParseMethod(j.Method); err != nil {
		return err
	}
	if j.Workers < 0 {
		return errors.Errorf("workers %d is negative", j.Workers)
	}
	if j.MaxCanonical != 0 && j.MaxCanonical < 8 {
		return errors.Errorf("max_canonical %d below 8", j.MaxCanonical)
	}
	seen := make(map[string]bool, len(j.Points))
	for i, p := range j.Points {
		if p.ID == "" {
			return errors.Errorf("point %d has no id", i)
		}
		if seen[p.ID] {
			return errors.Errorf("duplicate point id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// Settings converts the job into tracker settings.
func (j Job) Settings() track.Settings {
	method, _ := match.ParseMethod(j.Method)
	s := track.Settings{
		PatchSize:     image.Pt(j.PatchSize, j.PatchSize),
		SearchRadius:  j.SearchRadius,
		RotationRange: j.RotationRange,
		Precision:     j.Precision.toMatch(),
		Workers:       j.Workers,
		Match: match.Options{
			Method:       method,
			MaxCanonical: j.MaxCanonical,
			Parallel:     j.ParallelAngles,
		},
	}
	if j.InitialPrecision != nil {
		s.Match.InitialPrecision = j.InitialPrecision.toMatch()
	}
	return s
}

// Targets converts the job's points into tracker targets.
func (j Job) Targets() []track.Target {
	out := make([]track.Target, len(j.Points))
	for i, p := range j.Points {
		out[i] = track.Target{ID: p.ID, Ref: geometry.Pt(p.X, p.Y)}
		if p.Guess != nil {
			g := geometry.Pt(p.Guess[0], p.Guess[1])
			out[i].Guess = &g
		}
	}
	return out
}
