package track

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the successful results of one Track call.
type Summary struct {
	Points         int
	Failed         int
	MeanScore      float64
	MinScore       float64
	MeanDisplace   float64 // mean displacement magnitude, pixels
	StdDevDisplace float64
	MaxDisplace    float64
	MeanRotation   float64
	MeanMatchTime  time.Duration
}

// Summarize computes Summary over results.
func Summarize(results []Result) Summary {
	s := Summary{Points: len(results)}

	var scores, displace, rotation, times []float64
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
			continue
		}
		scores = append(scores, r.Match.Score)
		displace = append(displace, r.Match.Point().Distance(r.Target.Ref))
		rotation = append(rotation, r.Match.Rotation)
		times = append(times, float64(r.Match.Timing.Total))
	}
	if len(scores) == 0 {
		return s
	}

	s.MeanScore = stat.Mean(scores, nil)
	s.MinScore = floats.Min(scores)
	s.MeanDisplace = stat.Mean(displace, nil)
	if len(displace) > 1 {
		s.StdDevDisplace = stat.StdDev(displace, nil)
	}
	s.MaxDisplace = floats.Max(displace)
	s.MeanRotation = stat.Mean(rotation, nil)
	s.MeanMatchTime = time.Duration(stat.Mean(times, nil))
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d points, %d failed, score mean %.4f min %.4f, displacement mean %.3f±%.3f max %.3f px, rotation mean %.3f°, %v per point",
		s.Points, s.Failed, s.MeanScore, s.MinScore,
		s.MeanDisplace, s.StdDevDisplace, s.MaxDisplace, s.MeanRotation, s.MeanMatchTime)
}
