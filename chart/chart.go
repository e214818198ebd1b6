package chart

import (
	"math"
	"sort"
	"time"

	"flashcat.cloud/cpudash/cloudwatch"
)

// TimeLayout renders day/month hour:minute, e.g. 09/03 14:20.
const TimeLayout = "02/01 15:04"

// Series is the /api/cpu payload: two parallel arrays ready for a line chart.
type Series struct {
	InstanceID string    `json:"instance_id"`
	IPAddress  string    `json:"ip_address"`
	Timestamps []string  `json:"timestamps"`
	CPUValues  []float64 `json:"cpu_values"`
}

// Shape orders samples by time and formats them for display. samples is not
// modified. A nil loc means UTC.
func Shape(instanceID, ip string, samples []cloudwatch.Sample, loc *time.Location) Series {
	if loc == nil {
		loc = time.UTC
	}

	sorted := make([]cloudwatch.Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	s := Series{
		InstanceID: instanceID,
		IPAddress:  ip,
		Timestamps: make([]string, 0, len(sorted)),
		CPUValues:  make([]float64, 0, len(sorted)),
	}
	for _, sample := range sorted {
		s.Timestamps = append(s.Timestamps, sample.Timestamp.In(loc).Format(TimeLayout))
		s.CPUValues = append(s.CPUValues, Round(sample.Average, 2))
	}
	return s
}

// Round rounds v to places decimals, halves away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
