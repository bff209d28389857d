package bft

import (
	"fmt"
	"math"
	"sort"
)

// statisticalDetector flags z-score outliers in frequency, latency,
// participation and vote consistency against the window's running
// mean/stddev.
type statisticalDetector struct{}

func (statisticalDetector) Detect(samples []BehaviorSample) []Anomaly {
	if len(samples) < 2 {
		return nil
	}
	var anomalies []Anomaly

	freq := extract(samples, func(s BehaviorSample) float64 { return s.MessageFreq })
	lat := extract(samples, func(s BehaviorSample) float64 { return s.Latency })
	part := extract(samples, func(s BehaviorSample) float64 { return s.Participation })
	vote := extract(samples, func(s BehaviorSample) float64 { return s.VoteConsistency })

	latestIdx := len(samples) - 1
	if z := zscore(freq, latestIdx); math.Abs(z) > 3.0 {
		anomalies = append(anomalies, Anomaly{Category: AbnormalFrequency, Score: math.Abs(z)})
	}
	if z := zscore(lat, latestIdx); math.Abs(z) > 3.0 {
		anomalies = append(anomalies, Anomaly{Category: InconsistentTiming, Score: math.Abs(z)})
	}
	if z := zscore(part, latestIdx); math.Abs(z) > 2.5 {
		anomalies = append(anomalies, Anomaly{Category: ConsensusViolation, Score: math.Abs(z)})
	}
	if z := zscore(vote, latestIdx); math.Abs(z) > 2.0 {
		anomalies = append(anomalies, Anomaly{Category: VoteManipulation, Score: math.Abs(z)})
	}
	return anomalies
}

func extract(samples []BehaviorSample, f func(BehaviorSample) float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = f(s)
	}
	return out
}

func meanStddev(xs []float64) (mean, stddev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		stddev += (x - mean) * (x - mean)
	}
	stddev = math.Sqrt(stddev / float64(len(xs)))
	return mean, stddev
}

func zscore(xs []float64, idx int) float64 {
	mean, stddev := meanStddev(xs)
	if stddev == 0 {
		return 0
	}
	return (xs[idx] - mean) / stddev
}

// patternDetector derives a canonical string from quantized features,
// tracks how often each pattern recurs in the window, and flags
// patterns that dominate the window or match a known-bad set.
type patternDetector struct {
	knownBad map[string]bool
}

func newPatternDetector(knownBad []string) *patternDetector {
	m := make(map[string]bool, len(knownBad))
	for _, p := range knownBad {
		m[p] = true
	}
	return &patternDetector{knownBad: m}
}

func (d *patternDetector) Detect(samples []BehaviorSample) []Anomaly {
	if len(samples) == 0 {
		return nil
	}
	counts := make(map[string]int, len(samples))
	for _, s := range samples {
		counts[quantizePattern(s)]++
	}

	var anomalies []Anomaly
	latest := quantizePattern(samples[len(samples)-1])
	if d.knownBad[latest] {
		anomalies = append(anomalies, Anomaly{Category: CoordinationBehavior, Score: 1.0})
	}
	if ratio := float64(counts[latest]) / float64(len(samples)); ratio > 0.5 {
		anomalies = append(anomalies, Anomaly{Category: NetworkAnomaly, Score: ratio})
	}
	return anomalies
}

// quantizePattern buckets a sample's features into a small alphabet so
// near-identical behavior hashes to the same canonical string.
func quantizePattern(s BehaviorSample) string {
	bucket := func(v float64) int { return int(v * 4) } // 0..4 buckets
	return fmt.Sprintf("%d:%d:%d:%d", bucket(s.MessageFreq), bucket(s.Latency), bucket(s.Participation), bucket(s.NetworkActivity))
}

// mlLiteDetector scores a sample by its k-NN distance to the rest of
// the window, flagging points that sit far from their neighbors.
type mlLiteDetector struct {
	k int
}

func newMLLiteDetector() *mlLiteDetector { return &mlLiteDetector{k: 5} }

func (d *mlLiteDetector) Detect(samples []BehaviorSample) []Anomaly {
	if len(samples) < d.k+1 {
		return nil
	}
	latest := samples[len(samples)-1]
	dists := make([]float64, 0, len(samples)-1)
	for _, s := range samples[:len(samples)-1] {
		dists = append(dists, featureDistance(latest, s))
	}
	sort.Float64s(dists)

	knn := dists[:d.k]
	var sum float64
	for _, d := range knn {
		sum += d
	}
	avg := sum / float64(d.k)

	normalized := avg / (1 + avg) // squashed into [0,1)
	if normalized > 0.7 {
		return []Anomaly{{Category: ContentAnomaly, Score: normalized}}
	}
	return nil
}

func featureDistance(a, b BehaviorSample) float64 {
	d := func(x, y float64) float64 { return (x - y) * (x - y) }
	sum := d(a.MessageFreq, b.MessageFreq) + d(a.Latency, b.Latency) + d(a.Size, b.Size) +
		d(a.Participation, b.Participation) + d(a.VoteConsistency, b.VoteConsistency) +
		d(a.NetworkActivity, b.NetworkActivity) + d(a.ResourceUsage, b.ResourceUsage)
	return math.Sqrt(sum)
}
