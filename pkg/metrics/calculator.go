package metrics

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/archlens/archlens/pkg/errors"
	"github.com/archlens/archlens/pkg/geometry"
	"github.com/archlens/archlens/pkg/layout"
)

// IdealCrossingAngle is the target angle in degrees for edge crossings.
// Near-orthogonal crossings are visually clearer than near-parallel ones;
// 70 degrees is the empirical sweet spot from the graph-drawing literature.
const IdealCrossingAngle = 70.0

// OcclusionEpsilon is the minimum overlap area for two node bounding boxes
// to count as occluding. Filters out boxes that merely share a border.
const OcclusionEpsilon = 1e-6

// occlusionPenalty is the overall-score deduction per occluding node pair.
// Occlusion is not one of the four weighted primaries, but any overlap must
// strictly lower the score of an otherwise identical layout.
const occlusionPenalty = 0.05

// Calculate evaluates a layout and returns its quality report. The layout is
// read-only; the report is freshly allocated. Deterministic for identical
// input: all iteration follows the order of the node and edge slices.
//
// Degenerate inputs are vacuously perfect rather than NaN: zero edges yield
// 1 for all four primary metrics, and nodes with fewer than two incident
// edges do not participate in angular resolution.
func Calculate(l *layout.Layout, strategy layout.LayoutStrategy, category layout.DiagramCategory) (*LayoutQualityReport, error) {
	start := time.Now()

	weights, err := WeightsFor(category)
	if err != nil {
		return nil, err
	}
	if !strategy.Valid() {
		return nil, errors.New(errors.ErrCodeUnknownStrategy, "unknown layout strategy %q", strategy)
	}
	if err := layout.Validate(l); err != nil {
		return nil, err
	}

	r := &LayoutQualityReport{
		Category:  category,
		Strategy:  strategy,
		NodeCount: len(l.Nodes),
		EdgeCount: len(l.Edges),
		CreatedAt: time.Now().UTC(),
	}

	crossings, angles := findCrossings(l)
	r.Crossings = len(crossings)
	r.CrossingNumber = crossingNumberScore(len(l.Edges), len(crossings))
	r.CrossingAngle = crossingAngleScore(angles)
	r.AngularResolutionMin, r.AngularResolutionDev = angularResolution(l)
	r.NodeOcclusions = countOcclusions(l)

	fillShapeMetrics(r, l)
	fillEdgeLengthStats(r, l)

	overall := weights.CrossingNumber*r.CrossingNumber +
		weights.CrossingAngle*r.CrossingAngle +
		weights.AngularResolutionMin*r.AngularResolutionMin +
		weights.AngularResolutionDev*r.AngularResolutionDev
	overall = clamp01(overall)
	overall -= occlusionPenalty * float64(r.NodeOcclusions)
	r.OverallScore = clamp01(overall)

	r.setElapsed(time.Since(start))
	return r, nil
}

// edgeSegment returns the straight segment between an edge's node centers.
func edgeSegment(l *layout.Layout, e *layout.Edge) geometry.Segment {
	return geometry.Segment{
		A: l.NodeByID(e.Source).Center(),
		B: l.NodeByID(e.Target).Center(),
	}
}

// findCrossings runs the O(E²) pairwise segment test and returns the
// crossing points along with the acute angle at each crossing. Edge pairs
// sharing an endpoint are skipped: they are expected to meet, not cross.
func findCrossings(l *layout.Layout) ([]geometry.Point, []float64) {
	var points []geometry.Point
	var angles []float64

	segs := make([]geometry.Segment, len(l.Edges))
	for i := range l.Edges {
		segs[i] = edgeSegment(l, &l.Edges[i])
	}

	for i := 0; i < len(l.Edges); i++ {
		for j := i + 1; j < len(l.Edges); j++ {
			if l.Edges[i].SharesEndpoint(&l.Edges[j]) {
				continue
			}
			if at, ok := segs[i].Intersect(segs[j]); ok {
				points = append(points, at)
				angles = append(angles, geometry.AngleBetween(segs[i].Direction(), segs[j].Direction()))
			}
		}
	}
	return points, angles
}

// crossingNumberScore normalizes the crossing count against the
// complete-graph upper bound for the given edge count, so the metric stays
// in [0,1] with 1 meaning no crossings.
func crossingNumberScore(edgeCount, crossings int) float64 {
	maxPossible := edgeCount * (edgeCount - 1) / 2
	if maxPossible == 0 {
		return 1
	}
	return clamp01(1 - float64(crossings)/float64(maxPossible))
}

// crossingAngleScore averages per-crossing closeness to the ideal angle.
// A layout with zero crossings scores 1 by convention.
func crossingAngleScore(angles []float64) float64 {
	if len(angles) == 0 {
		return 1
	}
	sum := 0.0
	for _, a := range angles {
		sum += clamp01(1 - math.Abs(a-IdealCrossingAngle)/IdealCrossingAngle)
	}
	return sum / float64(len(angles))
}

// angularResolution computes the two angular metrics. For each node with
// degree >= 2, the incident edge bearings are sorted and the gaps between
// consecutive bearings (including the wraparound gap) are compared against
// the ideal even split of 360/degree.
//
// The min metric is the worst case across all nodes: the smallest gap as a
// fraction of that node's ideal gap. The deviation metric is the average,
// over nodes, of 1 minus the normalized standard deviation of the node's
// gaps. Nodes with degree < 2 are excluded; if no node qualifies both
// metrics are 1.
func angularResolution(l *layout.Layout) (min, dev float64) {
	incident := make(map[string][]geometry.Point, len(l.Nodes))
	for i := range l.Edges {
		e := &l.Edges[i]
		if e.Source == e.Target {
			continue
		}
		src := l.NodeByID(e.Source)
		dst := l.NodeByID(e.Target)
		incident[e.Source] = append(incident[e.Source], dst.Center())
		incident[e.Target] = append(incident[e.Target], src.Center())
	}

	worst := 1.0
	devSum := 0.0
	eligible := 0

	// Iterate nodes in layout order so the summation order is fixed.
	for i := range l.Nodes {
		n := &l.Nodes[i]
		neighbors := incident[n.ID]
		if len(neighbors) < 2 {
			continue
		}
		eligible++

		bearings := make([]float64, len(neighbors))
		for j, c := range neighbors {
			bearings[j] = geometry.Bearing(n.Center(), c)
		}
		sortFloats(bearings)

		gaps := make([]float64, len(bearings))
		for j := 1; j < len(bearings); j++ {
			gaps[j-1] = bearings[j] - bearings[j-1]
		}
		gaps[len(gaps)-1] = 360 - bearings[len(bearings)-1] + bearings[0]

		ideal := 360.0 / float64(len(neighbors))

		minGap := gaps[0]
		for _, g := range gaps[1:] {
			if g < minGap {
				minGap = g
			}
		}
		ratio := clamp01(minGap / ideal)
		if ratio < worst {
			worst = ratio
		}

		sd, err := stats.StandardDeviationPopulation(gaps)
		if err != nil {
			sd = 0
		}
		devSum += 1 - math.Min(sd/ideal, 1)
	}

	if eligible == 0 {
		return 1, 1
	}
	return worst, devSum / float64(eligible)
}

// countOcclusions counts node pairs whose bounding boxes overlap by more
// than OcclusionEpsilon. Reported raw: zero is the only acceptable count for
// a clean layout.
func countOcclusions(l *layout.Layout) int {
	count := 0
	for i := 0; i < len(l.Nodes); i++ {
		bi := l.Nodes[i].Bounds()
		for j := i + 1; j < len(l.Nodes); j++ {
			if bi.Overlaps(l.Nodes[j].Bounds(), OcclusionEpsilon) {
				count++
			}
		}
	}
	return count
}

// fillShapeMetrics computes aspect ratio and density from the layout's
// bounding box. An empty or degenerate layout has aspect ratio 1 and
// density 0.
func fillShapeMetrics(r *LayoutQualityReport, l *layout.Layout) {
	bb := l.BoundingBox()
	if bb.Width <= 0 || bb.Height <= 0 {
		r.AspectRatio = 1
		r.Density = 0
		return
	}
	r.AspectRatio = bb.Width / bb.Height

	total := 0.0
	for i := range l.Nodes {
		total += l.Nodes[i].Bounds().Area()
	}
	r.Density = math.Min(total/bb.Area(), 1)
}

// fillEdgeLengthStats computes the Euclidean edge-length mean, standard
// deviation, and uniformity. With zero or one edge the layout is vacuously
// uniform.
func fillEdgeLengthStats(r *LayoutQualityReport, l *layout.Layout) {
	if len(l.Edges) == 0 {
		r.EdgeLengthUniformity = 1
		return
	}

	lengths := make([]float64, len(l.Edges))
	for i := range l.Edges {
		lengths[i] = edgeSegment(l, &l.Edges[i]).Length()
	}

	mean, err := stats.Mean(lengths)
	if err != nil {
		return
	}
	sd, err := stats.StandardDeviationPopulation(lengths)
	if err != nil {
		return
	}

	r.EdgeLengthMean = mean
	r.EdgeLengthStdDev = sd
	if mean > 0 {
		r.EdgeLengthUniformity = 1 - math.Min(sd/mean, 1)
	} else {
		r.EdgeLengthUniformity = 1
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// sortFloats is an insertion sort. Incident edge lists are tiny (node
// degree), so this beats pulling in sort for a float slice.
func sortFloats(v []float64) {
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j] < v[j-1]; j-- {
			v[j], v[j-1] = v[j-1], v[j]
		}
	}
}
