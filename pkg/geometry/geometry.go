// Package geometry provides the computational-geometry primitives used by the
// layout quality metrics: segment intersection, angles between vectors, and
// rectangle overlap.
//
// All functions are pure and operate on value types. They never mutate their
// inputs and allocate nothing beyond their return values, so they are safe to
// call concurrently without coordination.
//
// # Coordinate System
//
// Coordinates follow the standard diagram convention: origin at the top-left,
// X increasing rightward, Y increasing downward. Angles returned by [Bearing]
// are measured in degrees from the positive X axis in that coordinate system.
package geometry

import "math"

// Epsilon is the tolerance used for floating-point comparisons throughout the
// package. Layout coordinates are typically in the 0..10000 range, where 1e-9
// is far below any visually meaningful distance.
const Epsilon = 1e-9

// Point is a 2D coordinate or vector.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns the vector p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Add returns the vector p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Scale returns the vector p scaled by s.
func (p Point) Scale(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

// Dot returns the dot product of p and q treated as vectors.
func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Cross returns the 2D cross product (z-component) of p and q.
func (p Point) Cross(q Point) float64 {
	return p.X*q.Y - p.Y*q.X
}

// Length returns the Euclidean length of p treated as a vector.
func (p Point) Length() float64 {
	return math.Hypot(p.X, p.Y)
}

// Dist returns the Euclidean distance between a and b.
func Dist(a, b Point) float64 {
	return a.Sub(b).Length()
}

// Segment is a line segment between two points.
type Segment struct {
	A Point
	B Point
}

// Length returns the Euclidean length of the segment.
func (s Segment) Length() float64 {
	return Dist(s.A, s.B)
}

// Direction returns the segment's direction vector B - A.
func (s Segment) Direction() Point {
	return s.B.Sub(s.A)
}

// Intersect reports whether segments s and t properly cross, and if so
// returns the intersection point. A proper crossing means the segments
// intersect at a single interior point of both; segments that merely touch
// at an endpoint or overlap collinearly are not counted. Edge crossings in a
// diagram are exactly the proper crossings between edges that do not share
// an endpoint, so endpoint contacts are the caller's concern, not ours.
func (s Segment) Intersect(t Segment) (Point, bool) {
	d1 := s.Direction()
	d2 := t.Direction()

	denom := d1.Cross(d2)
	if math.Abs(denom) < Epsilon {
		// Parallel or collinear: no single proper crossing point.
		return Point{}, false
	}

	diff := t.A.Sub(s.A)
	u := diff.Cross(d2) / denom // parameter along s
	v := diff.Cross(d1) / denom // parameter along t

	if u <= Epsilon || u >= 1-Epsilon || v <= Epsilon || v >= 1-Epsilon {
		return Point{}, false
	}

	return s.A.Add(d1.Scale(u)), true
}

// AngleBetween returns the acute angle in degrees between the lines carrying
// vectors u and v, in the range [0, 90]. Degenerate (zero-length) vectors
// yield 0.
func AngleBetween(u, v Point) float64 {
	lu := u.Length()
	lv := v.Length()
	if lu < Epsilon || lv < Epsilon {
		return 0
	}
	cos := math.Abs(u.Dot(v)) / (lu * lv)
	if cos > 1 {
		cos = 1
	}
	return math.Acos(cos) * 180 / math.Pi
}

// Bearing returns the angle of the vector from 'from' to 'to' in degrees,
// normalized to [0, 360). Used to sort edges incident to a node by direction
// for angular-resolution computation.
func Bearing(from, to Point) float64 {
	d := to.Sub(from)
	deg := math.Atan2(d.Y, d.X) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Rect is an axis-aligned rectangle defined by its top-left corner and size.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the rectangle's area. Degenerate rectangles have area 0.
func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Center returns the rectangle's center point.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// OverlapArea returns the area of the intersection of r and o, or 0 if they
// do not overlap.
func (r Rect) OverlapArea(o Rect) float64 {
	w := math.Min(r.X+r.Width, o.X+o.Width) - math.Max(r.X, o.X)
	h := math.Min(r.Y+r.Height, o.Y+o.Height) - math.Max(r.Y, o.Y)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Overlaps reports whether r and o overlap by more than eps in area.
// Rectangles that merely share a border do not overlap.
func (r Rect) Overlaps(o Rect, eps float64) bool {
	return r.OverlapArea(o) > eps
}

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	x := math.Min(r.X, o.X)
	y := math.Min(r.Y, o.Y)
	x2 := math.Max(r.X+r.Width, o.X+o.Width)
	y2 := math.Max(r.Y+r.Height, o.Y+o.Height)
	return Rect{X: x, Y: y, Width: x2 - x, Height: y2 - y}
}

// BoundingBox returns the smallest rectangle containing all given rectangles.
// Returns the zero Rect when rects is empty.
func BoundingBox(rects []Rect) Rect {
	if len(rects) == 0 {
		return Rect{}
	}
	bb := rects[0]
	for _, r := range rects[1:] {
		bb = bb.Union(r)
	}
	return bb
}
