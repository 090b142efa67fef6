// File: internal/humanize/curve.go
package humanize

import "math"

const (
	// minCurveDistance below which a move needs no curve at all.
	minCurveDistance = 5.0
	// cubicDistance above which a stroke always gets two control points.
	cubicDistance = 200.0
	minCurvePoints = 15
	maxCurvePoints = 100
)

// Curve generates an ordered path of points approximating a human mouse
// stroke from start to end. The point count scales with distance; the final
// point is always exactly end.
func (h *Humanizer) Curve(start, end Point) []Point {
	dist := start.Dist(end)
	n := int(math.Max(minCurvePoints, dist/5))
	if n > maxCurvePoints {
		n = maxCurvePoints
	}
	return h.CurveN(start, end, n)
}

// CurveN is Curve with an explicit sample count. Strokes are quadratic or
// cubic Bezier arcs chosen stochastically so consecutive moves differ in
// shape, with gaussian positional noise on every sample.
func (h *Humanizer) CurveN(start, end Point, numPoints int) []Point {
	dist := start.Dist(end)
	if dist < minCurveDistance {
		return []Point{end}
	}
	if numPoints < 1 {
		numPoints = 1
	}

	s, e := start.vec(), end.vec()
	chord := e.Sub(s)
	perp := chord.Perp()

	// Offset magnitude for the control points: 10-35% of the distance.
	offset := dist * h.Uniform(0.10, 0.35)

	useCubic := dist > cubicDistance || h.rng.Float64() < 0.3

	var ctrl []vector2
	if useCubic {
		// Two control points near 25% and 75% along the chord, offset to the
		// same side 60% of the time.
		t1 := 0.25 + h.Uniform(-0.1, 0.1)
		t2 := 0.75 + h.Uniform(-0.1, 0.1)
		side1 := h.randomSide()
		side2 := side1
		if h.rng.Float64() >= 0.6 {
			side2 = -side1
		}
		cp1 := s.Add(chord.Mul(t1)).Add(perp.Mul(offset * side1 * h.Uniform(0.5, 1.5)))
		cp2 := s.Add(chord.Mul(t2)).Add(perp.Mul(offset * side2 * h.Uniform(0.3, 1.0)))
		ctrl = []vector2{cp1, cp2}
	} else {
		// One control point near the midpoint.
		t := 0.5 + h.Uniform(-0.15, 0.15)
		side := h.randomSide()
		cp := s.Add(chord.Mul(t)).Add(perp.Mul(offset * side * h.Uniform(0.7, 1.3)))
		ctrl = []vector2{cp}
	}

	noiseScale := math.Max(1, dist*0.003)
	points := make([]Point, 0, numPoints+1)
	for i := 0; i <= numPoints; i++ {
		t := float64(i) / float64(numPoints)
		var sample vector2
		if useCubic {
			sample = cubicBezier(s, ctrl[0], ctrl[1], e, t)
		} else {
			sample = quadBezier(s, ctrl[0], e, t)
		}
		sample.X += h.rng.NormFloat64() * noiseScale
		sample.Y += h.rng.NormFloat64() * noiseScale
		points = append(points, sample.round())
	}

	// Overwrite rounding and noise error on the endpoint.
	points[len(points)-1] = end
	return points
}

func (h *Humanizer) randomSide() float64 {
	if h.rng.Float64() < 0.5 {
		return -1
	}
	return 1
}

func quadBezier(p0, cp, p1 vector2, t float64) vector2 {
	u := 1 - t
	return p0.Mul(u * u).Add(cp.Mul(2 * u * t)).Add(p1.Mul(t * t))
}

func cubicBezier(p0, cp1, cp2, p1 vector2, t float64) vector2 {
	u := 1 - t
	u2 := u * u
	t2 := t * t
	return p0.Mul(u2 * u).
		Add(cp1.Mul(3 * u2 * t)).
		Add(cp2.Mul(3 * u * t2)).
		Add(p1.Mul(t2 * t))
}
