package geom

import "math"

// Mat3 is a 3×3 affine transformation matrix, stored row-major:
//
//	| m[0] m[1] m[2] |
//	| m[3] m[4] m[5] |
//	| m[6] m[7] m[8] |
//
// For affine transforms the bottom row is always (0, 0, 1); it is stored
// anyway so the serialized form is an unambiguous 9-element array.
type Mat3 [9]float64

// Identity returns the identity matrix.
func Identity() Mat3 {
	return Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Translation returns a translation matrix.
func Translation(tx, ty float64) Mat3 {
	return Mat3{1, 0, tx, 0, 1, ty, 0, 0, 1}
}

// Scaling returns a scale matrix.
func Scaling(sx, sy float64) Mat3 {
	return Mat3{sx, 0, 0, 0, sy, 0, 0, 0, 1}
}

// Rotation returns a rotation matrix (angle in radians).
func Rotation(radians float64) Mat3 {
	c := math.Cos(radians)
	s := math.Sin(radians)
	return Mat3{c, -s, 0, s, c, 0, 0, 0, 1}
}

// Mul multiplies this matrix by another: result = m * o.
// The combined transform applies o first, then m.
func (m Mat3) Mul(o Mat3) Mat3 {
	var r Mat3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			r[row*3+col] = m[row*3]*o[col] + m[row*3+1]*o[3+col] + m[row*3+2]*o[6+col]
		}
	}
	return r
}

// Apply transforms a point by the matrix.
func (m Mat3) Apply(p Vec2) Vec2 {
	return Vec2{
		X: m[0]*p.X + m[1]*p.Y + m[2],
		Y: m[3]*p.X + m[4]*p.Y + m[5],
	}
}

// Det returns the determinant of the matrix.
func (m Mat3) Det() float64 {
	return m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
}

const singularEps = 1e-12

// Invert returns the inverse of the matrix. ok is false when the matrix is
// singular (determinant ≈ 0); the caller must handle that case rather than
// use the returned value.
func (m Mat3) Invert() (inv Mat3, ok bool) {
	det := m.Det()
	if math.Abs(det) < singularEps {
		return Mat3{}, false
	}
	d := 1 / det
	inv = Mat3{
		(m[4]*m[8] - m[5]*m[7]) * d,
		(m[2]*m[7] - m[1]*m[8]) * d,
		(m[1]*m[5] - m[2]*m[4]) * d,
		(m[5]*m[6] - m[3]*m[8]) * d,
		(m[0]*m[8] - m[2]*m[6]) * d,
		(m[2]*m[3] - m[0]*m[5]) * d,
		(m[3]*m[7] - m[4]*m[6]) * d,
		(m[1]*m[6] - m[0]*m[7]) * d,
		(m[0]*m[4] - m[1]*m[3]) * d,
	}
	return inv, true
}

// TransformRect transforms a rectangle and returns the axis-aligned bounding
// box of its four transformed corners. Intentionally conservative: a rotated
// rect comes back as the AABB that covers it.
func (m Mat3) TransformRect(r Rect) Rect {
	p0 := m.Apply(Vec2{r.X, r.Y})
	p1 := m.Apply(Vec2{r.X + r.W, r.Y})
	p2 := m.Apply(Vec2{r.X + r.W, r.Y + r.H})
	p3 := m.Apply(Vec2{r.X, r.Y + r.H})

	minX := min(p0.X, p1.X, p2.X, p3.X)
	minY := min(p0.Y, p1.Y, p2.Y, p3.Y)
	maxX := max(p0.X, p1.X, p2.X, p3.X)
	maxY := max(p0.Y, p1.Y, p2.Y, p3.Y)

	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// IsIdentity checks if this is the identity matrix (within epsilon).
func (m Mat3) IsIdentity() bool {
	const eps = 1e-10
	id := Identity()
	for i := range m {
		if math.Abs(m[i]-id[i]) > eps {
			return false
		}
	}
	return true
}

// ToSlice returns the matrix as a 9-element row-major slice for JSON
// serialization. The document codec depends on this ordering.
func (m Mat3) ToSlice() []float64 {
	out := make([]float64, 9)
	copy(out, m[:])
	return out
}

// FromSlice rebuilds a matrix from a 9-element row-major slice.
// Short slices yield the identity so a missing transform stays harmless.
func FromSlice(s []float64) Mat3 {
	if len(s) != 9 {
		return Identity()
	}
	var m Mat3
	copy(m[:], s)
	return m
}
