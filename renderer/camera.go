package renderer

import "github.com/go-gl/mathgl/mgl32"

// Camera is an orthographic camera whose visible extent is
// [-Aspect, Aspect] x [-1, 1] on the z=0 plane.
type Camera struct {
	Aspect     float32
	Projection mgl32.Mat4
	View       mgl32.Mat4
}

func NewCamera(width, height int) Camera {
	aspect := float32(width) / float32(height)
	return Camera{
		Aspect:     aspect,
		Projection: mgl32.Ortho(-aspect, aspect, -1, 1, 0.1, 10),
		View:       mgl32.LookAtV(mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}),
	}
}

// PlaneVertices returns a 2*aspect x 2 plane centred at the origin as two
// triangles of xyz vertices.
func PlaneVertices(aspect float32) []float32 {
	return []float32{
		-aspect, 1, 0, -aspect, -1, 0, aspect, -1, 0,
		-aspect, 1, 0, aspect, -1, 0, aspect, 1, 0,
	}
}
