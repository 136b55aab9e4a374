package graphics

// Context is an OpenGL context owned by a single frame render.
type Context interface {
	MakeCurrent()
	// IsGLES reports whether the context is OpenGL ES rather than desktop GL.
	IsGLES() bool
	Shutdown()
}
