package glfwcontext

import (
	"fmt"
	"runtime"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
)

// Context is a hidden GLFW window used only for its OpenGL 4.1 core context.
// It owns the GLFW library for the lifetime of the process that created it.
type Context struct {
	window *glfw.Window
}

// New initializes GLFW and creates an invisible window of width x height.
// Must be called from the thread that will render.
func New(width, height int) (*Context, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize glfw: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	win, err := glfw.CreateWindow(width, height, "goshadergif", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create hidden window: %w", err)
	}
	return &Context{window: win}, nil
}

// MakeCurrent makes the context current for the calling thread.
func (c *Context) MakeCurrent() {
	c.window.MakeContextCurrent()
}

func (c *Context) IsGLES() bool {
	// GLFW does not provide a direct way to check if the context is GLES.
	return false
}

// Shutdown destroys the window and terminates GLFW.
func (c *Context) Shutdown() {
	glfw.DetachCurrentContext()
	c.window.Destroy()
	glfw.Terminate()
}
