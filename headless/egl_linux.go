//go:build linux

package headless

/*
#cgo LDFLAGS: -lEGL -lGLESv2
#include <EGL/egl.h>
#include <EGL/eglext.h>

// Extension entry points are only reachable through function pointers.
static PFNEGLQUERYDEVICESEXTPROC query_devices_fn = NULL;
static PFNEGLGETPLATFORMDISPLAYEXTPROC platform_display_fn = NULL;

static void load_device_extensions() {
    if (query_devices_fn == NULL) {
        query_devices_fn = (PFNEGLQUERYDEVICESEXTPROC) eglGetProcAddress("eglQueryDevicesEXT");
        platform_display_fn = (PFNEGLGETPLATFORMDISPLAYEXTPROC) eglGetProcAddress("eglGetPlatformDisplayEXT");
    }
}

static EGLint device_count() {
    EGLint n = 0;
    if (query_devices_fn == NULL || !query_devices_fn(0, NULL, &n)) {
        return 0;
    }
    return n;
}

// device_display returns the display of the first device that provides one.
static EGLDisplay device_display(EGLint max) {
    EGLDeviceEXT devices[16];
    EGLint n = 0;
    if (max > 16) {
        max = 16;
    }
    if (platform_display_fn == NULL || !query_devices_fn(max, devices, &n)) {
        return EGL_NO_DISPLAY;
    }
    for (EGLint i = 0; i < n; i++) {
        EGLDisplay d = platform_display_fn(EGL_PLATFORM_DEVICE_EXT, devices[i], NULL);
        if (d != EGL_NO_DISPLAY) {
            return d;
        }
    }
    return EGL_NO_DISPLAY;
}

static EGLDisplay default_display() {
    return eglGetDisplay(EGL_DEFAULT_DISPLAY);
}
*/
import "C"

import (
	"errors"
	"fmt"

	"github.com/richinsley/goshadergif/graphics"
)

// Context is an OpenGL ES 3 context on an EGL pbuffer. It needs no display
// server, which makes it the first choice for a render-frame child.
type Context struct {
	display C.EGLDisplay
	context C.EGLContext
	surface C.EGLSurface
}

// New creates a context whose pbuffer matches the frame size.
func New(width, height int) (graphics.Context, error) {
	c := &Context{
		display: C.EGLDisplay(C.EGL_NO_DISPLAY),
		context: C.EGLContext(C.EGL_NO_CONTEXT),
		surface: C.EGLSurface(C.EGL_NO_SURFACE),
	}
	if err := c.open(width, height); err != nil {
		c.Shutdown()
		return nil, err
	}
	return c, nil
}

func (c *Context) open(width, height int) error {
	display, err := openDisplay()
	if err != nil {
		return err
	}
	var major, minor C.EGLint
	if C.eglInitialize(display, &major, &minor) == C.EGL_FALSE {
		return eglError("eglInitialize")
	}
	c.display = display

	if C.eglBindAPI(C.EGL_OPENGL_ES_API) == C.EGL_FALSE {
		return eglError("eglBindAPI")
	}

	configAttribs := []C.EGLint{
		C.EGL_SURFACE_TYPE, C.EGL_PBUFFER_BIT,
		C.EGL_RENDERABLE_TYPE, C.EGL_OPENGL_ES3_BIT,
		C.EGL_RED_SIZE, 8,
		C.EGL_GREEN_SIZE, 8,
		C.EGL_BLUE_SIZE, 8,
		C.EGL_ALPHA_SIZE, 8,
		C.EGL_DEPTH_SIZE, 24,
		C.EGL_NONE,
	}
	var config C.EGLConfig
	var found C.EGLint
	if C.eglChooseConfig(c.display, &configAttribs[0], &config, 1, &found) == C.EGL_FALSE {
		return eglError("eglChooseConfig")
	}
	if found == 0 {
		return errors.New("eglChooseConfig: no RGBA8 pbuffer config with OpenGL ES 3 support")
	}

	pbufferAttribs := []C.EGLint{
		C.EGL_WIDTH, C.EGLint(width),
		C.EGL_HEIGHT, C.EGLint(height),
		C.EGL_NONE,
	}
	c.surface = C.eglCreatePbufferSurface(c.display, config, &pbufferAttribs[0])
	if c.surface == C.EGLSurface(C.EGL_NO_SURFACE) {
		return eglError("eglCreatePbufferSurface")
	}

	contextAttribs := []C.EGLint{C.EGL_CONTEXT_CLIENT_VERSION, 3, C.EGL_NONE}
	c.context = C.eglCreateContext(c.display, config, C.EGLContext(C.EGL_NO_CONTEXT), &contextAttribs[0])
	if c.context == C.EGLContext(C.EGL_NO_CONTEXT) {
		return eglError("eglCreateContext")
	}
	if C.eglMakeCurrent(c.display, c.surface, c.surface, c.context) == C.EGL_FALSE {
		return eglError("eglMakeCurrent")
	}
	return nil
}

// openDisplay prefers a GPU found through device enumeration, which works in
// containers without X or Wayland, and falls back to the default display.
func openDisplay() (C.EGLDisplay, error) {
	C.load_device_extensions()
	if n := C.device_count(); n > 0 {
		if d := C.device_display(n); d != C.EGLDisplay(C.EGL_NO_DISPLAY) {
			return d, nil
		}
	}
	d := C.default_display()
	if d == C.EGLDisplay(C.EGL_NO_DISPLAY) {
		return d, errors.New("no EGL device or default display available")
	}
	return d, nil
}

func eglError(call string) error {
	return fmt.Errorf("%s failed: EGL error 0x%04x", call, int(C.eglGetError()))
}

func (c *Context) MakeCurrent() {
	C.eglMakeCurrent(c.display, c.surface, c.surface, c.context)
}

func (c *Context) IsGLES() bool { return true }

// Shutdown releases whatever part of the context was created. It is safe on a
// partially opened context.
func (c *Context) Shutdown() {
	if c.display == C.EGLDisplay(C.EGL_NO_DISPLAY) {
		return
	}
	C.eglMakeCurrent(c.display, C.EGLSurface(C.EGL_NO_SURFACE), C.EGLSurface(C.EGL_NO_SURFACE), C.EGLContext(C.EGL_NO_CONTEXT))
	if c.context != C.EGLContext(C.EGL_NO_CONTEXT) {
		C.eglDestroyContext(c.display, c.context)
		c.context = C.EGLContext(C.EGL_NO_CONTEXT)
	}
	if c.surface != C.EGLSurface(C.EGL_NO_SURFACE) {
		C.eglDestroySurface(c.display, c.surface)
		c.surface = C.EGLSurface(C.EGL_NO_SURFACE)
	}
	C.eglTerminate(c.display)
	c.display = C.EGLDisplay(C.EGL_NO_DISPLAY)
}
