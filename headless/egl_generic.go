//go:build !linux

package headless

import (
	"errors"

	"github.com/richinsley/goshadergif/graphics"
)

var errUnsupported = errors.New("EGL pbuffer contexts are only available on linux")

func New(width, height int) (graphics.Context, error) {
	return nil, errUnsupported
}
