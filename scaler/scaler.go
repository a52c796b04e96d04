// Package scaler converts decoded pictures between pixel formats and resolutions.
package scaler

import (
	"context"
	"fmt"

	"github.com/asticode/go-astiav"
)

type Resolution struct {
	Width  uint32
	Height uint32
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

type Scaler interface {
	fmt.Stringer
	Close(context.Context) error
	ScaleFrame(ctx context.Context, src *astiav.Frame, dst *astiav.Frame) error
	SourceResolution() Resolution
	SourcePixelFormat() astiav.PixelFormat
	DestinationResolution() Resolution
	DestinationPixelFormat() astiav.PixelFormat
}
