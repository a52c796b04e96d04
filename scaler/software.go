package scaler

import (
	"context"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avplayback/logger"
)

// Software is a libswscale-backed Scaler.
type Software struct {
	*astiav.SoftwareScaleContext
}

var _ Scaler = (*Software)(nil)

func NewSoftware(
	ctx context.Context,
	src Resolution,
	srcPixFmt astiav.PixelFormat,
	dst Resolution,
	dstPixFmt astiav.PixelFormat,
	opts ...astiav.SoftwareScaleContextFlag,
) (*Software, error) {
	if len(opts) == 0 {
		opts = []astiav.SoftwareScaleContextFlag{astiav.SoftwareScaleContextFlagBilinear}
	}
	swsCtx, err := astiav.CreateSoftwareScaleContext(
		int(src.Width),
		int(src.Height),
		srcPixFmt,
		int(dst.Width),
		int(dst.Height),
		dstPixFmt,
		astiav.NewSoftwareScaleContextFlags(opts...),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create a software scale context (%s:%s -> %s:%s): %w", src, srcPixFmt, dst, dstPixFmt, err)
	}
	s := &Software{
		SoftwareScaleContext: swsCtx,
	}
	logger.Debugf(ctx, "initialized %s", s)
	return s, nil
}

func (s *Software) String() string {
	if s.SoftwareScaleContext == nil {
		return "SoftwareScaler(closed)"
	}
	return fmt.Sprintf(
		"SoftwareScaler(%s:%s -> %s:%s)",
		s.SourceResolution(), s.SourcePixelFormat(),
		s.DestinationResolution(), s.DestinationPixelFormat(),
	)
}

func (s *Software) Close(ctx context.Context) error {
	logger.Debugf(ctx, "Close")
	defer logger.Debugf(ctx, "/Close")
	if s.SoftwareScaleContext == nil {
		return nil
	}
	s.SoftwareScaleContext.Free()
	s.SoftwareScaleContext = nil
	return nil
}

func (s *Software) ScaleFrame(
	ctx context.Context,
	src *astiav.Frame,
	dst *astiav.Frame,
) (_err error) {
	logger.Tracef(ctx, "ScaleFrame")
	defer func() { logger.Tracef(ctx, "/ScaleFrame: %v", _err) }()
	if s.SoftwareScaleContext == nil {
		return fmt.Errorf("scaler is closed")
	}
	if err := s.SoftwareScaleContext.ScaleFrame(src, dst); err != nil {
		return fmt.Errorf("unable to scale a frame: %w", err)
	}
	return nil
}

func (s *Software) SourceResolution() Resolution {
	return Resolution{
		Width:  uint32(s.SoftwareScaleContext.SourceWidth()),
		Height: uint32(s.SoftwareScaleContext.SourceHeight()),
	}
}

func (s *Software) SourcePixelFormat() astiav.PixelFormat {
	return s.SoftwareScaleContext.SourcePixelFormat()
}

func (s *Software) DestinationResolution() Resolution {
	return Resolution{
		Width:  uint32(s.SoftwareScaleContext.DestinationWidth()),
		Height: uint32(s.SoftwareScaleContext.DestinationHeight()),
	}
}

func (s *Software) DestinationPixelFormat() astiav.PixelFormat {
	return s.SoftwareScaleContext.DestinationPixelFormat()
}
