package frame

import (
	"context"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avplayback/logger"
	"github.com/xaionaro-go/avplayback/scaler"
)

// Copier deep-copies libav frames into Decoded frames, converting
// them to planar YUV 4:2:0 first if needed.
//
// Not safe for concurrent use.
type Copier struct {
	scaler       *scaler.Software
	scaledFrame  *astiav.Frame
	lastWarnedAt astiav.PixelFormat
}

func NewCopier() *Copier {
	return &Copier{}
}

func isPlanar420(pixFmt astiav.PixelFormat) bool {
	switch pixFmt {
	case astiav.PixelFormatYuv420P, astiav.PixelFormatYuvj420P:
		return true
	}
	return false
}

// Copy makes a Decoded frame out of src. pts and duration are
// passed explicitly since the caller decides on fallbacks.
func (c *Copier) Copy(
	ctx context.Context,
	src *astiav.Frame,
	pts int64,
	duration int64,
) (*Decoded, error) {
	f := src
	if !isPlanar420(src.PixelFormat()) {
		scaled, err := c.toPlanar420(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("unable to convert %s to %s: %w", src.PixelFormat(), astiav.PixelFormatYuv420P, err)
		}
		f = scaled
	}

	size, err := f.ImageBufferSize(1)
	if err != nil {
		return nil, fmt.Errorf("unable to get the image buffer size: %w", err)
	}
	out := allocDecoded(f.Width(), f.Height(), pts, duration)
	if size != len(out.buffer.data) {
		out.Release()
		return nil, fmt.Errorf("a %dx%d %s image takes %d bytes, expected %d", f.Width(), f.Height(), f.PixelFormat(), size, len(out.buffer.data))
	}
	if _, err := f.ImageCopyToBuffer(out.buffer.data, 1); err != nil {
		out.Release()
		return nil, fmt.Errorf("unable to copy the frame data: %w", err)
	}
	return out, nil
}

func (c *Copier) toPlanar420(
	ctx context.Context,
	src *astiav.Frame,
) (*astiav.Frame, error) {
	if c.lastWarnedAt != src.PixelFormat() {
		logger.Debugf(ctx, "the decoder outputs %s, converting to %s", src.PixelFormat(), astiav.PixelFormatYuv420P)
		c.lastWarnedAt = src.PixelFormat()
	}

	res := scaler.Resolution{Width: uint32(src.Width()), Height: uint32(src.Height())}
	if c.scaler != nil && (c.scaler.SourceResolution() != res || c.scaler.SourcePixelFormat() != src.PixelFormat()) {
		c.scaler.Close(ctx)
		c.scaler = nil
	}
	if c.scaler == nil {
		s, err := scaler.NewSoftware(ctx, res, src.PixelFormat(), res, astiav.PixelFormatYuv420P)
		if err != nil {
			return nil, err
		}
		c.scaler = s
	}
	if c.scaledFrame == nil {
		c.scaledFrame = astiav.AllocFrame()
	}
	c.scaledFrame.Unref()
	if err := c.scaler.ScaleFrame(ctx, src, c.scaledFrame); err != nil {
		return nil, err
	}
	return c.scaledFrame, nil
}

func (c *Copier) Close(ctx context.Context) {
	if c.scaler != nil {
		c.scaler.Close(ctx)
		c.scaler = nil
	}
	if c.scaledFrame != nil {
		c.scaledFrame.Free()
		c.scaledFrame = nil
	}
}
