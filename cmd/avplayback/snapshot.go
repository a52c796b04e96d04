package main

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"github.com/xaionaro-go/avplayback/frame"
	"github.com/xaionaro-go/avplayback/logger"
)

type snapshotter struct {
	Dir   string
	Every uint64
	Width int
}

func newSnapshotter(dir string, every uint64, width int) *snapshotter {
	if every == 0 {
		every = 1
	}
	return &snapshotter{
		Dir:   dir,
		Every: every,
		Width: width,
	}
}

func (s *snapshotter) Want(frameIdx uint64) bool {
	return s != nil && s.Every > 0 && frameIdx%s.Every == 0
}

// Copy makes a frame that outlives the ConsumeFrame callback.
func (s *snapshotter) Copy(pts int64, planes frame.Planes) *frame.Decoded {
	return &frame.Decoded{
		Planes: frame.Planes{
			Y:       append([]byte(nil), planes.Y...),
			U:       append([]byte(nil), planes.U...),
			V:       append([]byte(nil), planes.V...),
			YStride: planes.YStride,
			UStride: planes.UStride,
			VStride: planes.VStride,
			Width:   planes.Width,
			Height:  planes.Height,
		},
		PTS: pts,
	}
}

func (s *snapshotter) Save(ctx context.Context, f *frame.Decoded) error {
	var img image.Image = &image.YCbCr{
		Y:              f.Y,
		Cb:             f.U,
		Cr:             f.V,
		YStride:        f.YStride,
		CStride:        f.UStride,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, f.Width, f.Height),
	}
	if s.Width > 0 && s.Width != f.Width {
		height := f.Height * s.Width / f.Width
		img = transform.Resize(img, s.Width, height, transform.Linear)
	}

	path := filepath.Join(s.Dir, fmt.Sprintf("frame_%012d.png", f.PTS))
	logger.Debugf(ctx, "saving %s to '%s'", f, path)
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("unable to save the snapshot to '%s': %w", path, err)
	}
	return nil
}
