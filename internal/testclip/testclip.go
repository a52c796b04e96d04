// Package testclip encodes small synthetic video files for tests that need
// to go through the real demuxer and decoder.
package testclip

import (
	"context"
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/xaionaro-go/avplayback/logger"
)

type Config struct {
	Width, Height int
	FrameRate     int
	FrameCount    int
	GOPSize       int
}

// DefaultConfig is ten seconds of 30 fps video with a sync point every second.
func DefaultConfig() Config {
	return Config{
		Width:      64,
		Height:     48,
		FrameRate:  30,
		FrameCount: 300,
		GOPSize:    30,
	}
}

// Write encodes cfg.FrameCount MPEG-4 part 2 frames into an AVI file at path
// (the container is guessed by the extension). Frame #i has PTS i in the
// 1/FrameRate time base and its luma is a gradient shifted by i.
func Write(
	ctx context.Context,
	path string,
	cfg Config,
) (_err error) {
	logger.Debugf(ctx, "Write(%s, %#+v)", path, cfg)
	defer func() { logger.Debugf(ctx, "/Write(%s): %v", path, _err) }()

	closer := astikit.NewCloser()
	defer closer.Close()

	encoder := astiav.FindEncoder(astiav.CodecIDMpeg4)
	if encoder == nil {
		return fmt.Errorf("MPEG-4 encoder is not available")
	}
	encoderContext := astiav.AllocCodecContext(encoder)
	if encoderContext == nil {
		return fmt.Errorf("unable to allocate an encoder context")
	}
	closer.Add(encoderContext.Free)
	timeBase := astiav.NewRational(1, cfg.FrameRate)
	encoderContext.SetWidth(cfg.Width)
	encoderContext.SetHeight(cfg.Height)
	encoderContext.SetPixelFormat(astiav.PixelFormatYuv420P)
	encoderContext.SetTimeBase(timeBase)
	encoderContext.SetFramerate(astiav.NewRational(cfg.FrameRate, 1))
	encoderContext.SetGopSize(cfg.GOPSize)
	encoderContext.SetMaxBFrames(0)
	if err := encoderContext.Open(encoder, nil); err != nil {
		return fmt.Errorf("unable to open the encoder: %w", err)
	}

	output, err := astiav.AllocOutputFormatContext(nil, "", path)
	if err != nil {
		return fmt.Errorf("unable to allocate the output format context: %w", err)
	}
	if output == nil {
		return fmt.Errorf("unable to guess the output format of '%s'", path)
	}
	closer.Add(output.Free)

	stream := output.NewStream(nil)
	if stream == nil {
		return fmt.Errorf("unable to create an output stream")
	}
	if err := stream.CodecParameters().FromCodecContext(encoderContext); err != nil {
		return fmt.Errorf("unable to copy the codec parameters: %w", err)
	}
	stream.SetTimeBase(timeBase)

	if !output.OutputFormat().Flags().Has(astiav.IOFormatFlagNofile) {
		ioContext, err := astiav.OpenIOContext(path, astiav.NewIOContextFlags(astiav.IOContextFlagWrite), nil, nil)
		if err != nil {
			return fmt.Errorf("unable to open '%s' for writing: %w", path, err)
		}
		closer.Add(func() { _ = ioContext.Close() })
		output.SetPb(ioContext)
	}
	if err := output.WriteHeader(nil); err != nil {
		return fmt.Errorf("unable to write the header: %w", err)
	}

	f := astiav.AllocFrame()
	closer.Add(f.Free)
	f.SetWidth(cfg.Width)
	f.SetHeight(cfg.Height)
	f.SetPixelFormat(astiav.PixelFormatYuv420P)
	if err := f.AllocBuffer(0); err != nil {
		return fmt.Errorf("unable to allocate the frame buffer: %w", err)
	}

	pkt := astiav.AllocPacket()
	closer.Add(pkt.Free)

	writePackets := func() error {
		for {
			err := encoderContext.ReceivePacket(pkt)
			switch {
			case err == nil:
			case errors.Is(err, astiav.ErrEagain), errors.Is(err, astiav.ErrEof):
				return nil
			default:
				return fmt.Errorf("unable to receive a packet: %w", err)
			}
			pkt.SetStreamIndex(stream.Index())
			pkt.RescaleTs(timeBase, stream.TimeBase())
			err = output.WriteInterleavedFrame(pkt)
			pkt.Unref()
			if err != nil {
				return fmt.Errorf("unable to write a packet: %w", err)
			}
		}
	}

	chromaWidth, chromaHeight := (cfg.Width+1)/2, (cfg.Height+1)/2
	image := make([]byte, cfg.Width*cfg.Height+2*chromaWidth*chromaHeight)
	for idx := 0; idx < cfg.FrameCount; idx++ {
		for y := 0; y < cfg.Height; y++ {
			for x := 0; x < cfg.Width; x++ {
				image[y*cfg.Width+x] = byte(x + y + idx)
			}
		}
		for i := cfg.Width * cfg.Height; i < len(image); i++ {
			image[i] = 128
		}
		if err := f.MakeWritable(); err != nil {
			return fmt.Errorf("unable to make the frame writable: %w", err)
		}
		if err := f.Data().SetBytes(image, 1); err != nil {
			return fmt.Errorf("unable to fill frame #%d: %w", idx, err)
		}
		f.SetPts(int64(idx))
		if err := encoderContext.SendFrame(f); err != nil {
			return fmt.Errorf("unable to encode frame #%d: %w", idx, err)
		}
		if err := writePackets(); err != nil {
			return err
		}
	}
	if err := encoderContext.SendFrame(nil); err != nil {
		return fmt.Errorf("unable to start draining the encoder: %w", err)
	}
	if err := writePackets(); err != nil {
		return err
	}
	if err := output.WriteTrailer(); err != nil {
		return fmt.Errorf("unable to write the trailer: %w", err)
	}
	return nil
}
