package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/facebookincubator/go-belt"
	"github.com/xaionaro-go/avplayback/avconv"
	"github.com/xaionaro-go/avplayback/codec"
	"github.com/xaionaro-go/avplayback/frame"
	"github.com/xaionaro-go/avplayback/logger"
	"github.com/xaionaro-go/avplayback/types"
	"github.com/xaionaro-go/avplayback/urltools"
	"github.com/xaionaro-go/secret"
	"github.com/xaionaro-go/xsync"
)

// MediaSource demuxes a container with libav and decodes its first video stream.
type MediaSource struct {
	URL string

	locker        xsync.Mutex
	closer        *astikit.Closer
	formatContext *astiav.FormatContext
	stream        *astiav.Stream
	decoder       *codec.Decoder
	packet        *astiav.Packet
	decodedFrame  *astiav.Frame
	copier        *frame.Copier
	counters      *types.Counters
	metadata      Metadata
	frameDuration int64

	packetPending bool
	inputEnded    bool
	lastPTS       int64
	lastDuration  int64
}

var _ Source = (*MediaSource)(nil)

// Open opens the container, binds its first video stream and opens a decoder for it.
//
// On failure every libav handle is released and one of ErrContainerOpenFailed,
// ErrStreamProbeFailed, ErrNoVideoStream or ErrDecoderUnavailable is returned.
func Open(
	ctx context.Context,
	urlString string,
	authKey secret.String,
	cfg Config,
) (_ret *MediaSource, _err error) {
	ctx = belt.WithField(ctx, "url", urlString)
	logger.Debugf(ctx, "Open")
	defer func() { logger.Debugf(ctx, "/Open: %v", _err) }()

	if urlString == "" {
		return nil, ErrContainerOpenFailed{Err: fmt.Errorf("the provided URL is empty")}
	}

	s := &MediaSource{
		URL:      urlString,
		closer:   astikit.NewCloser(),
		counters: cfg.Counters,
		lastPTS:  avconv.NoPTS,
	}
	if s.counters == nil {
		s.counters = types.NewCounters()
	}
	defer func() {
		if _err != nil {
			_ = s.closer.Close()
		}
	}()

	var formatName string
	if v, ok := cfg.InputOptions.Get("f"); ok {
		formatName = v
	}
	var inputFormat *astiav.InputFormat
	if formatName != "" {
		inputFormat = astiav.FindInputFormat(formatName)
		if inputFormat == nil {
			return nil, ErrContainerOpenFailed{URL: urlString, Err: fmt.Errorf("unable to find input format by name '%s'", formatName)}
		}
		logger.Debugf(ctx, "using format '%s'", inputFormat.Name())
	} else if path, ok := urltools.LocalPath(urlString); ok {
		if _, err := os.Stat(path); err != nil {
			return nil, ErrContainerOpenFailed{URL: urlString, Err: err}
		}
	}

	s.formatContext = astiav.AllocFormatContext()
	if s.formatContext == nil {
		return nil, ErrContainerOpenFailed{URL: urlString, Err: fmt.Errorf("unable to allocate a format context")}
	}
	s.closer.Add(s.formatContext.Free)

	urlWithSecret := urlString
	if authKey.Get() != "" {
		urlWithSecret += authKey.Get()
	}
	inputOptions := dictionaryItemsToAstiav(ctx, cfg.InputOptions.Without("f"))
	if err := s.formatContext.OpenInput(urlWithSecret, inputFormat, inputOptions); err != nil {
		if authKey.Get() != "" {
			urlString += "<HIDDEN>"
		}
		return nil, ErrContainerOpenFailed{URL: urlString, Err: err}
	}
	s.closer.Add(s.formatContext.CloseInput)

	if err := s.formatContext.FindStreamInfo(nil); err != nil {
		return nil, ErrStreamProbeFailed{Err: err}
	}

	streams := s.formatContext.Streams()
	for _, stream := range streams {
		if stream.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			s.stream = stream
			break
		}
	}
	if s.stream == nil {
		return nil, ErrNoVideoStream{StreamCount: len(streams)}
	}
	ctx = belt.WithField(ctx, "stream_index", s.stream.Index())
	codecParameters := s.stream.CodecParameters()

	decoder, err := codec.NewDecoder(ctx, codec.DecoderInput{
		CodecName:       cfg.Decoder,
		CodecParameters: codecParameters,
		PacketTimeBase:  s.stream.TimeBase(),
		Options:         dictionaryItemsToAstiav(ctx, cfg.DecoderOptions),
	})
	if err != nil {
		return nil, ErrDecoderUnavailable{Codec: codecParameters.CodecID().Name(), Err: err}
	}
	s.decoder = decoder
	s.closer.Add(func() { _ = decoder.Close(ctx) })

	s.packet = astiav.AllocPacket()
	s.closer.Add(s.packet.Free)
	s.decodedFrame = astiav.AllocFrame()
	s.closer.Add(s.decodedFrame.Free)
	s.copier = frame.NewCopier()
	s.closer.Add(func() { s.copier.Close(ctx) })

	s.metadata = s.buildMetadata(ctx, cfg)
	s.frameDuration = s.metadata.NominalFrameDuration()
	logger.Infof(ctx, "opened: %s", s.metadata)
	return s, nil
}

func (s *MediaSource) buildMetadata(
	ctx context.Context,
	cfg Config,
) Metadata {
	codecParameters := s.stream.CodecParameters()
	timeBase := s.stream.TimeBase()
	m := Metadata{
		Width:         codecParameters.Width(),
		Height:        codecParameters.Height(),
		TimeBase:      avconv.RationalFromAstiav(timeBase),
		StartTicks:    s.stream.StartTime(),
		DurationTicks: s.stream.Duration(),
		CodecName:     s.decoder.CodecName(),
	}
	if m.StartTicks == avconv.NoPTS {
		m.StartTicks = 0
	}
	if m.DurationTicks <= 0 || m.DurationTicks == avconv.NoPTS {
		if d := s.formatContext.Duration(); d > 0 {
			m.DurationTicks = astiav.RescaleQ(d, astiav.NewRational(1, astiav.TimeBase), timeBase)
			logger.Debugf(ctx, "the stream has no duration, using the container's one: %d", m.DurationTicks)
		} else {
			m.DurationTicks = 0
		}
	}

	for _, r := range []astiav.Rational{s.stream.AvgFrameRate(), s.stream.RFrameRate()} {
		if r.Num() > 0 && r.Den() > 0 {
			m.FrameRate = avconv.RationalFromAstiav(r)
			break
		}
	}
	if m.FrameRate.IsZero() {
		m.FrameRate = cfg.DefaultFrameRate
		logger.Debugf(ctx, "the stream reports no frame rate, using the default one: %s", m.FrameRate)
	}

	switch codecParameters.ColorSpace() {
	case astiav.ColorSpaceBt709:
		m.IsBT709 = true
	case astiav.ColorSpaceUnspecified:
		m.IsBT709 = m.Height >= 720
	}
	return m
}

func (s *MediaSource) String() string {
	return fmt.Sprintf("MediaSource(%s)", s.URL)
}

func (s *MediaSource) Metadata() Metadata {
	return s.metadata
}

func (s *MediaSource) DecodeNext(
	ctx context.Context,
	skipBeforeTicks int64,
) (*frame.Decoded, error) {
	return xsync.DoA2R2(xsync.WithNoLogging(ctx, true), &s.locker, s.decodeNext, ctx, skipBeforeTicks)
}

func (s *MediaSource) decodeNext(
	ctx context.Context,
	skipBeforeTicks int64,
) (*frame.Decoded, error) {
	if s.closer == nil {
		return nil, fmt.Errorf("the source is closed")
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		err := s.decoder.ReceiveFrame(ctx, s.decodedFrame)
		switch {
		case err == nil:
			f, err := s.takeFrame(ctx, skipBeforeTicks)
			if err != nil {
				s.counters.DecodeErrors.Inc()
				logger.Errorf(ctx, "unable to copy the decoded frame: %v", err)
				continue
			}
			if f == nil {
				continue
			}
			return f, nil
		case codec.IsTransient(err):
		case errors.Is(err, astiav.ErrEof):
			return nil, io.EOF
		default:
			s.counters.DecodeErrors.Inc()
			logger.Errorf(ctx, "unable to receive a frame: %v", err)
			if s.inputEnded {
				return nil, io.EOF
			}
		}

		if s.inputEnded {
			// the decoder is drained but did not report EOF
			return nil, io.EOF
		}

		if !s.packetPending {
			err := s.readPacket(ctx)
			switch {
			case err == nil:
				s.packetPending = true
			case errors.Is(err, io.EOF):
				logger.Debugf(ctx, "reached the end of the input, draining the decoder")
				s.inputEnded = true
				if err := s.decoder.SendPacket(ctx, nil); err != nil && !errors.Is(err, astiav.ErrEof) {
					logger.Errorf(ctx, "unable to start draining the decoder: %v", err)
					return nil, io.EOF
				}
				continue
			default:
				return nil, err
			}
		}

		err = s.decoder.SendPacket(ctx, s.packet)
		switch {
		case err == nil:
		case codec.IsTransient(err):
			// the decoder wants its output to be read first; keep the packet
			continue
		default:
			s.counters.DecodeErrors.Inc()
			logger.Errorf(ctx, "unable to send a packet to the decoder: %v", err)
		}
		s.packet.Unref()
		s.packetPending = false
	}
}

// readPacket reads the next packet of the selected stream into s.packet.
func (s *MediaSource) readPacket(ctx context.Context) error {
	for {
		err := s.formatContext.ReadFrame(s.packet)
		switch {
		case err == nil:
		case errors.Is(err, astiav.ErrEof), errors.Is(err, astiav.ErrEio):
			return io.EOF
		case errors.Is(err, astiav.ErrEagain):
			continue
		default:
			logger.Errorf(ctx, "unable to read a packet, considering it the end of the stream: %v", err)
			return io.EOF
		}
		if s.packet.StreamIndex() != s.stream.Index() {
			s.packet.Unref()
			continue
		}
		return nil
	}
}

// takeFrame copies s.decodedFrame out; nil is returned if the frame is skipped.
func (s *MediaSource) takeFrame(
	ctx context.Context,
	skipBeforeTicks int64,
) (*frame.Decoded, error) {
	defer s.decodedFrame.Unref()
	s.counters.Frames.Decoded.Increment(0)

	pts := s.decodedFrame.Pts()
	if pts == avconv.NoPTS {
		pts = s.decodedFrame.PktDts()
	}
	if pts == avconv.NoPTS {
		if s.lastPTS == avconv.NoPTS {
			pts = s.metadata.StartTicks
		} else {
			pts = s.lastPTS + s.lastDuration
		}
		logger.Tracef(ctx, "the frame has no timestamp, assuming %d", pts)
	}

	duration := s.decodedFrame.Duration()
	if duration <= 0 {
		duration = s.frameDuration
	}
	s.lastPTS, s.lastDuration = pts, duration

	if skipBeforeTicks != avconv.NoPTS && pts < skipBeforeTicks {
		logger.Tracef(ctx, "skipping the frame with pts %d < %d", pts, skipBeforeTicks)
		s.counters.Frames.Skipped.Increment(0)
		return nil, nil
	}

	f, err := s.copier.Copy(ctx, s.decodedFrame, pts, duration)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *MediaSource) SeekTo(
	ctx context.Context,
	ticks int64,
) error {
	return xsync.DoA2R1(ctx, &s.locker, s.seekTo, ctx, ticks)
}

func (s *MediaSource) seekTo(
	ctx context.Context,
	ticks int64,
) (_err error) {
	logger.Debugf(ctx, "SeekTo(%d)", ticks)
	defer func() { logger.Debugf(ctx, "/SeekTo(%d): %v", ticks, _err) }()
	if s.closer == nil {
		return fmt.Errorf("the source is closed")
	}

	if s.packetPending {
		s.packet.Unref()
		s.packetPending = false
	}
	s.inputEnded = false
	s.lastPTS = avconv.NoPTS

	seekErr := s.formatContext.SeekFrame(s.stream.Index(), ticks, astiav.NewSeekFlags(astiav.SeekFlagBackward))
	if err := s.decoder.Flush(ctx); err != nil {
		return fmt.Errorf("unable to flush the decoder: %w", err)
	}
	if seekErr != nil {
		return fmt.Errorf("unable to seek to %d: %w", ticks, seekErr)
	}
	return nil
}

func (s *MediaSource) Close(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Close")
	defer func() { logger.Debugf(ctx, "/Close: %v", _err) }()
	return xsync.DoR1(ctx, &s.locker, func() error {
		if s.closer == nil {
			return nil
		}
		belt.Flush(ctx)
		err := s.closer.Close()
		s.closer = nil
		return err
	})
}
