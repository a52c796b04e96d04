package codec

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/davecgh/go-spew/spew"
	"github.com/facebookincubator/go-belt"
	"github.com/xaionaro-go/avplayback/logger"
	"github.com/xaionaro-go/unsafetools"
	"github.com/xaionaro-go/xsync"
)

// ErrNotFound is returned when libav has no decoder for the codec.
type ErrNotFound struct {
	CodecID   astiav.CodecID
	CodecName Name
}

func (e ErrNotFound) Error() string {
	if e.CodecName != "" {
		return fmt.Sprintf("unable to find a decoder using name '%s' or codec ID %s", e.CodecName, e.CodecID)
	}
	return fmt.Sprintf("unable to find a decoder for codec ID %s", e.CodecID)
}

type DecoderInput struct {
	CodecName       Name
	CodecParameters *astiav.CodecParameters
	// PacketTimeBase is the time base of the packets that will be sent.
	PacketTimeBase astiav.Rational
	Options        *astiav.Dictionary
}

type Decoder struct {
	locker       xsync.Mutex
	codec        *astiav.Codec
	codecContext *astiav.CodecContext
	closer       *astikit.Closer
}

func NewDecoder(
	ctx context.Context,
	input DecoderInput,
) (_ret *Decoder, _err error) {
	codecParameters := input.CodecParameters
	ctx = belt.WithField(ctx, "codec_id", codecParameters.CodecID())
	ctx = belt.WithField(ctx, "codec_name", input.CodecName)
	logger.Debugf(ctx, "NewDecoder")
	defer func() { logger.Debugf(ctx, "/NewDecoder: %v %v", _ret, _err) }()

	d := &Decoder{
		closer: astikit.NewCloser(),
	}
	defer func() {
		if _err != nil {
			_ = d.Close(ctx)
		}
	}()

	d.codec = findDecoderCodec(ctx, codecParameters.CodecID(), input.CodecName)
	if d.codec == nil {
		return nil, ErrNotFound{CodecID: codecParameters.CodecID(), CodecName: input.CodecName}
	}
	logger.Tracef(ctx, "decoder: '%s' (%s)", d.codec.Name(), d.codec.ID())

	d.codecContext = astiav.AllocCodecContext(d.codec)
	if d.codecContext == nil {
		return nil, fmt.Errorf("unable to allocate codec context")
	}
	d.closer.Add(d.codecContext.Free)

	if logger.IsTraceEnabled(ctx) {
		logger.Tracef(ctx, "codec_parameters: %s", spew.Sdump(unsafetools.FieldByNameInValue(reflect.ValueOf(codecParameters), "c").Elem().Elem().Interface()))
	}

	if err := codecParameters.ToCodecContext(d.codecContext); err != nil {
		return nil, fmt.Errorf("unable to copy the codec parameters to the codec context: %w", err)
	}
	if input.PacketTimeBase.Num() != 0 {
		d.codecContext.SetPktTimeBase(input.PacketTimeBase)
	}

	if err := d.codecContext.Open(d.codec, input.Options); err != nil {
		return nil, fmt.Errorf("unable to open codec context: %w", err)
	}
	return d, nil
}

func (d *Decoder) String() string {
	if d == nil || d.codec == nil {
		return "Decoder(<nil>)"
	}
	return fmt.Sprintf("Decoder(%s)", d.codec.Name())
}

func (d *Decoder) CodecName() string {
	return xsync.DoR1(context.TODO(), &d.locker, func() string {
		if d.codec == nil {
			return ""
		}
		return d.codec.Name()
	})
}

// SendPacket feeds a packet; a nil packet puts the decoder into draining mode.
func (d *Decoder) SendPacket(
	ctx context.Context,
	p *astiav.Packet,
) error {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &d.locker, func() error {
		if d.codecContext == nil {
			return fmt.Errorf("decoder is closed")
		}
		return d.codecContext.SendPacket(p)
	})
}

func (d *Decoder) ReceiveFrame(
	ctx context.Context,
	f *astiav.Frame,
) error {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &d.locker, func() error {
		if d.codecContext == nil {
			return fmt.Errorf("decoder is closed")
		}
		return d.codecContext.ReceiveFrame(f)
	})
}

// Flush drops everything buffered inside the decoder (and leaves the draining mode).
func (d *Decoder) Flush(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Flush")
	defer func() { logger.Debugf(ctx, "/Flush: %v", _err) }()
	return xsync.DoR1(ctx, &d.locker, func() error {
		if d.codecContext == nil {
			return fmt.Errorf("decoder is closed")
		}
		d.codecContext.FlushBuffers()
		return nil
	})
}

func (d *Decoder) Close(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Close")
	defer func() { logger.Debugf(ctx, "/Close: %v", _err) }()
	return xsync.DoR1(ctx, &d.locker, func() error {
		if d.closer == nil {
			return nil
		}
		belt.Flush(ctx) // we want to flush the logs before a SEGFAULT-risky operation
		err := d.closer.Close()
		d.closer = nil
		d.codec = nil
		d.codecContext = nil
		return err
	})
}

// IsTransient reports whether a libav decoding error just means "feed more input".
func IsTransient(err error) bool {
	return errors.Is(err, astiav.ErrEagain)
}
