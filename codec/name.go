// Package codec wraps libav decoders.
package codec

import (
	"context"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avplayback/logger"
)

// Name is a libav codec name (e.g. "h264", "h264_cuvid", "libdav1d").
type Name string

func (n Name) Decoder(ctx context.Context) (_ret *astiav.Codec) {
	logger.Tracef(ctx, "Name(%s).Decoder()", n)
	defer func() { logger.Tracef(ctx, "/Name(%s).Decoder(): %v", n, _ret) }()
	if n == "" {
		return nil
	}
	return astiav.FindDecoderByName(string(n))
}

func findDecoderCodec(
	ctx context.Context,
	codecID astiav.CodecID,
	codecName Name,
) *astiav.Codec {
	if r := codecName.Decoder(ctx); r != nil {
		return r
	}
	if codecName != "" {
		logger.Warnf(ctx, "decoder '%s' is not found, falling back to the default decoder of %s", codecName, codecID)
	}
	return astiav.FindDecoder(codecID)
}
