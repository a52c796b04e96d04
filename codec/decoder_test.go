package codec

import (
	"context"
	"testing"

	"github.com/asticode/go-astiav"
	"github.com/facebookincubator/go-belt"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avplayback/logger"
)

func testCtx(t *testing.T) context.Context {
	ctx := logger.CtxWithLogger(context.Background(), logger.NewLogrus(logger.LevelTrace))
	t.Cleanup(func() { belt.Flush(ctx) })
	return ctx
}

func TestDecoderFallbackAndDrain(t *testing.T) {
	ctx := testCtx(t)

	params := astiav.AllocCodecParameters()
	defer params.Free()
	params.SetMediaType(astiav.MediaTypeVideo)
	params.SetCodecID(astiav.CodecIDH264)

	d, err := NewDecoder(ctx, DecoderInput{
		CodecName:       "no-such-decoder",
		CodecParameters: params,
		PacketTimeBase:  astiav.NewRational(1, 90000),
	})
	require.NoError(t, err)
	require.Equal(t, "h264", d.CodecName())
	require.Equal(t, "Decoder(h264)", d.String())

	f := astiav.AllocFrame()
	defer f.Free()
	require.True(t, IsTransient(d.ReceiveFrame(ctx, f)))

	require.NoError(t, d.SendPacket(ctx, nil))
	require.ErrorIs(t, d.ReceiveFrame(ctx, f), astiav.ErrEof)
	require.NoError(t, d.Flush(ctx))
	require.True(t, IsTransient(d.ReceiveFrame(ctx, f)))

	require.NoError(t, d.Close(ctx))
	require.NoError(t, d.Close(ctx))
	require.Error(t, d.SendPacket(ctx, nil))
	require.Equal(t, "", d.CodecName())
}

func TestDecoderNotFound(t *testing.T) {
	ctx := testCtx(t)

	params := astiav.AllocCodecParameters()
	defer params.Free()
	params.SetMediaType(astiav.MediaTypeVideo)
	params.SetCodecID(astiav.CodecIDNone)

	_, err := NewDecoder(ctx, DecoderInput{CodecParameters: params})
	require.ErrorAs(t, err, &ErrNotFound{})
}

func TestErrNotFound(t *testing.T) {
	require.Contains(t, ErrNotFound{CodecName: "h264_cuvid"}.Error(), "'h264_cuvid'")
}
