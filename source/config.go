package source

import (
	"context"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avplayback/codec"
	"github.com/xaionaro-go/avplayback/internal"
	"github.com/xaionaro-go/avplayback/logger"
	"github.com/xaionaro-go/avplayback/types"
)

type Config struct {
	// InputOptions are passed to the demuxer; the option "f" forces the input format.
	InputOptions   types.DictionaryItems `yaml:"input_options,omitempty"`
	DecoderOptions types.DictionaryItems `yaml:"decoder_options,omitempty"`

	// Decoder overrides the decoder chosen by the codec ID.
	Decoder codec.Name `yaml:"decoder,omitempty"`

	// DefaultFrameRate is used if the container does not report any frame rate.
	DefaultFrameRate types.Rational `yaml:"default_frame_rate,omitempty"`

	Counters *types.Counters `yaml:"-"`
}

func dictionaryItemsToAstiav(
	ctx context.Context,
	s types.DictionaryItems,
) *astiav.Dictionary {
	if len(s) == 0 {
		return nil
	}

	result := astiav.NewDictionary()
	internal.SetFinalizerFree(ctx, result)
	for _, opt := range s {
		logger.Tracef(ctx, "setting custom option: %s=%s", opt.Key, opt.Value)
		result.Set(opt.Key, opt.Value, 0)
	}
	return result
}
