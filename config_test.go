package avplayback

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avplayback/codec"
	"github.com/xaionaro-go/avplayback/types"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
input_options:
  - key: f
    value: matroska
  - key: probesize
    value: "32768"
decoder: h264_cuvid
default_frame_rate: 30000/1001
reorder_depth: 4
max_clock_lag: 500ms
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, codec.Name("h264_cuvid"), cfg.Decoder)
	require.Equal(t, types.Rational{Num: 30000, Den: 1001}, cfg.DefaultFrameRate)
	require.Equal(t, uint(4), cfg.ReorderDepth)
	require.Equal(t, 500*time.Millisecond, cfg.MaxClockLag)
	require.False(t, cfg.DisablePacing)
	require.NotNil(t, cfg.Now)
	v, ok := cfg.InputOptions.Get("f")
	require.True(t, ok)
	require.Equal(t, "matroska", v)
	require.Len(t, cfg.InputOptions.Without("f"), 1)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("disable_pacing: true\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.True(t, cfg.DisablePacing)
	require.Equal(t, DefaultConfig().MaxClockLag, cfg.MaxClockLag)
	require.Equal(t, DefaultConfig().DefaultFrameRate, cfg.DefaultFrameRate)
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
