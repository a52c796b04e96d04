package avplayback

import (
	"fmt"
	"os"
	"time"

	"github.com/xaionaro-go/avplayback/source"
	"github.com/xaionaro-go/avplayback/types"
	"github.com/xaionaro-go/secret"
	"gopkg.in/yaml.v3"
)

type Config struct {
	source.Config `yaml:",inline"`

	// ReorderDepth is the amount of frames held to restore presentation
	// order after decoders that do not reorder frames themselves; 0 disables.
	ReorderDepth uint `yaml:"reorder_depth,omitempty"`

	// DisablePacing makes ConsumeFrame ignore frame durations while playing.
	DisablePacing bool `yaml:"disable_pacing,omitempty"`

	// MaxClockLag is how far behind the wall clock the playback may get
	// before the clock is resynchronized instead of catching up.
	MaxClockLag time.Duration `yaml:"max_clock_lag,omitempty"`

	Now     func() time.Time `yaml:"-"`
	AuthKey secret.String    `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		Config: source.Config{
			DefaultFrameRate: types.Rational{Num: 30, Den: 1},
		},
		MaxClockLag: 250 * time.Millisecond,
		Now:         time.Now,
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("unable to read '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse '%s': %w", path, err)
	}
	return cfg, nil
}

func (cfg Config) now() time.Time {
	if cfg.Now == nil {
		return time.Now()
	}
	return cfg.Now()
}
