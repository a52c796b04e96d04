package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/avplayback"
	"github.com/xaionaro-go/avplayback/codec"
	"github.com/xaionaro-go/avplayback/frame"
	"github.com/xaionaro-go/avplayback/indicator"
	"github.com/xaionaro-go/avplayback/logger"
	"github.com/xaionaro-go/avplayback/types"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/secret"
	"golang.org/x/sync/errgroup"
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s [options] <URL>\n", os.Args[0])
		pflag.PrintDefaults()
	}

	loggerLevel := logger.LevelWarning
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	configPath := pflag.String("config", "", "path to a YAML config file")
	decoderName := pflag.String("decoder", "", "decoder name to use instead of the default one for the codec")
	var defaultFrameRate types.Rational
	pflag.Var(&defaultFrameRate, "default-frame-rate", "frame rate to assume if the container reports none (e.g. 30000/1001 or ~29.97)")
	reorderDepth := pflag.Uint("reorder-depth", 0, "amount of frames to buffer for restoring the presentation order; 0 disables")
	disablePacing := pflag.Bool("disable-pacing", false, "consume frames as fast as they are decoded")
	authKey := pflag.String("auth-key", "", "a secret suffix appended to the URL")
	seekTo := pflag.Duration("seek", 0, "position to seek to before playing")
	startPaused := pflag.Bool("start-paused", false, "do not start playing; combine with --step")
	steps := pflag.Uint("step", 0, "amount of frames to step through while paused")
	maxFrames := pflag.Uint64("max-frames", 0, "stop after consuming this amount of frames; 0 means no limit")
	idleTimeout := pflag.Duration("idle-timeout", 3*time.Second, "stop if no frame was consumed for this long")
	snapshotDir := pflag.String("snapshot-dir", "", "directory to write PNG snapshots of the consumed frames to")
	snapshotEvery := pflag.Uint64("snapshot-every", 30, "write a snapshot of every N-th consumed frame")
	snapshotWidth := pflag.Int("snapshot-width", 0, "resize snapshots to this width keeping the aspect ratio; 0 keeps the original size")
	statsInterval := pflag.Duration("stats-interval", time.Second, "how often to print the statistics")
	pflag.Parse()
	if len(pflag.Args()) != 1 {
		pflag.Usage()
		os.Exit(1)
	}
	inputURL := pflag.Arg(0)

	ctx := logger.CtxWithDefaultLogger(context.Background(), loggerLevel)
	ctx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()
	defer belt.Flush(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	observability.Go(ctx, func(ctx context.Context) {
		select {
		case <-ctx.Done():
		case sig := <-sigCh:
			logger.Infof(ctx, "received signal %v, shutting down", sig)
			cancelFn()
		}
	})

	if *netPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) {
			logger.Errorf(ctx, "%v", http.ListenAndServe(*netPprofAddr, nil))
		})
	}

	avplayback.SetupLibavLogging(ctx)

	cfg := avplayback.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = avplayback.LoadConfig(*configPath)
		if err != nil {
			logger.Fatalf(ctx, "unable to load the config: %v", err)
		}
	}
	pflag.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "decoder":
			cfg.Decoder = codec.Name(*decoderName)
		case "default-frame-rate":
			cfg.DefaultFrameRate = defaultFrameRate
		case "reorder-depth":
			cfg.ReorderDepth = *reorderDepth
		case "disable-pacing":
			cfg.DisablePacing = *disablePacing
		}
	})
	cfg.AuthKey = secret.New(*authKey)

	logger.Debugf(ctx, "opening '%s'...", inputURL)
	video, err := avplayback.Open(ctx, inputURL, cfg)
	if err != nil {
		logger.Fatalf(ctx, "unable to open '%s': %v", inputURL, err)
	}
	defer video.Close(ctx)

	w, h := video.FrameSize()
	logger.Infof(ctx, "opened '%s': %dx%d, %.3fs, time base %s, BT.709: %t", inputURL, w, h, video.DurationSec(), video.TimeBase(), video.ColorspaceIsBT709())

	var snapshots *snapshotter
	if *snapshotDir != "" {
		if err := os.MkdirAll(*snapshotDir, 0o755); err != nil {
			logger.Fatalf(ctx, "unable to create '%s': %v", *snapshotDir, err)
		}
		snapshots = newSnapshotter(*snapshotDir, *snapshotEvery, *snapshotWidth)
	}

	p := &presenter{
		Video:       video,
		MaxFrames:   *maxFrames,
		Steps:       *steps,
		StartPaused: *startPaused,
		IdleTimeout: *idleTimeout,
		Snapshots:   snapshots,
	}
	if *seekTo != 0 {
		video.Seek(ctx, *seekTo)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancelFn()
		return p.Run(ctx)
	})
	g.Go(func() error {
		r := newReporter(video, *statsInterval)
		t := time.NewTicker(*statsInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				r.Print(ctx, time.Now())
				return nil
			case now := <-t.C:
				r.Print(ctx, now)
			}
		}
	})
	if err := g.Wait(); err != nil {
		logger.Fatalf(ctx, "%v", err)
	}
}

type reporter struct {
	video       *avplayback.Video
	decodeRate  *indicator.RateMeter[uint64]
	consumeRate *indicator.RateMeter[uint64]
}

func newReporter(video *avplayback.Video, statsInterval time.Duration) *reporter {
	return &reporter{
		video:       video,
		decodeRate:  indicator.NewRateMeter[uint64](50, statsInterval),
		consumeRate: indicator.NewRateMeter[uint64](50, statsInterval),
	}
}

// Print writes the statistics as JSON followed by a human-readable summary.
func (r *reporter) Print(ctx context.Context, now time.Time) {
	stats := r.video.Statistics()
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		logger.Errorf(ctx, "unable to serialize the statistics: %v", err)
		return
	}
	fmt.Printf(
		"%s (decoding: %.1f fps, consuming: %.1f fps, consumed: %s)\n",
		statsJSON,
		r.decodeRate.Observe(stats.Frames.Decoded.Count, now),
		r.consumeRate.Observe(stats.Frames.Consumed.Count, now),
		humanize.Bytes(stats.Frames.Consumed.Bytes),
	)
}

type presenter struct {
	Video       *avplayback.Video
	MaxFrames   uint64
	Steps       uint
	StartPaused bool
	IdleTimeout time.Duration
	Snapshots   *snapshotter
}

func (p *presenter) Run(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Run")
	defer func() { logger.Debugf(ctx, "/Run: %v", _err) }()

	v := p.Video
	stepsLeft := p.Steps
	if !p.StartPaused {
		v.Play(true)
	}

	var (
		consumed       uint64
		lastConsumedAt = time.Now()
		pending        *frame.Decoded
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !v.Playing() {
			if stepsLeft == 0 {
				logger.Infof(ctx, "paused and no steps left")
				return nil
			}
			if !v.ForceDisplay() {
				v.SetForceDisplay()
			}
		}

		ok := v.ConsumeFrame(func(pts, duration int64, planes frame.Planes) {
			logger.Tracef(ctx, "frame pts:%d dur:%d %dx%d", pts, duration, planes.Width, planes.Height)
			if p.Snapshots.Want(consumed) {
				pending = p.Snapshots.Copy(pts, planes)
			}
		})
		if !ok {
			if time.Since(lastConsumedAt) > p.IdleTimeout {
				logger.Infof(ctx, "no frames for %v, assuming the end of the stream", p.IdleTimeout)
				return nil
			}
			time.Sleep(time.Millisecond)
			continue
		}
		consumed++
		lastConsumedAt = time.Now()
		if !v.Playing() {
			stepsLeft--
		}
		if pending != nil {
			if err := p.Snapshots.Save(ctx, pending); err != nil {
				return err
			}
			pending = nil
		}
		if p.MaxFrames > 0 && consumed >= p.MaxFrames {
			logger.Infof(ctx, "reached the limit of %d frames", p.MaxFrames)
			return nil
		}
	}
}
