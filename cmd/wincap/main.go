// Command wincap is the CLI glue around the capture orchestrator: it parses
// flags into params.Params, wires structured logging and the cancellation
// bridge, and runs one recording to completion.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wincap.dev/wincap/orchestrator"
	"wincap.dev/wincap/params"
	"wincap.dev/wincap/signalbridge"
)

var (
	outPath          string
	durationSec      int
	enableVideo      bool
	enableSystem     bool
	enableMicrophone bool
	fps              int
	monitorIndex     int
	cursorMode       string
	regionFlag       string
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return exitCode
}

// exitCode is set by runCapture so main can report it after cobra returns;
// cobra's own Execute only distinguishes "an error occurred" from success.
var exitCode int

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wincap",
		Short:         "Record the desktop and/or audio to an MP4 file",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture()
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default: <timestamp>.mp4 in the working directory)")
	cmd.Flags().IntVarP(&durationSec, "time", "t", 0, "duration in seconds; 0 means unlimited")
	cmd.Flags().BoolVarP(&enableVideo, "video", "v", false, "capture the desktop")
	cmd.Flags().BoolVarP(&enableSystem, "system", "s", false, "capture system (loopback) audio")
	cmd.Flags().BoolVarP(&enableMicrophone, "microphone", "m", false, "capture the default microphone")
	cmd.Flags().IntVar(&fps, "fps", 30, "target frame rate, 1..120")
	cmd.Flags().IntVar(&monitorIndex, "monitor", 0, "zero-based monitor index to duplicate")
	cmd.Flags().StringVar(&cursorMode, "cursor", "on", "cursor visibility: on|off (validated; the capture backend does not read it)")
	cmd.Flags().StringVar(&regionFlag, "region", "", "capture region \"x,y,w,h\" (validated; frames still cover the full monitor)")

	return cmd
}

func runCapture() error {
	baseLogger, err := zap.NewProduction()
	if err != nil {
		baseLogger = zap.NewNop()
	}
	defer baseLogger.Sync()

	// Every recording gets its own correlation id so log lines from
	// overlapping or successive runs in one long-lived process (e.g. a
	// future daemon/TUI front-end) stay disambiguated.
	logger := baseLogger.With(zap.String("recording_id", uuid.NewString()))

	region, regionEnabled, err := parseRegion(regionFlag)
	if err != nil {
		exitCode = 1
		return err
	}

	cursorEnabled, err := parseCursor(cursorMode)
	if err != nil {
		exitCode = 1
		return err
	}

	out := outPath
	if out == "" {
		out = time.Now().Format("060102150405") + ".mp4"
	}

	p := params.Params{
		OutputPath:       out,
		FPS:              fps,
		Duration:         time.Duration(durationSec) * time.Second,
		EnableVideo:      enableVideo,
		EnableSystem:     enableSystem,
		EnableMicrophone: enableMicrophone,
		MonitorIndex:     monitorIndex,
		CursorEnabled:    cursorEnabled,
		Region:           region,
		RegionEnabled:    regionEnabled,
	}

	mode, err := params.Resolve(p)
	if err != nil {
		exitCode = 1
		return err
	}

	bridge := signalbridge.New(logger)
	defer bridge.Close()

	var running atomic.Bool
	running.Store(true)
	stopWatchdog := bridge.WatchEmergencyTimeout(running.Load)
	defer stopWatchdog()

	cb := orchestrator.Callbacks{
		Status: func(msg string) {
			logger.Info(msg)
		},
		Progress: func(frameCount int, elapsedMS int64) {
			if frameCount%30 == 0 {
				logger.Info("capture progress", zap.Int("frames", frameCount), zap.Int64("elapsed_ms", elapsedMS))
			}
		},
	}

	stats, err := orchestrator.Run(mode, orchestrator.DefaultDependencies(), cb, bridge.Cancelled)
	running.Store(false)
	if err != nil {
		logger.Error("recording failed", zap.Error(err))
		exitCode = 1
		return err
	}

	logger.Info("recording finished",
		zap.Int("total_frames", stats.TotalFrames),
		zap.Int("failed_frames", stats.FailedFrames),
		zap.Int64("duration_ms", stats.RecordingDurationMS),
		zap.Bool("audio_enabled", stats.AudioEnabled),
		zap.Bool("cancelled", stats.Cancelled),
		zap.String("watchdog", stats.WatchdogKind),
		zap.Strings("downgrades", stats.Downgrades),
	)
	exitCode = 0
	return nil
}

func parseCursor(mode string) (bool, error) {
	switch strings.ToLower(mode) {
	case "", "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --cursor value %q, want on or off", mode)
	}
}

func parseRegion(s string) (params.Region, bool, error) {
	if s == "" {
		return params.Region{}, false, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return params.Region{}, false, fmt.Errorf("invalid --region value %q, want \"x,y,w,h\"", s)
	}
	var nums [4]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return params.Region{}, false, fmt.Errorf("invalid --region value %q: %w", s, err)
		}
		nums[i] = n
	}
	return params.Region{X: nums[0], Y: nums[1], W: nums[2], H: nums[3]}, true, nil
}
