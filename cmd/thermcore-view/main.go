// Command thermcore-view opens the thermal sensor, runs the acquisition
// and calibration pipeline, and prints a one-line-per-frame summary to
// stdout. It has no image rendering of its own; a real display
// collaborator belongs in a separate, GUI-capable binary (§6 Non-goal).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	thermcore "github.com/thermview/thermcore"
	"github.com/thermview/thermcore/internal/logging"
)

// consoleDisplay is a minimal Display that prints frame stats, standing
// in for a real renderer (out of scope per §6).
type consoleDisplay struct {
	every int
	n     uint64
}

func (c *consoleDisplay) Emit(f *thermcore.Frame) {
	c.n++
	if c.every > 0 && c.n%uint64(c.every) != 0 {
		return
	}
	fmt.Printf("frame=%d id=%d temp_raw=%d min=%d max=%d fps=%.1f\n",
		f.FrameNumber, f.ID, f.SensorTemperature, f.Stats.Min, f.Stats.Max, f.Stats.FPS)
}

func main() {
	var (
		verbose  = flag.Bool("v", false, "verbose output")
		recal    = flag.Bool("recalibrate", false, "enable rolling recalibration")
		printEvery = flag.Int("print-every", 30, "print one summary line every N frames")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	params := thermcore.DefaultParams()
	params.RecalibrationEnabled = *recal

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	display := &consoleDisplay{every: *printEvery}
	session, err := thermcore.Open(ctx, params, thermcore.Options{
		Logger:  logger,
		Display: display,
	})
	if err != nil {
		logger.Error("failed to open sensor session", "error", err)
		os.Exit(1)
	}

	logger.Info("sensor session open", "state", session.State().String())
	fmt.Printf("Press Ctrl+C to stop...\n")
	fmt.Printf("Send SIGUSR1 (kill -USR1 %d) to dump goroutine stacks\n", os.Getpid())

	stackDumpCh := make(chan os.Signal, 1)
	signal.Notify(stackDumpCh, syscall.SIGUSR1)
	go func() {
		for range stackDumpCh {
			buf := make([]byte, 1024*1024)
			n := runtime.Stack(buf, true)
			fmt.Fprintf(os.Stderr, "\n=== GOROUTINE STACK DUMP ===\n%s\n", buf[:n])
			filename := fmt.Sprintf("thermcore-stacks-%d.txt", time.Now().Unix())
			if f, ferr := os.Create(filename); ferr == nil {
				fmt.Fprintf(f, "Goroutine stack dump at %s\n\n", time.Now().Format(time.RFC3339))
				f.Write(buf[:n])
				pprof.Lookup("goroutine").WriteTo(f, 2)
				f.Close()
				logger.Info("stack trace written to file", "file", filename)
			}
		}
	}()

	runErr := make(chan error, 1)
	go func() {
		runErr <- session.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("received shutdown signal")
		cancel()
		<-runErr
	case err := <-runErr:
		if err != nil && err != context.Canceled {
			logger.Error("application loop exited with error", "error", err)
		}
	}

	if err := session.Close(); err != nil {
		log.Printf("error closing session: %v", err)
	}
	snap := session.Metrics().Snapshot()
	fmt.Printf("frames=%d bad_length=%d resync_misses=%d queue_drops=%d calibration_blends=%d\n",
		snap.FramesReceived, snap.BadLengthFrames, snap.ResyncMisses, snap.QueueDrops, snap.CalibrationBlends)
}
