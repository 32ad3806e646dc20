// Bones - animatronic talking skull driven by a live speech session.
// Captures the room, streams it to Gemini Live, pitch-shifts the reply into
// the skull's voice, and moves the jaw in sync with the audio.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-bones/internal/config"
	"github.com/teslashibe/go-bones/internal/log"
	"github.com/teslashibe/go-bones/pkg/animatronic"
	"github.com/teslashibe/go-bones/pkg/audioio"
	"github.com/teslashibe/go-bones/pkg/pipeline"
	"github.com/teslashibe/go-bones/pkg/session"
)

func main() {
	noBLE := flag.Bool("no-ble", false, "Run without connecting to the BLE device")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	device := flag.String("device", "", "BLE device name (overrides BONES_DEVICE_NAME)")
	backend := flag.String("backend", "", "Audio backend: portaudio, mock")
	scripted := flag.Bool("scripted", false, "Switch the skull to scripted-motion mode at startup")
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Init(level)

	deviceName := config.DeviceName()
	if *device != "" {
		deviceName = *device
	}

	var controller animatronic.Controller
	if *noBLE {
		log.Info("running in --no-ble mode, using mock controller")
		controller = animatronic.NewMockController(log.With("component", "animatronic"))
	} else {
		controller = animatronic.NewBLEController(deviceName, log.With("component", "animatronic"))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := controller.Connect(ctx); err != nil {
		log.Error("animatronic connect failed", "error", err)
		os.Exit(1)
	}
	defer controller.Close()

	if err := controller.SendCommand(ctx, animatronic.CmdStart); err != nil {
		log.Warn("start command failed", "error", err)
	}
	if *scripted {
		if err := controller.SendCommand(ctx, animatronic.CmdModeScripted); err != nil {
			log.Warn("mode command failed", "error", err)
		}
	}
	defer func() {
		// Shutdown context may already be cancelled; the skull still needs
		// its stop command.
		if err := controller.SendCommand(context.Background(), animatronic.CmdStop); err != nil {
			log.Warn("stop command failed", "error", err)
		}
	}()

	if err := run(ctx, controller, *backend); err != nil {
		log.Error("pipeline failed", "error", err)
		os.Exit(1)
	}
	log.Info("exiting")
}

// run builds and runs the audio pipeline. Devices and the session are
// scoped here so every exit path releases all of them.
func run(ctx context.Context, controller animatronic.Controller, backend string) error {
	cfg := pipeline.DefaultConfig()
	if backend != "" {
		cfg.Capture.Backend = audioio.Backend(backend)
		cfg.Playback.Backend = audioio.Backend(backend)
	}

	source, err := audioio.NewSource(cfg.Capture, log.With("component", "capture"))
	if err != nil {
		return err
	}
	defer source.Close()

	sink, err := audioio.NewSink(cfg.Playback, log.With("component", "playback"))
	if err != nil {
		return err
	}
	defer sink.Close()

	sessCfg := session.DefaultConfig()
	sessCfg.APIKey = config.GeminiAPIKey()
	sessCfg.InputSampleRate = cfg.Capture.SampleRate
	sessCfg.OutputSampleRate = cfg.Playback.SampleRate

	sess, err := session.NewClient(sessCfg, log.With("component", "session"))
	if err != nil {
		return err
	}
	if err := sess.Connect(); err != nil {
		return err
	}
	defer sess.Close()

	p, err := pipeline.New(cfg, source, sink, sess, controller, log.L())
	if err != nil {
		return err
	}

	log.Info("speak now", "capture_rate", cfg.Capture.SampleRate, "playback_rate", cfg.Playback.SampleRate)
	return p.Run(ctx)
}
