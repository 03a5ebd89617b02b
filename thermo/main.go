package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/itohio/gotherm/pkg/config"
	"github.com/itohio/gotherm/pkg/scope"
)

func main() {
	var (
		configFlag   = flag.String("config", "config.yaml", "Configuration file path")
		portFlag     = flag.String("p", "", "Serial port tried first (e.g., COM3 or /dev/ttyACM0)")
		mockFlag     = flag.Bool("mock", false, "Use the simulated board instead of hardware")
		boardFlag    = flag.String("board", "", "Board type: firmata, ads1115 or mock (overrides config)")
		headlessFlag = flag.Bool("headless", false, "Print samples to the terminal instead of opening a window")
		noDialogFlag = flag.Bool("no-dialog", false, "Start measuring without showing the settings form")
		logFlag      = flag.String("o", "", "Log file path, empty disables the log (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Ports = preferPort(cfg.Serial.Ports, *portFlag)
	}
	if *boardFlag != "" {
		cfg.Board.Type = *boardFlag
	}
	if *mockFlag {
		cfg.Board.Type = config.BoardMock
	}
	if isFlagSet("o") {
		cfg.Measurement.LogFile = *logFlag
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if *headlessFlag {
		runHeadless(cfg)
		return
	}
	runWindow(cfg, !*noDialogFlag)
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// runHeadless measures until SIGINT or SIGTERM, printing samples to stdout.
func runHeadless(cfg *config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to board: %v", err)
	}
	defer session.Close()

	out, err := newOutputs(cfg, newConsole(cfg))
	if err != nil {
		log.Fatalf("Failed to create outputs: %v", err)
	}
	defer out.Close()

	if err := session.meter.Run(ctx, cfg.Measurement.Interval, out); err != nil && ctx.Err() == nil {
		log.Fatalf("Measurement stopped: %v", err)
	}
	fmt.Println("Measurement stopped")
}

// runWindow shows the plot window. With dialog set, the settings form is
// shown first and the measurement starts once it is dismissed.
func runWindow(cfg *config.Config, dialog bool) {
	application := app.NewWithID("com.itohio.gotherm")

	window := application.NewWindow("Temperature Measurement")
	window.Resize(fyne.NewSize(1000, 700))
	window.CenterOnScreen()

	plot := scope.New(cfg.Display, probeNames(cfg))
	window.SetContent(plot)

	state := &appState{
		cfg:    cfg,
		window: window,
		scope:  plot,
	}
	window.SetCloseIntercept(state.close)

	if dialog {
		showSettingsDialog(state, state.start)
	} else {
		state.start()
	}

	window.ShowAndRun()
}
