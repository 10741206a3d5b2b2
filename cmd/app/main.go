package main

import (
	"flag"
	"log"
	"os"

	"FinCast/internal/di"
	"FinCast/pkg/config"

	"github.com/pkg/profile"
)

var exitCode int

func main() {
	run()
	os.Exit(exitCode)
}

// run holds the deferred profile stop so it fires before exit.
func run() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	profileMode := flag.String("profile", "", "write a profile to the working directory: cpu, mem or block")
	flag.Parse()

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "block":
		defer profile.Start(profile.BlockProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		log.Fatalf("unknown profile mode %q", *profileMode)
	}

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		exitCode = 1
	}
}
