package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/SBanditaDas/facesentinel/pkg/config"
	"github.com/SBanditaDas/facesentinel/pkg/logging"
)

const version = "0.1.0"

// Command represents a CLI command.
type Command struct {
	Name        string
	Description string
	Usage       string
	Run         func(args []string) error
}

var (
	cfg      *config.Config
	commands map[string]*Command
)

func init() {
	commands = map[string]*Command{
		"enroll": {
			Name:        "enroll",
			Description: "Enroll the reference face from one or more images",
			Usage:       "facesentinel enroll <image> [image...]",
			Run:         cmdEnroll,
		},
		"verify": {
			Name:        "verify",
			Description: "Verify a single image against the enrolled face",
			Usage:       "facesentinel verify <image>",
			Run:         cmdVerify,
		},
		"watch": {
			Name:        "watch",
			Description: "Run a periodic verification session over a frame directory",
			Usage:       "facesentinel watch <framedir>",
			Run:         cmdWatch,
		},
		"remove": {
			Name:        "remove",
			Description: "Remove the enrolled reference profile",
			Usage:       "facesentinel remove",
			Run:         cmdRemove,
		},
		"config": {
			Name:        "config",
			Description: "Show current configuration",
			Usage:       "facesentinel config",
			Run:         cmdConfig,
		},
		"version": {
			Name:        "version",
			Description: "Show version information",
			Usage:       "facesentinel version",
			Run:         cmdVersion,
		},
		"help": {
			Name:        "help",
			Description: "Show help information",
			Usage:       "facesentinel help [command]",
			Run:         cmdHelp,
		},
	}
}

func main() {
	// Parse global flags
	configFile := flag.String("config", "", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	args := flag.Args()

	// Environment overrides, if a .env is present
	_ = godotenv.Load()

	// Load configuration
	var err error
	if *configFile != "" {
		cfg, err = config.Load(*configFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	cfg.ExpandPaths()

	logLevel := cfg.Logging.Level
	if *debug {
		logLevel = "debug"
	}
	if err := logging.Init(logLevel, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
	}

	logging.Debugf("FaceSentinel v%s starting", version)

	if len(args) < 1 {
		printUsage()
		os.Exit(0)
	}

	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmdName)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.Run(args[1:]); err != nil {
		logging.WithError(err).Errorf("Command '%s' failed", cmdName)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("FaceSentinel - Face Verification with Spoof Detection")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Usage: facesentinel [options] <command> [arguments]")
	fmt.Println("\nOptions:")
	fmt.Println("  -config <file>   Path to configuration file")
	fmt.Println("  -debug           Enable debug logging")
	fmt.Println("\nCommands:")
	for _, name := range []string{"enroll", "verify", "watch", "remove", "config", "version", "help"} {
		cmd := commands[name]
		fmt.Printf("  %-12s %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println("\nExamples:")
	fmt.Println("  facesentinel enroll me1.jpg me2.jpg   # Enroll from two samples")
	fmt.Println("  facesentinel verify visitor.jpg       # One-off verification")
	fmt.Println("  facesentinel watch ./frames           # Periodic session over frames")
	fmt.Println("\nRun 'facesentinel help <command>' for more information on a command.")
}

func cmdVersion(args []string) error {
	fmt.Printf("FaceSentinel v%s\n", version)
	fmt.Println("Face Verification with Spoof Detection")
	return nil
}

func cmdConfig(args []string) error {
	logging.Debug("Showing configuration")

	fmt.Println("Current Configuration:")
	fmt.Println("======================")
	fmt.Println()
	fmt.Println("[Verification]")
	fmt.Printf("  Threshold:       %.2f\n", cfg.Verification.Threshold)
	fmt.Printf("  High Cutoff:     %.2f\n", cfg.Verification.HighCutoff)
	fmt.Printf("  Very High:       %.2f\n", cfg.Verification.VeryHighCutoff)
	fmt.Printf("  Interval:        %d ms\n", cfg.Verification.IntervalMS)
	fmt.Println()
	fmt.Println("[Liveness]")
	fmt.Printf("  Threshold:       %.2f\n", cfg.Liveness.Threshold)
	fmt.Printf("  Motion Window:   %d\n", cfg.Liveness.MotionWindow)
	fmt.Println()
	fmt.Println("[Watchlist]")
	fmt.Printf("  Log Capacity:    %d\n", cfg.Watchlist.LogCapacity)
	fmt.Println()
	fmt.Println("[Detector]")
	fmt.Printf("  Model Path:      %s\n", cfg.Detector.ModelPath)
	fmt.Println()
	fmt.Println("[Storage]")
	fmt.Printf("  Data Dir:        %s\n", cfg.Storage.DataDir)
	fmt.Printf("  Encryption:      %t\n", cfg.Storage.EncryptionEnabled)
	fmt.Println()
	fmt.Println("[Logging]")
	fmt.Printf("  Level:           %s\n", cfg.Logging.Level)
	fmt.Printf("  File:            %s\n", cfg.Logging.File)

	return nil
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		printUsage()
		return nil
	}

	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	fmt.Printf("Command: %s\n", cmd.Name)
	fmt.Printf("Description: %s\n", cmd.Description)
	fmt.Printf("Usage: %s\n", cmd.Usage)

	switch cmdName {
	case "enroll":
		fmt.Println("\nEnrollment Process:")
		fmt.Println("  1. Provide one or more well-lit images of the same person")
		fmt.Println("  2. Features are extracted from each and averaged")
		fmt.Println("  3. The profile is encrypted and stored locally")
	case "watch":
		fmt.Println("\nWatch Process:")
		fmt.Println("  1. Frames are read from the directory in name order")
		fmt.Println("  2. Each frame is liveness-gated and verified")
		fmt.Println("  3. Unauthorized faces are clustered and logged")
		fmt.Println("  4. Press Ctrl-C to stop; a summary is printed at the end")
	case "config":
		fmt.Println("\nConfiguration Locations:")
		fmt.Println("  System: /etc/facesentinel/facesentinel.yaml")
		fmt.Println("  User:   ~/.config/facesentinel/facesentinel.yaml")
		fmt.Println("\nUse -config flag to specify a custom config file.")
	}

	return nil
}
