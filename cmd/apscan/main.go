package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"

	"github.com/RMahshie/apscanner/internal/agent"
	"github.com/RMahshie/apscanner/internal/config"
	"github.com/RMahshie/apscanner/internal/logger"
	"github.com/RMahshie/apscanner/internal/scanner"
	"github.com/RMahshie/apscanner/internal/storage"
	"github.com/RMahshie/apscanner/internal/suggestion"
	"github.com/RMahshie/apscanner/internal/uploader"
)

type options struct {
	place    string
	locale   string
	load     string
	save     string
	daemon   bool
	server   string
	interval time.Duration
	iface    string
	seed     uint64
	seeded   bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.Logger = logger.Build(logger.Config{
		Level:     cfg.Log.Level,
		Console:   true,
		Component: "apscan",
	}, os.Stderr)

	var opts options
	fs := flag.NewFlagSet("apscan", flag.ExitOnError)
	fs.StringVarP(&opts.place, "place", "p", "", "locale where the reading is taken; scans once")
	fs.StringVarP(&opts.load, "load", "l", "", "load a reading from a JSON file and print it")
	fs.StringVarP(&opts.save, "save", "s", "", "save the reading to a JSON file instead of printing it")
	fs.BoolVarP(&opts.daemon, "daemon", "d", false, "scan and upload periodically")
	fs.StringVar(&opts.server, "server", cfg.Scanner.ServerURL, "server readings are uploaded to in daemon mode")
	fs.DurationVar(&opts.interval, "interval", cfg.Scanner.Interval, "time between scans in daemon mode")
	fs.StringVar(&opts.iface, "interface", cfg.Scanner.Interface, "wireless interface to scan (default: first one iw reports)")
	fs.Uint64Var(&opts.seed, "seed", 0, "seed for the suggestion draws (default: random)")
	_ = fs.Parse(os.Args[1:])
	opts.seeded = fs.Changed("seed")
	opts.locale = cfg.Scanner.Locale

	if err := run(context.Background(), opts, fs); err != nil {
		log.Error().Err(err).Msg("apscan failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, flags *flag.FlagSet) error {
	osFs := afero.NewOsFs()

	switch {
	case opts.daemon:
		// LOCALE only stands in for --place when running as a daemon
		if opts.place == "" {
			opts.place = opts.locale
		}
		if opts.place == "" {
			return fmt.Errorf("--daemon requires --place or LOCALE")
		}
		a := newAgent(opts, uploader.NewClient(opts.server))
		if err := a.Start(ctx, opts.interval); err != nil {
			return err
		}
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		a.Stop()
		return nil

	case opts.place != "":
		reading, err := newAgent(opts, nil).Measure(ctx)
		if err != nil {
			return err
		}
		if opts.save != "" {
			if err := storage.SaveReadingFile(osFs, opts.save, reading); err != nil {
				return err
			}
			log.Info().Str("file", opts.save).Msg("Reading saved")
			return nil
		}
		return suggestion.WriteReport(os.Stdout, reading)

	case opts.load != "":
		reading, err := storage.LoadReadingFile(osFs, opts.load)
		if err != nil {
			return err
		}
		return suggestion.WriteReport(os.Stdout, reading)

	default:
		fmt.Fprintln(os.Stderr, "Usage: apscan [flags]")
		flags.PrintDefaults()
		return nil
	}
}

func newAgent(opts options, up agent.Uploader) *agent.Agent {
	var rng *rand.Rand
	if opts.seeded {
		rng = rand.New(rand.NewPCG(opts.seed, opts.seed))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	var scanOpts []scanner.Option
	if opts.iface != "" {
		scanOpts = append(scanOpts, scanner.WithInterface(opts.iface))
	}
	return agent.New(scanner.NewIWScanner(scanOpts...), suggestion.NewEngine(rng), up, opts.place)
}
