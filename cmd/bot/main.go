// ====================================
// File: cmd/bot/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/config"
	"github.com/rovshanmuradov/solana-bundler/internal/logger"
	"github.com/rovshanmuradov/solana-bundler/internal/ui"
)

const usageText = `Usage: bot [-config path] <command> [flags]

Commands:
  run      execute every task in the tasks file
  quote    price a Pump.fun or Raydium trade without sending it
  listen   print new Pump.fun tokens, optionally buying them
  decode   fetch an account and print its decoded layout
  watch    follow the value of a Pump.fun position

Run "bot <command> -h" for command flags.
`

// app carries what every command needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	out    *ui.Renderer
	stdout io.Writer
}

func main() {
	os.Exit(execute())
}

func execute() int {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usageText) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}

	appLogger, closeLog, err := logger.New(logger.Options{Debug: cfg.DebugLogging, File: cfg.LogFile})
	if err != nil {
		log.Printf("Failed to init logger: %v", err)
		return 1
	}
	defer func() {
		if err := closeLog(); err != nil {
			log.Printf("Failed to flush logs: %v", err)
		}
	}()

	a := &app{cfg: cfg, logger: appLogger, out: ui.NewRenderer(), stdout: os.Stdout}

	var runErr error
	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "run":
		runErr = a.run(ctx, args)
	case "quote":
		runErr = a.quote(ctx, args)
	case "listen":
		runErr = a.listen(ctx, args)
	case "decode":
		runErr = a.decode(ctx, args)
	case "watch":
		runErr = a.watch(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		return 2
	}

	if runErr != nil {
		appLogger.Error("Command failed", zap.String("command", flag.Arg(0)), zap.Error(runErr))
		return 1
	}
	return 0
}

func (a *app) print(s string) {
	fmt.Fprintln(a.stdout, s)
}
