package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/bot"
)

func (a *app) run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	tasksFile := fs.String("tasks", a.cfg.TasksFile, "Path to tasks file")
	simulate := fs.Bool("simulate", a.cfg.Simulate, "Simulate direct transactions instead of sending them")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a.cfg.TasksFile = *tasksFile
	a.cfg.Simulate = *simulate

	svc, err := bot.NewServices(a.cfg, a.logger)
	if err != nil {
		return err
	}
	runner, err := bot.NewRunner(a.cfg, svc, a.logger)
	if err != nil {
		return err
	}

	runErr := runner.Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := runner.Close(closeCtx); err != nil {
		a.logger.Warn("Shutdown incomplete", zap.Error(err))
	}

	if outcomes := runner.Outcomes(); len(outcomes) > 0 {
		a.print(a.outcomeTable(outcomes))
		a.print(a.out.Muted("run " + runner.RunID()))
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func (a *app) outcomeTable(outcomes []*bot.Outcome) string {
	rows := make([][]string, 0, len(outcomes))
	for _, out := range outcomes {
		status := a.out.Status(true, "ok")
		detail := ""
		if out.Err != nil {
			status = a.out.Status(false, "failed")
			detail = out.Err.Error()
		} else if out.Result != nil {
			detail = resultDetail(out)
		}
		rows = append(rows, []string{
			out.Task.Name,
			string(out.Task.Operation),
			out.Venue,
			out.Submitter,
			status,
			out.Elapsed.Round(time.Millisecond).String(),
			detail,
		})
	}
	return a.out.Table([]string{"task", "operation", "venue", "via", "status", "elapsed", "detail"}, rows)
}

func resultDetail(out *bot.Outcome) string {
	if out.Result.BundleID != "" {
		return "bundle " + shorten(out.Result.BundleID)
	}
	if len(out.Result.Signatures) == 0 {
		return ""
	}
	s := shorten(out.Result.Signatures[0].String())
	if n := len(out.Result.Signatures); n > 1 {
		s += fmt.Sprintf(" (+%d)", n-1)
	}
	return s
}

func shorten(s string) string {
	if len(s) <= 16 {
		return s
	}
	return s[:8] + "..." + s[len(s)-8:]
}
