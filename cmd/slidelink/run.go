package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/slidelink/internal/control"
	"github.com/srg/slidelink/internal/convert"
	"github.com/srg/slidelink/internal/groutine"
	"github.com/srg/slidelink/internal/library"
	"github.com/srg/slidelink/internal/link"
	"github.com/srg/slidelink/internal/queue"
	"github.com/srg/slidelink/internal/session"
	"github.com/srg/slidelink/internal/ui"
	"github.com/srg/slidelink/pkg/config"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the remote and drive presentations",
	Long: `Start the controller: scan the presentations directory, bring up the
terminal UI, and maintain the link to the remote.

The remote's UP/DOWN/SELECT buttons move the selection and start a
presentation; while presenting they page through the deck and SELECT
ends it. The link reconnects automatically whenever the remote drops
off. Keyboard arrows and Enter do the same without the remote; q quits.`,
	RunE: runController,
}

var runConfigPath string

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "slidelink.yaml", "Path to the YAML configuration file")
}

func runController(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return err
	}

	// --log-level overrides the file setting
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	entries, err := library.Scan(cfg.PresentationsDir, logger)
	if err != nil {
		return err
	}
	list := library.NewList(entries)

	term := ui.NewTerminal(os.Stdout, list)
	converter := convert.NewLibreOfficeConverter(logger)
	sess := session.New(converter, term, logger)
	dispatcher := control.NewDispatcher(list, sess, term, logger)
	dispatcher.Debounce = cfg.Debounce.Std()

	transport := link.NewBLETransport(logger)
	supervisor := link.NewSupervisor(transport, nil, cfg.SupervisorConfig(), nil, logger)

	// State transitions cross from the link goroutine to the UI goroutine
	// through a small ring; only the latest states matter.
	states := queue.NewRingChannel[link.State](4)
	supervisor.SetStateListener(states.Send)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	keyboard := ui.NewKeyboard(os.Stdin, logger)
	if err := keyboard.Start(); err != nil {
		return err
	}
	defer keyboard.Stop()

	groutine.Go(ctx, "link-supervisor", supervisor.Run)

	term.Render()

	// UI loop: the single consumer of remote commands, key events, and
	// link-state updates. Everything the dispatcher and session touch is
	// mutated only here.
	commands := supervisor.Commands()
	for {
		select {
		case <-ctx.Done():
			return nil

		case st := <-states.C():
			term.SetLinkState(st)

		case remoteCmd, ok := <-commands:
			if !ok {
				// Supervisor exited; ctx cancellation follows.
				commands = nil
				continue
			}
			dispatcher.HandleCommand(ctx, remoteCmd, time.Now())

		case ev, ok := <-keyboard.Events():
			if !ok || ev.Quit {
				cancel()
				return nil
			}
			dispatcher.HandleCommand(ctx, ev.Cmd, time.Now())
		}
	}
}
