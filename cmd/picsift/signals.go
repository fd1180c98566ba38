package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"picsift/internal/runctl"
)

// bindSignals routes SIGINT and SIGTERM to cancellation, SIGUSR1 to pause and
// SIGUSR2 to resume. The returned function restores default handling.
func bindSignals(ctx context.Context, ctl *runctl.Controller, say func(string)) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	unbind := ctl.Bind(ctx)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case sig := <-sigs:
				switch sig {
				case syscall.SIGUSR1:
					ctl.Pause()
					say("Paused. Send SIGUSR2 to resume.")
				case syscall.SIGUSR2:
					ctl.Resume()
					say("Resumed.")
				default:
					say("Cancelling...")
					ctl.Cancel()
					cancel()
				}
			case <-done:
				return
			}
		}
	}()

	return ctx, func() {
		signal.Stop(sigs)
		close(done)
		unbind()
		cancel()
	}
}
