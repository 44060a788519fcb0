package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"modbus-core/internal/config"
	"modbus-core/internal/instance"
	"modbus-core/internal/mbmem"
)

// loadEndpoint reads and applies the configuration file named by the
// --config flag, mirroring original_source/modbus/src/main.rs's
// Config::read-then-Memory::add_ranges sequence.
func loadEndpoint() (config.EndpointConfig, *mbmem.Memory, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.EndpointConfig{}, nil, fmt.Errorf("mbctl: load config: %w", err)
	}
	mem := mbmem.New()
	if err := cfg.ApplyMemory(mem); err != nil {
		return config.EndpointConfig{}, nil, fmt.Errorf("mbctl: apply memory ranges: %w", err)
	}
	return cfg, mem, nil
}

// logSink returns a sinks.LogFunc that only prints when --verbose is set,
// matching the teacher's log.Printf-on-notable-event style.
func logSink(verbose bool) func(string) {
	if !verbose {
		return nil
	}
	return func(msg string) { log.Print(msg) }
}

// runInstance seeds a client Instance's operations (if any), starts it, and
// blocks until SIGINT/SIGTERM, then stops it cleanly — the shared body of
// the tcp and rtu subcommands, generalizing cmd/server/main.go's
// signal.NotifyContext-then-block-until-Done shape onto the Instance
// façade.
func runInstance(cfg config.EndpointConfig, in *instance.Instance) error {
	if opts.Client {
		ops, err := cfg.ToOperations()
		if err != nil {
			return fmt.Errorf("mbctl: build operations: %w", err)
		}
		in.SetOperations(ops)
	}

	if err := in.Start(logSink(opts.Verbose), nil); err != nil {
		return fmt.Errorf("mbctl: start %s instance: %w", in.Kind, err)
	}

	started := time.Now()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log.Printf("mbctl: %s endpoint %q running, press ctrl-c to stop", in.Kind, cfg.ID)
	<-ctx.Done()

	if err := in.Stop(); err != nil {
		return fmt.Errorf("mbctl: stop %s instance: %w", in.Kind, err)
	}
	log.Printf("mbctl: %s endpoint %q stopped (started %s)", in.Kind, cfg.ID, humanize.Time(started))
	return nil
}
