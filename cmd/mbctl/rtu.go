package main

import (
	"fmt"

	"modbus-core/internal/instance"
	"modbus-core/internal/transport"
)

// RtuCommand runs the configured endpoint over a serial RTU link, as a
// client (--client) or a server, grounded on
// original_source/modbus/src/main.rs's Commands::Rtu arm.
type RtuCommand struct{}

func (c *RtuCommand) Execute(args []string) error {
	cfg, mem, err := loadEndpoint()
	if err != nil {
		return err
	}

	sp, err := cfg.SerialParams()
	if err != nil {
		return fmt.Errorf("mbctl: rtu parameters: %w", err)
	}

	var in *instance.Instance
	if opts.Client {
		in = instance.NewRTUClient(cfg.ID, sp, cfg.NetConfig(), mem)
	} else {
		port, err := transport.OpenSerial(sp)
		if err != nil {
			return fmt.Errorf("mbctl: open serial port %s: %w", sp.Address, err)
		}
		in = instance.NewRTUServer(cfg.ID, port, mem)
	}

	return runInstance(cfg, in)
}
