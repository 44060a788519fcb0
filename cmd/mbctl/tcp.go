package main

import (
	"fmt"

	"modbus-core/internal/instance"
)

// TcpCommand runs the configured endpoint over TCP, as a client
// (--client) or a server, grounded on original_source/modbus/src/main.rs's
// Commands::Tcp arm.
type TcpCommand struct{}

func (c *TcpCommand) Execute(args []string) error {
	cfg, mem, err := loadEndpoint()
	if err != nil {
		return err
	}

	tp, err := cfg.TCPParams()
	if err != nil {
		return fmt.Errorf("mbctl: tcp parameters: %w", err)
	}

	var in *instance.Instance
	if opts.Client {
		in = instance.NewTCPClient(cfg.ID, tp, cfg.NetConfig(), mem)
	} else {
		in = instance.NewTCPServer(cfg.ID, tp.Address, mem)
	}

	return runInstance(cfg, in)
}
