// Command mbctl is the uniform CLI surface over one endpoint configuration:
// run it as a TCP or RTU node (client or server, per --client), or convert a
// single register value and print its decimal and hex forms. Grounded on
// rolfl-modbus/mbcli's subcommand-per-file layout and go-flags.Commander
// usage, and on original_source/modbus/src/cli.rs's ArgParser
// (--config/--verbose/--client globals plus a tcp/rtu/convert subcommand
// split).
package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

// Options holds the flags shared by every subcommand, mirroring
// original_source/modbus/src/cli.rs's ArgParser.
type Options struct {
	Config  string `long:"config" description:"path to the endpoint configuration file (.json, .toml or .yaml)" required:"true"`
	Verbose bool   `short:"v" long:"verbose" description:"log every dispatched request or polled operation"`
	Client  bool   `long:"client" description:"run as a polling client instead of a server dispatcher"`

	Tcp     TcpCommand     `command:"tcp" description:"run the endpoint over TCP"`
	Rtu     RtuCommand     `command:"rtu" description:"run the endpoint over RTU (serial)"`
	Convert ConvertCommand `command:"convert" description:"encode a register value and print its decimal and hex forms"`
}

var opts Options

func main() {
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
