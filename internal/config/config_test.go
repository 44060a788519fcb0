package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"modbus-core/internal/mbmem"
	"modbus-core/internal/mbproto"
	"modbus-core/internal/mbrange"
)

const sampleJSON = `{
	"id": "ep0",
	"role": "client",
	"transport": "tcp",
	"net": {"interval_ms": 250, "delay_ms": 100, "timeout_ms": 2000},
	"tcp": {"ip": "10.0.0.5", "port": 502},
	"memory": [
		{"slave": 1, "table": "register", "access": "combined", "start": 0, "length": 10}
	],
	"operations": [
		{"slave": 1, "function": "read_holding_registers", "start": 0, "length": 4}
	],
	"definitions": [
		{"name": "setpoint", "slave": 1, "table": "register", "address": 2, "kind": "u16", "endian": "big"}
	]
}`

const sampleTOML = `
id = "ep1"
role = "server"
transport = "rtu"

[net]
interval_ms = 0
delay_ms = 0
timeout_ms = 0

[rtu]
path = "/dev/ttyUSB0"
baud_rate = 19200
slave = 1
parity = "N"
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSONByExtension(t *testing.T) {
	path := writeTemp(t, "endpoint.json", sampleJSON)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ep0", cfg.ID)
	require.Equal(t, "10.0.0.5", cfg.TCP.IP)

	params, err := cfg.TCPParams()
	require.NoError(t, err)
	require.Equal(t, "10.0.0.5:502", params.Address)

	net := cfg.NetConfig()
	require.Equal(t, 250, net.IntervalMs)

	mem := mbmem.New()
	require.NoError(t, cfg.ApplyMemory(mem))
	require.True(t, mem.Readable(mbmem.Key{Endpoint: "ep0", Slave: 1, Table: mbmem.Register}, mbmem.Register, mbrange.New(0, 10)))

	ops, err := cfg.ToOperations()
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.Equal(t, mbproto.ReadHoldingRegisters, ops[0].Func)

	defs, err := cfg.ToDefinitions()
	require.NoError(t, err)
	require.Contains(t, defs, "setpoint")
	require.Equal(t, uint16(2), uint16(defs["setpoint"].Range.Start))
}

func TestLoadTOMLByExtension(t *testing.T) {
	path := writeTemp(t, "endpoint.toml", sampleTOML)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ep1", cfg.ID)
	require.Equal(t, "rtu", cfg.Transport)

	sp, err := cfg.SerialParams()
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB0", sp.Address)
	require.Equal(t, 19200, sp.BaudRate)
}

func TestLoadSniffsUnknownExtension(t *testing.T) {
	path := writeTemp(t, "endpoint.conf", sampleJSON)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ep0", cfg.ID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path.json")
	require.Error(t, err)
}
