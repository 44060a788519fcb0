package main

import (
	"fmt"
	"strings"

	"modbus-core/internal/register"
)

// ConvertCommand parses one text value under a given register wire format
// and prints its canonical decimal and hex forms, independent of any
// running Instance — grounded on original_source/modbus/src/cli.rs's
// Convert subcommand and register/src/value.rs's as_str/as_hex_str.
type ConvertCommand struct {
	Kind   string `long:"kind" description:"wire kind: ascii,u8,u16,u32,u64,u128,i8,i16,i32,i64,i128,f32,f64" required:"true"`
	Endian string `long:"endian" default:"big" description:"byte order: big or little (ignored for ascii)"`
	Width  int    `long:"width" default:"1" description:"register width, in words, for ascii values"`
	Align  string `long:"align" default:"left" description:"ascii padding alignment: left or right"`

	Args struct {
		Value string `positional-arg-name:"value" required:"1"`
	} `positional-args:"yes" required:"yes"`
}

func (c *ConvertCommand) Execute(args []string) error {
	format, err := c.format()
	if err != nil {
		return fmt.Errorf("mbctl: convert: %w", err)
	}

	regs, err := register.Encode(format, c.Args.Value)
	if err != nil {
		return fmt.Errorf("mbctl: convert: encode %q: %w", c.Args.Value, err)
	}
	value, err := register.Decode(format, regs)
	if err != nil {
		return fmt.Errorf("mbctl: convert: decode: %w", err)
	}

	fmt.Printf("decimal: %s\n", value.AsDecimalString())
	fmt.Printf("hex:     %s\n", value.AsHexString())
	return nil
}

func (c *ConvertCommand) format() (register.Format, error) {
	kind := strings.ToLower(c.Kind)
	if kind == "ascii" {
		align := register.AlignLeft
		if strings.EqualFold(c.Align, "right") {
			align = register.AlignRight
		}
		return register.NewAscii(c.Width, align), nil
	}
	parsed, err := register.ParseKind(kind)
	if err != nil {
		return register.Format{}, err
	}
	endian := register.BigEndian
	if strings.EqualFold(c.Endian, "little") {
		endian = register.LittleEndian
	}
	return register.NewNumeric(parsed, endian), nil
}
