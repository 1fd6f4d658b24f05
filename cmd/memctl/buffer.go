package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/charmap"

	"github.com/joshuapare/memkit/bytebuf"
)

func init() {
	rootCmd.AddCommand(newBufferCmd())
}

func newBufferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buffer <type:value>...",
		Short: "Encode typed values with the byte buffer and dump the bytes",
		Long: `The buffer command writes each argument into a byte buffer using the
little-endian encoding, prints a hex dump, then reads everything back and
checks it round-trips.

Types: bool, i8, i16, i32, i64, u8, u16, u32, u64, f32, f64, str (int32
length prefix), fixedN (N zero-padded bytes, e.g. fixed16) and cp1252
(Windows-1252 with an int32 length prefix).

Example:
  memctl buffer i32:42 str:hi
  memctl buffer u16:65535 fixed8:name f64:3.25 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuffer(args)
		},
	}
}

// field is one parsed type:value argument.
type field struct {
	kind  string
	width int
	raw   string
}

func parseField(arg string) (field, error) {
	kind, raw, ok := strings.Cut(arg, ":")
	if !ok {
		return field{}, fmt.Errorf("argument %q is not type:value", arg)
	}
	f := field{kind: kind, raw: raw}
	if w, found := strings.CutPrefix(kind, "fixed"); found {
		n, err := strconv.Atoi(w)
		if err != nil || n <= 0 {
			return field{}, fmt.Errorf("invalid fixed width in %q", arg)
		}
		f.kind, f.width = "fixed", n
	}
	return f, nil
}

func (f field) write(b *bytebuf.Buffer) error {
	parseInt := func(bits int) (int64, error) { return strconv.ParseInt(f.raw, 0, bits) }
	parseUint := func(bits int) (uint64, error) { return strconv.ParseUint(f.raw, 0, bits) }

	switch f.kind {
	case "bool":
		v, err := strconv.ParseBool(f.raw)
		if err != nil {
			return err
		}
		return b.WriteBool(v)
	case "i8", "i16", "i32", "i64":
		bits, _ := strconv.Atoi(f.kind[1:])
		v, err := parseInt(bits)
		if err != nil {
			return err
		}
		switch bits {
		case 8:
			return b.WriteInt8(int8(v))
		case 16:
			return b.WriteInt16(int16(v))
		case 32:
			return b.WriteInt32(int32(v))
		default:
			return b.WriteInt64(v)
		}
	case "u8", "u16", "u32", "u64":
		bits, _ := strconv.Atoi(f.kind[1:])
		v, err := parseUint(bits)
		if err != nil {
			return err
		}
		switch bits {
		case 8:
			return b.WriteUint8(uint8(v))
		case 16:
			return b.WriteUint16(uint16(v))
		case 32:
			return b.WriteUint32(uint32(v))
		default:
			return b.WriteUint64(v)
		}
	case "f32":
		v, err := strconv.ParseFloat(f.raw, 32)
		if err != nil {
			return err
		}
		return b.WriteFloat32(float32(v))
	case "f64":
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return err
		}
		return b.WriteFloat64(v)
	case "str":
		return b.WriteString(f.raw)
	case "fixed":
		return b.WriteFixedString(f.raw, f.width)
	case "cp1252":
		return b.WriteEncodedString(f.raw, charmap.Windows1252)
	default:
		return fmt.Errorf("unknown type %q", f.kind)
	}
}

// read decodes the field back and formats it the way it was given.
func (f field) read(b *bytebuf.Buffer) (string, error) {
	var (
		v   any
		err error
	)
	switch f.kind {
	case "bool":
		v, err = b.ReadBool()
	case "i8":
		v, err = b.ReadInt8()
	case "i16":
		v, err = b.ReadInt16()
	case "i32":
		v, err = b.ReadInt32()
	case "i64":
		v, err = b.ReadInt64()
	case "u8":
		v, err = b.ReadUint8()
	case "u16":
		v, err = b.ReadUint16()
	case "u32":
		v, err = b.ReadUint32()
	case "u64":
		v, err = b.ReadUint64()
	case "f32":
		v, err = b.ReadFloat32()
	case "f64":
		v, err = b.ReadFloat64()
	case "str":
		v, err = b.ReadString()
	case "fixed":
		v, err = b.ReadFixedString(f.width)
	case "cp1252":
		v, err = b.ReadEncodedString(charmap.Windows1252)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}

type bufferReport struct {
	Length  int      `json:"length"`
	Hex     string   `json:"hex"`
	Decoded []string `json:"decoded"`
}

func runBuffer(args []string) error {
	fields := make([]field, 0, len(args))
	for _, arg := range args {
		f, err := parseField(arg)
		if err != nil {
			return err
		}
		fields = append(fields, f)
	}

	b, err := bytebuf.New(64)
	if err != nil {
		return err
	}
	defer b.Close()

	for _, f := range fields {
		if err := f.write(b); err != nil {
			return fmt.Errorf("%s:%s: %w", f.kind, f.raw, err)
		}
		printVerbose("%-8s -> offset %d\n", f.kind, b.Position())
	}

	b.Reset()
	decoded := make([]string, 0, len(fields))
	for _, f := range fields {
		v, err := f.read(b)
		if err != nil {
			return fmt.Errorf("read back %s: %w", f.kind, err)
		}
		decoded = append(decoded, v)
	}

	data := b.Bytes()
	if jsonOut {
		return printJSON(bufferReport{Length: len(data), Hex: hex.EncodeToString(data), Decoded: decoded})
	}
	printInfo("%d bytes\n", len(data))
	printInfo("%s", hex.Dump(data))
	printInfo("Decoded: %s\n", strings.Join(decoded, " "))
	return nil
}
