package main

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/speakez-llc/barewire/pkg/valuejson"
	"github.com/speakez-llc/barewire/pkg/wire"
)

type convertFlags struct {
	schema string
	typ    string
	in     string
	out    string
	zstd   bool
}

func (f *convertFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.schema, "schema", "s", "", "schema document (.yaml, .yml or .json)")
	cmd.Flags().StringVarP(&f.typ, "type", "t", "", "type to use instead of the schema root, e.g. Address or list<Person>")
	cmd.Flags().StringVarP(&f.in, "in", "i", "-", "input file, - for stdin")
	cmd.Flags().StringVarP(&f.out, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&f.zstd, "zstd", false, "zstd-compress the binary form (also enabled by compression.zstd)")
	_ = cmd.MarkFlagRequired("schema")
}

func (c *cli) encodeCmd() *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a JSON value into the BARE binary form",
		Long: `Encode a JSON value into the BARE binary form.

Examples:
  barewire encode --schema person.yaml --in person.json --out person.bin
  echo '{"id": 1}' | barewire encode -s record.yaml --zstd > record.bin.zst`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEncode(&f)
		},
	}
	f.register(cmd)
	return cmd
}

func (c *cli) runEncode(f *convertFlags) error {
	s, err := c.loadSchema(f.schema)
	if err != nil {
		return err
	}
	t, err := typeArg(s, f.typ)
	if err != nil {
		return err
	}
	in, err := c.readInput(f.in)
	if err != nil {
		return err
	}
	v, err := valuejson.Unmarshal(s, t, in)
	if err != nil {
		return err
	}
	b := wire.NewBuffer(len(in))
	if err := wire.EncodeType(s, t, v, b); err != nil {
		return err
	}
	out := b.Bytes()
	if f.zstd || c.cfg.Compression.Zstd {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(c.cfg.Compression.EncoderLevel()))
		if err != nil {
			return fmt.Errorf("zstd: %w", err)
		}
		out = enc.EncodeAll(out, nil)
		if err := enc.Close(); err != nil {
			return fmt.Errorf("zstd: %w", err)
		}
	}
	c.log.Info().Int("bare_bytes", b.Len()).Int("written", len(out)).Msg("encoded")
	return c.writeOutput(f.out, out)
}

func (c *cli) decodeCmd() *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a BARE binary value to JSON",
		Long: `Decode a BARE binary value to JSON.

The input must hold exactly one value of the chosen type.

Examples:
  barewire decode --schema person.yaml --in person.bin
  barewire decode -s record.yaml -i record.bin.zst --zstd`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDecode(&f)
		},
	}
	f.register(cmd)
	return cmd
}

func (c *cli) runDecode(f *convertFlags) error {
	s, err := c.loadSchema(f.schema)
	if err != nil {
		return err
	}
	t, err := typeArg(s, f.typ)
	if err != nil {
		return err
	}
	src, err := c.readInput(f.in)
	if err != nil {
		return err
	}
	if f.zstd || c.cfg.Compression.Zstd {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return fmt.Errorf("zstd: %w", err)
		}
		src, err = dec.DecodeAll(src, nil)
		dec.Close()
		if err != nil {
			return fmt.Errorf("zstd: %w", err)
		}
	}
	opts := c.cfg.Decode.DecodeOptions()
	v, end, err := opts.DecodeType(s, t, src, 0)
	if err != nil {
		return err
	}
	if int(end) != len(src) {
		return &wire.DecodeError{Offset: end, Err: wire.ErrTrailingBytes}
	}
	out, err := valuejson.Marshal(s, t, v)
	if err != nil {
		return err
	}
	c.log.Info().Int("bare_bytes", len(src)).Msg("decoded")
	return c.writeOutput(f.out, append(out, '\n'))
}
