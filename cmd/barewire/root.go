package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/speakez-llc/barewire/internal/config"
	"github.com/speakez-llc/barewire/pkg/schema"
	"github.com/speakez-llc/barewire/pkg/schemadoc"
)

// cli holds what every subcommand shares: flags, configuration and the
// logger built from them.
type cli struct {
	cfgFile   string
	logLevel  string
	logFormat string

	cfg *config.Config
	log zerolog.Logger

	in          io.Reader
	out, errOut io.Writer
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	c := &cli{in: in, out: out, errOut: errOut, log: zerolog.Nop()}
	root := &cobra.Command{
		Use:   "barewire",
		Short: "Validate BARE schemas and convert values to and from the binary encoding",
		Long: `barewire works with BARE schemas written as YAML or JSON documents.

Examples:
  barewire check person.yaml
  barewire encode --schema person.yaml --in person.json --out person.bin
  barewire decode --schema person.yaml --in person.bin
  barewire get --schema person.yaml --in person.bin --path address.country
  barewire set --schema person.yaml --in person.bin --path id --value 7`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return c.setup() },
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "barewire.yaml", "config file path")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "", "log format: json or console")

	root.AddCommand(
		c.checkCmd(),
		c.encodeCmd(),
		c.decodeCmd(),
		c.getCmd(),
		c.setCmd(),
	)
	return root
}

func (c *cli) setup() error {
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Logging.Format = c.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	c.cfg = cfg
	c.log = setupLogger(cfg.Logging, c.errOut)
	return nil
}

func setupLogger(lc config.LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(lc.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	if lc.Format == "console" {
		output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		return zerolog.New(output).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func (c *cli) loadSchema(path string) (*schema.Schema, error) {
	s, err := schemadoc.LoadSchema(path)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("schema", path).Str("root", s.Root()).Int("types", len(s.Names())).Msg("schema loaded")
	return s, nil
}

// typeArg picks the type to work with: the root when expr is empty,
// otherwise a type expression such as a name or "list<Person>".
func typeArg(s *schema.Schema, expr string) (schema.Type, error) {
	if expr == "" {
		return schema.Named(s.Root()), nil
	}
	t, err := schema.ParseType(expr)
	if err != nil {
		return nil, fmt.Errorf("--type: %w", err)
	}
	if name, ok := undefinedRef(s, t); ok {
		return nil, fmt.Errorf("--type: no type named %q", name)
	}
	return t, nil
}

func undefinedRef(s *schema.Schema, t schema.Type) (string, bool) {
	switch t := t.(type) {
	case schema.Ref:
		_, found := s.Lookup(t.Name)
		return t.Name, !found
	case schema.Optional:
		return undefinedRef(s, t.Elem)
	case schema.List:
		return undefinedRef(s, t.Elem)
	case schema.FixedList:
		return undefinedRef(s, t.Elem)
	case schema.Map:
		if name, ok := undefinedRef(s, t.Key); ok {
			return name, true
		}
		return undefinedRef(s, t.Value)
	case schema.Union:
		for _, uc := range t.Cases {
			if name, ok := undefinedRef(s, uc.Type); ok {
				return name, true
			}
		}
	case schema.Struct:
		for _, f := range t.Fields {
			if name, ok := undefinedRef(s, f.Type); ok {
				return name, true
			}
		}
	}
	return "", false
}

// readInput reads path, or stdin for "-".
func (c *cli) readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(c.in)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// writeOutput writes data to path, or stdout for "-".
func (c *cli) writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := c.out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
