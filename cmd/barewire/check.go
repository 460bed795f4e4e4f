package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/speakez-llc/barewire/pkg/schema"
	"github.com/speakez-llc/barewire/pkg/schemadoc"
)

func (c *cli) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <schema>",
		Short: "Validate a schema document and print the size of every type",
		Long: `Validate a schema document.

On success prints one row per named type with its minimum and maximum
encoded size and its alignment. On failure lists every problem found.

Examples:
  barewire check person.yaml
  barewire check api.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(args[0])
		},
	}
}

func (c *cli) runCheck(path string) error {
	d, err := schemadoc.Load(path)
	if err != nil {
		return err
	}
	s, err := schema.Validate(d)
	if errs, ok := schema.AsValidationErrors(err); ok {
		for _, e := range errs {
			fmt.Fprintf(c.out, "  %s\n", e.Error())
		}
		return fmt.Errorf("%s: %d problem(s) found", path, len(errs))
	}
	if err != nil {
		return err
	}

	a := schema.NewAnalyzer(s)
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tMIN\tMAX\tALIGN\t")
	for _, name := range s.Names() {
		t := schema.Named(name)
		size := a.Size(t)
		upper := "unbounded"
		if size.Bounded {
			upper = strconv.Itoa(int(size.Max))
		}
		marker := ""
		if name == s.Root() {
			marker = " (root)"
		}
		fmt.Fprintf(tw, "%s%s\t%d\t%s\t%d\t\n", name, marker, size.Min, upper, a.Alignment(t))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	c.log.Info().Str("schema", path).Int("types", len(s.Names())).Msg("schema valid")
	return nil
}
