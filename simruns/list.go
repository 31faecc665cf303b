package simruns

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/juju/gnuflag"
	"github.com/midbel/sizefmt"
	"github.com/nrsim/simtools/config"
	"github.com/nrsim/simtools/record"
)

func runList(args []string) error {
	var root string
	fs := gnuflag.NewFlagSet("list", gnuflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&root, "o", "", "output root")
	fs.StringVar(&root, "output", "", "output root")
	if err := fs.Parse(true, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("provide at least one run, see --help")
	}
	if root == "" {
		root = config.GetConfig().Run.OutputRoot
	}
	for _, name := range fs.Args() {
		if err := list(os.Stdout, resolveRun(root, name)); err != nil {
			return err
		}
	}
	return nil
}

// resolveRun accepts an existing run directory as is, and a run name otherwise.
func resolveRun(root, name string) string {
	if info, err := os.Stat(name); err == nil && info.IsDir() {
		return name
	}
	return filepath.Join(root, name)
}

func list(w io.Writer, runDir string) error {
	recs, err := record.List(runDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s:\n", runDir)

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "  OUTPUT\tLAUNCHER\tP x T\tSTARTED\tEXIT\tSIZE\tPARFILE")
	for _, r := range recs {
		size, err := dirSize(r.Dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			filepath.Base(r.Dir),
			orDash(r.Launcher),
			layout(r),
			started(r),
			exitStatus(r),
			sizefmt.FormatIEC(float64(size), false),
			orDash(r.ParFile),
		)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func layout(r *record.Record) string {
	if r.Processes == 0 {
		return "-"
	}
	return fmt.Sprintf("%d x %d", r.Processes, r.Threads)
}

func started(r *record.Record) string {
	if r.StartedAt.IsZero() {
		return "-"
	}
	return r.StartedAt.Local().Format(time.DateTime)
}

func exitStatus(r *record.Record) string {
	switch {
	case r.ExitCode != nil:
		return fmt.Sprint(*r.ExitCode)
	case r.Launcher == record.LauncherSbatch:
		return "submitted"
	case r.Launcher == "":
		return "-"
	}
	return "running"
}
