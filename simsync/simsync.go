package simsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/juju/gnuflag"
	"github.com/nrsim/simtools/config"
	"github.com/nrsim/simtools/filter"
	"github.com/nrsim/simtools/hosts"
	"github.com/nrsim/simtools/launch"
	"github.com/nrsim/simtools/util"
)

const helpText = `simsync copies the project tree to or from a remote host with rsync.

Usage:

  simsync (-t HOST | -f HOST) [-r] [-a] [-o] [-c] [-s] [-d DIR] [-n] [-- PATTERN...]

Direction (exactly one):
  -t, --to HOST         send the local tree to HOST
  -f, --from HOST       fetch the tree from HOST

Modes (at least one, each runs its own transfer):
  -r, --root            bin/ and par/ only, deleting remote files not present locally
  -a, --all             the whole tree, restricted to the include patterns
  -o, --output          simulation output restricted to the include patterns, without checkpoints
  -c, --checkpoints     checkpoints/ directories of the simulations
  -s, --simulations     the simulations directory as is

Other options:
  -d, --directory DIR   limit simulation modes to DIR below the output root (may be a glob)
  -n, --dry-run         pass --dry-run to rsync
  -v, --verbose         debug logging
  -h, --help            show this help

HOST is an alias from the host table (see [files].hosts in the config).
Patterns given after -- replace the default include file for this invocation.`

// Mode is one kind of transfer.
type Mode string

const (
	ModeRoot        Mode = "root"
	ModeAll         Mode = "all"
	ModeOutput      Mode = "output"
	ModeCheckpoints Mode = "checkpoints"
	ModeSimulations Mode = "simulations"
)

// order in which requested modes run
var modeOrder = []Mode{ModeRoot, ModeAll, ModeOutput, ModeCheckpoints, ModeSimulations}

type options struct {
	to, from  string
	modes     map[Mode]bool
	directory string
	dryRun    bool
	verbose   bool
	help      bool
	patterns  []string
}

func (o *options) alias() string {
	if o.to != "" {
		return o.to
	}
	return o.from
}

func (o *options) sending() bool {
	return o.to != ""
}

func (o *options) usesFilter() bool {
	return o.modes[ModeAll] || o.modes[ModeOutput]
}

func (o *options) requested() []Mode {
	var out []Mode
	for _, m := range modeOrder {
		if o.modes[m] {
			out = append(out, m)
		}
	}
	return out
}

func parseArgs(args []string) (*options, error) {
	o := options{modes: make(map[Mode]bool)}
	var root, all, output, checkpoints, simulations bool

	fs := gnuflag.NewFlagSet("simsync", gnuflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.to, "t", "", "send to host")
	fs.StringVar(&o.to, "to", "", "send to host")
	fs.StringVar(&o.from, "f", "", "fetch from host")
	fs.StringVar(&o.from, "from", "", "fetch from host")
	fs.BoolVar(&root, "r", false, "sync bin/ and par/")
	fs.BoolVar(&root, "root", false, "sync bin/ and par/")
	fs.BoolVar(&all, "a", false, "sync the whole tree")
	fs.BoolVar(&all, "all", false, "sync the whole tree")
	fs.BoolVar(&output, "o", false, "sync simulation output")
	fs.BoolVar(&output, "output", false, "sync simulation output")
	fs.BoolVar(&checkpoints, "c", false, "sync checkpoints")
	fs.BoolVar(&checkpoints, "checkpoints", false, "sync checkpoints")
	fs.BoolVar(&simulations, "s", false, "sync simulations")
	fs.BoolVar(&simulations, "simulations", false, "sync simulations")
	fs.StringVar(&o.directory, "d", "", "directory below the output root")
	fs.StringVar(&o.directory, "directory", "", "directory below the output root")
	fs.BoolVar(&o.dryRun, "n", false, "dry run")
	fs.BoolVar(&o.dryRun, "dry-run", false, "dry run")
	fs.BoolVar(&o.verbose, "v", false, "verbose")
	fs.BoolVar(&o.verbose, "verbose", false, "verbose")
	fs.BoolVar(&o.help, "h", false, "help")
	fs.BoolVar(&o.help, "help", false, "help")

	if err := fs.Parse(true, args); err != nil {
		return nil, fmt.Errorf("%w, see --help", err)
	}
	if o.help {
		return &o, nil
	}

	o.modes[ModeRoot] = root
	o.modes[ModeAll] = all
	o.modes[ModeOutput] = output
	o.modes[ModeCheckpoints] = checkpoints
	o.modes[ModeSimulations] = simulations
	o.patterns = fs.Args()
	o.directory = strings.Trim(o.directory, "/")

	if o.to != "" && o.from != "" {
		return nil, errors.New("--to and --from are mutually exclusive")
	}
	if o.to == "" && o.from == "" {
		return nil, errors.New("one of --to or --from is required, see --help")
	}
	if len(o.requested()) == 0 {
		return nil, errors.New("no sync mode given, use at least one of --root, --all, --output, --checkpoints, --simulations")
	}
	if o.directory != "" && !(output || checkpoints || simulations) {
		return nil, errors.New("--directory only applies to --output, --checkpoints and --simulations")
	}
	if c := path.Clean(o.directory); c == ".." || strings.HasPrefix(c, "../") {
		return nil, fmt.Errorf("--directory %q leaves the output root", o.directory)
	}
	return &o, nil
}

func Run(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}
	if opts.help {
		fmt.Println(helpText)
		return nil
	}
	util.SetVerbose(opts.verbose)
	return run(context.Background(), config.GetConfig(), launch.NewExecRunner(), ".", opts)
}

func run(ctx context.Context, conf *config.Config, runner launch.Runner, localRoot string, opts *options) error {
	log := util.Logger()

	table, err := hosts.Load(conf.Files.Hosts)
	if err != nil {
		return err
	}
	remote, err := table.Lookup(opts.alias())
	if err != nil {
		return err
	}

	var list *filter.List
	if opts.usesFilter() {
		list, err = filter.Resolve(conf.Files.Filter, opts.patterns)
		if err != nil {
			return err
		}
		// Not removed if the process is killed
		defer list.Close()
		log.Debugf("using include list %s", list.Path)
	} else if len(opts.patterns) > 0 {
		log.Warnf("include patterns are only used by --all and --output, ignoring %d pattern(s)", len(opts.patterns))
	}

	p := planner{
		opts:       opts,
		remote:     strings.TrimRight(remote, "/"),
		localRoot:  localRoot,
		outputRoot: filepath.ToSlash(filepath.Clean(conf.Run.OutputRoot)),
	}
	if list != nil {
		p.filterPath = list.Path
	}
	transfers, err := p.plan()
	if err != nil {
		return err
	}

	for _, t := range transfers {
		log.Infof("%s: %s %s", t.mode, directionWord(opts), opts.alias())
		err := runner.Run(ctx, launch.Command{
			Name: conf.Bins.Rsync,
			Args: t.args,
			Dir:  localRoot,
		})
		if err != nil {
			return fmt.Errorf("%s sync failed: %w", t.mode, err)
		}
	}
	return nil
}

func directionWord(opts *options) string {
	if opts.sending() {
		return "sending to"
	}
	return "fetching from"
}
