package simsync

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
)

type transfer struct {
	mode Mode
	args []string
}

// planner turns the requested modes into rsync argument lists.
type planner struct {
	opts       *options
	remote     string
	localRoot  string
	outputRoot string
	filterPath string
}

var baseArgs = []string{"--archive", "--verbose", "--compress", "--human-readable", "--partial"}

func (p planner) plan() ([]transfer, error) {
	var out []transfer
	for _, m := range p.opts.requested() {
		args := append([]string(nil), baseArgs...)
		if p.opts.dryRun {
			args = append(args, "--dry-run")
		}

		var (
			ends []string
			err  error
		)
		switch m {
		case ModeRoot:
			args = append(args, "--include=/bin/***", "--include=/par/***", "--exclude=*", "--delete")
			ends = p.treeEnds()
		case ModeAll:
			args = append(args, "--include=*/", "--include-from="+p.filterPath, "--exclude=*", "--prune-empty-dirs")
			ends = p.treeEnds()
		case ModeOutput:
			args = append(args, "--relative", "--exclude=checkpoints/**", "--include=*/", "--include-from="+p.filterPath, "--exclude=*", "--prune-empty-dirs")
			ends, err = p.simulationEnds()
		case ModeCheckpoints:
			args = append(args, "--relative", "--include=*/", "--include=checkpoints/**", "--exclude=*", "--prune-empty-dirs")
			ends, err = p.simulationEnds()
		case ModeSimulations:
			args = append(args, "--relative")
			ends, err = p.simulationEnds()
		default:
			err = fmt.Errorf("unknown sync mode %q", m)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, transfer{mode: m, args: append(args, ends...)})
	}
	return out, nil
}

// treeEnds returns source and destination for transfers of the whole tree.
func (p planner) treeEnds() []string {
	if p.opts.sending() {
		return []string{"./", p.remote + "/"}
	}
	return []string{p.remote + "/", "./"}
}

// simulationEnds returns the sources and destination of transfers below the
// output root. Paths are given relative to the tree root so that --relative
// recreates them on the other side.
func (p planner) simulationEnds() ([]string, error) {
	rel := p.outputRoot
	if p.opts.directory != "" {
		rel = path.Join(rel, p.opts.directory)
	}

	if !p.opts.sending() {
		// "/./" marks where the implied directories start, the remote shell expands globs
		return []string{p.remote + "/./" + rel, "./"}, nil
	}

	matches, err := filepath.Glob(filepath.Join(p.localRoot, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("bad directory pattern %q: %w", p.opts.directory, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("nothing to send: %s does not exist", rel)
	}
	sort.Strings(matches)
	ends := make([]string, 0, len(matches)+1)
	for _, m := range matches {
		r, err := filepath.Rel(p.localRoot, m)
		if err != nil {
			return nil, err
		}
		ends = append(ends, filepath.ToSlash(r))
	}
	return append(ends, p.remote+"/"), nil
}
