package ops

import (
	"context"
	"os"
	"path/filepath"
)

// Expand turns the selection into a flat list of regular files. Directories
// are walked recursively, missing paths and unreadable subtrees are
// skipped, and a path reached twice is listed once. Files must pass every
// filter. The walk checks ctx at each directory and entry and returns
// ErrEnumerationAborted once it is done.
func Expand(ctx context.Context, inputs []Input, filters ...*ExtensionFilter) ([]FileTask, error) {
	ex := expander{
		ctx:     ctx,
		filters: filters,
		seen:    make(map[string]bool),
	}

	for _, input := range inputs {
		if ex.cancelled() {
			return nil, &ErrEnumerationAborted{}
		}

		// follows symlinks given directly
		info, err := os.Stat(input.Path)
		if err != nil {
			continue
		}

		if info.Mode().IsRegular() {
			ex.add(input.Path, info.Size())
		} else if info.IsDir() {
			ex.run(input.Path)
		}
	}

	if ex.cancelled() {
		return nil, &ErrEnumerationAborted{}
	}

	return ex.tasks, nil
}

type expander struct {
	ctx     context.Context
	filters []*ExtensionFilter
	seen    map[string]bool
	tasks   []FileTask
}

func (ex *expander) cancelled() bool {
	select {
	case <-ex.ctx.Done():
		return true
	default:
		return false
	}
}

func (ex *expander) add(path string, size int64) {
	for _, filter := range ex.filters {
		if !filter.Keep(path) {
			return
		}
	}

	// dedupe on the resolved path, never on the base name
	key, err := filepath.Abs(path)
	if err != nil {
		key = filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(key); err == nil {
		key = resolved
	}
	if ex.seen[key] {
		return
	}
	ex.seen[key] = true

	ex.tasks = append(ex.tasks, FileTask{
		Path: filepath.Clean(path),
		Size: size,
	})
}

func (ex *expander) run(dir string) {
	if ex.cancelled() {
		return
	}

	// read the directory contents; permission errors skip the subtree
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		// check for context done
		if ex.cancelled() {
			return
		}

		fpath := filepath.Join(dir, entry.Name())

		if entry.Type().IsRegular() {
			size := int64(-1)
			if info, err := entry.Info(); err == nil {
				size = info.Size()
			}
			ex.add(fpath, size)

		} else if entry.Type().IsDir() {
			ex.run(fpath)
		}
	}
}
