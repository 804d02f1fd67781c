package mod

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sledgemc/sledge/internal/api"
)

// DefaultDiscoveryWorkers bounds concurrent manifest reads.
const DefaultDiscoveryWorkers = 8

// Discovery is the result of scanning a mods directory.
type Discovery struct {
	// Manifests are the valid manifests sorted by id.
	Manifests []*Manifest

	// Invalid maps a mod directory to the error that rejected it.
	Invalid map[string]error
}

// Discover scans each subdirectory of dir for a manifest. A missing dir
// yields an empty result. Directories without a manifest and hidden
// directories are ignored; broken or duplicate manifests land in Invalid.
func Discover(ctx context.Context, dir string) (*Discovery, error) {
	result := &Discovery{Invalid: make(map[string]error)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, nil
		}
		return nil, fmt.Errorf("reading mods dir: %w", err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			dirs = append(dirs, filepath.Join(dir, e.Name()))
		}
	}

	manifests := make([]*Manifest, len(dirs))
	errs := make([]error, len(dirs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultDiscoveryWorkers)
	for i, d := range dirs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			manifests[i], errs[i] = LoadManifestFromDir(d)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// dirs are in lexical order, so the first directory wins a duplicate id.
	byID := make(map[string]*Manifest, len(dirs))
	for i, d := range dirs {
		switch {
		case errors.Is(errs[i], ErrNoManifest):
			continue
		case errs[i] != nil:
			result.Invalid[d] = errs[i]
			continue
		}
		m := manifests[i]
		if first, ok := byID[m.ID]; ok {
			result.Invalid[d] = fmt.Errorf("%w: %s already declared in %s", ErrDuplicateMod, m.ID, first.Dir())
			continue
		}
		byID[m.ID] = m
		result.Manifests = append(result.Manifests, m)
	}

	sort.Slice(result.Manifests, func(i, j int) bool {
		return result.Manifests[i].ID < result.Manifests[j].ID
	})
	return result, nil
}

// Plan is the load order computed by Resolve.
type Plan struct {
	// Order lists mods so that every mod follows its dependencies.
	Order []*Manifest

	// Skipped are mods declared for another environment.
	Skipped []*Manifest

	// Failed maps mod ids to the reason they cannot load.
	Failed map[string]error
}

// Resolve filters manifests by environment and orders them by dependency.
// Mods in provided (e.g. builtin mods) satisfy dependencies without being
// ordered. A mod with a missing dependency fails, as does every mod that
// depends on it. Mods on a cycle fail with ErrCyclicDependency and mods
// depending on them fail with ErrDependencyNotFound. Ties are broken by id.
func Resolve(manifests []*Manifest, env api.Environment, provided []string) *Plan {
	plan := &Plan{Failed: make(map[string]error)}

	have := make(map[string]bool, len(provided))
	for _, id := range provided {
		have[id] = true
	}

	candidates := make(map[string]*Manifest)
	for _, m := range manifests {
		if !m.Env().Matches(env) {
			plan.Skipped = append(plan.Skipped, m)
			continue
		}
		if have[m.ID] {
			plan.Failed[m.ID] = fmt.Errorf("%w: %s is provided by the host", ErrDuplicateMod, m.ID)
			continue
		}
		candidates[m.ID] = m
	}

	// Drop mods with missing dependencies until the set is closed.
	for changed := true; changed; {
		changed = false
		for _, id := range sortedIDs(candidates) {
			m := candidates[id]
			for _, dep := range m.Dependencies {
				if have[dep] || candidates[dep] != nil {
					continue
				}
				if reason, failed := plan.Failed[dep]; failed {
					plan.Failed[id] = fmt.Errorf("%w: %s requires %s, which failed: %v", ErrDependencyNotFound, id, dep, reason)
				} else {
					plan.Failed[id] = fmt.Errorf("%w: %s requires %s", ErrDependencyNotFound, id, dep)
				}
				delete(candidates, id)
				changed = true
				break
			}
		}
	}

	// Kahn's algorithm over the remaining candidates, smallest id first.
	indegree := make(map[string]int, len(candidates))
	dependents := make(map[string][]string)
	for id, m := range candidates {
		n := 0
		for _, dep := range m.Dependencies {
			if candidates[dep] == nil {
				continue
			}
			n++
			dependents[dep] = append(dependents[dep], id)
		}
		indegree[id] = n
	}

	var ready []string
	for id, n := range indegree {
		if n == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		plan.Order = append(plan.Order, candidates[id])

		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = insertSorted(ready, next)
			}
		}
		delete(indegree, id)
	}

	// Whatever is left either sits on a cycle or depends on one.
	left := sortedKeys(indegree)
	for _, id := range left {
		if onCycle(id, candidates, indegree) {
			plan.Failed[id] = fmt.Errorf("%w: %s", ErrCyclicDependency, id)
		}
	}
	for changed := true; changed; {
		changed = false
		for _, id := range left {
			if _, done := plan.Failed[id]; done {
				continue
			}
			for _, dep := range candidates[id].Dependencies {
				if reason, failed := plan.Failed[dep]; failed {
					plan.Failed[id] = fmt.Errorf("%w: %s requires %s, which failed: %v", ErrDependencyNotFound, id, dep, reason)
					changed = true
					break
				}
			}
		}
	}
	return plan
}

// onCycle reports whether id can reach itself through the dependencies of
// mods still in left.
func onCycle(id string, candidates map[string]*Manifest, left map[string]int) bool {
	seen := make(map[string]bool)
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, dep := range candidates[cur].Dependencies {
			if _, ok := left[dep]; !ok {
				continue
			}
			if dep == id {
				return true
			}
			if !seen[dep] {
				seen[dep] = true
				stack = append(stack, dep)
			}
		}
	}
	return false
}

func insertSorted(list []string, s string) []string {
	i := sort.SearchStrings(list, s)
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = s
	return list
}

func sortedIDs(m map[string]*Manifest) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
