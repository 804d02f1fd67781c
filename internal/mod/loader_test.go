package mod

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sledgemc/sledge/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manifest(id string, deps ...string) *Manifest {
	return &Manifest{ID: id, Version: "1.0.0", Entrypoint: DefaultEntrypoint, Dependencies: deps}
}

func ids(ms []*Manifest) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeMod(t, root, "zeta", ManifestTOML, "id = \"zeta\"\nversion = \"1.0.0\"\n")
	writeMod(t, root, "alpha", ManifestJSON, `{"id": "alpha", "version": "1.0.0"}`)
	writeMod(t, root, "broken", ManifestTOML, "id = \"Broken\"\nversion = \"1.0.0\"\n")
	writeMod(t, root, "notamod", "readme.txt", "hi")
	writeMod(t, root, ".hidden", ManifestTOML, "id = \"hidden\"\nversion = \"1.0.0\"\n")
	writeMod(t, root, "a-copy", ManifestTOML, "id = \"zeta\"\nversion = \"2.0.0\"\n")

	found, err := Discover(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "zeta"}, ids(found.Manifests))
	require.Len(t, found.Invalid, 2)
	assert.ErrorIs(t, found.Invalid[filepath.Join(root, "broken")], ErrInvalidID)
	// "a-copy" sorts before "zeta", so it wins and the zeta dir is the duplicate.
	assert.ErrorIs(t, found.Invalid[filepath.Join(root, "zeta")], ErrDuplicateMod)
	assert.Equal(t, "2.0.0", found.Manifests[1].Version)
}

func TestDiscover_MissingDir(t *testing.T) {
	found, err := Discover(context.Background(), filepath.Join(t.TempDir(), "mods"))
	require.NoError(t, err)
	assert.Empty(t, found.Manifests)
	assert.Empty(t, found.Invalid)
}

func TestDiscover_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeMod(t, root, "alpha", ManifestTOML, "id = \"alpha\"\nversion = \"1.0.0\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Discover(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolve_Order(t *testing.T) {
	plan := Resolve([]*Manifest{
		manifest("ui", "net", "core"),
		manifest("net", "core"),
		manifest("core"),
		manifest("audio"),
	}, api.ServerMode, nil)

	assert.Empty(t, plan.Failed)
	assert.Equal(t, []string{"audio", "core", "net", "ui"}, ids(plan.Order))
}

func TestResolve_TiesByID(t *testing.T) {
	plan := Resolve([]*Manifest{
		manifest("c", "base"),
		manifest("b", "base"),
		manifest("base"),
		manifest("a", "c"),
	}, api.DualMode, nil)

	assert.Equal(t, []string{"base", "b", "c", "a"}, ids(plan.Order))
}

func TestResolve_Environment(t *testing.T) {
	client := manifest("hud")
	client.Environment = "client"
	server := manifest("worldgen")
	server.Environment = "server"
	both := manifest("core")

	plan := Resolve([]*Manifest{both, client, server}, api.ServerMode, nil)

	assert.Equal(t, []string{"core", "worldgen"}, ids(plan.Order))
	assert.Equal(t, []string{"hud"}, ids(plan.Skipped))
}

func TestResolve_MissingDependency(t *testing.T) {
	plan := Resolve([]*Manifest{
		manifest("a", "ghost"),
		manifest("b", "a"),
		manifest("c"),
	}, api.DualMode, nil)

	assert.Equal(t, []string{"c"}, ids(plan.Order))
	require.Len(t, plan.Failed, 2)
	assert.ErrorIs(t, plan.Failed["a"], ErrDependencyNotFound)
	assert.ErrorIs(t, plan.Failed["b"], ErrDependencyNotFound)
}

func TestResolve_DependencyOnSkippedMod(t *testing.T) {
	hud := manifest("hud")
	hud.Environment = "client"

	plan := Resolve([]*Manifest{hud, manifest("minimap", "hud")}, api.ServerMode, nil)

	assert.Empty(t, plan.Order)
	assert.ErrorIs(t, plan.Failed["minimap"], ErrDependencyNotFound)
}

func TestResolve_ProvidedDependency(t *testing.T) {
	plan := Resolve([]*Manifest{manifest("addon", "core")}, api.DualMode, []string{"core"})

	assert.Equal(t, []string{"addon"}, ids(plan.Order))
	assert.Empty(t, plan.Failed)
}

func TestResolve_ProvidedIDConflict(t *testing.T) {
	plan := Resolve([]*Manifest{manifest("core")}, api.DualMode, []string{"core"})

	assert.Empty(t, plan.Order)
	assert.ErrorIs(t, plan.Failed["core"], ErrDuplicateMod)
}

func TestResolve_Cycle(t *testing.T) {
	plan := Resolve([]*Manifest{
		manifest("a", "b"),
		manifest("b", "a"),
		manifest("c", "a"),
		manifest("d"),
	}, api.DualMode, nil)

	assert.Equal(t, []string{"d"}, ids(plan.Order))
	assert.ErrorIs(t, plan.Failed["a"], ErrCyclicDependency)
	assert.ErrorIs(t, plan.Failed["b"], ErrCyclicDependency)
	assert.ErrorIs(t, plan.Failed["c"], ErrDependencyNotFound)
	assert.NotErrorIs(t, plan.Failed["c"], ErrCyclicDependency)
}

func TestResolve_ChainOnCycle(t *testing.T) {
	plan := Resolve([]*Manifest{
		manifest("a", "b"),
		manifest("b", "a"),
		manifest("e", "a"),
		manifest("f", "e"),
		manifest("g", "f", "d"),
		manifest("d"),
	}, api.DualMode, nil)

	assert.Equal(t, []string{"d"}, ids(plan.Order))
	assert.ErrorIs(t, plan.Failed["a"], ErrCyclicDependency)
	assert.ErrorIs(t, plan.Failed["b"], ErrCyclicDependency)
	for _, id := range []string{"e", "f", "g"} {
		assert.ErrorIs(t, plan.Failed[id], ErrDependencyNotFound, id)
		assert.NotErrorIs(t, plan.Failed[id], ErrCyclicDependency, id)
	}
	assert.Contains(t, plan.Failed["f"].Error(), "requires e, which failed")
}
