package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entgraph/internal/ir"
	"github.com/roach88/entgraph/internal/search"
)

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	r := NewRegistry(RegistryConfig{DataDir: dir})
	t.Cleanup(func() { r.Close() })
	return r, dir
}

func TestValidNamespace(t *testing.T) {
	for _, ok := range []string{"default", "tenant-1", "A_b", "x"} {
		assert.True(t, ValidNamespace(ok), ok)
	}
	for _, bad := range []string{"", "../etc", "a/b", "a.b", "sp ace", string(make([]byte, 65))} {
		assert.False(t, ValidNamespace(bad), bad)
	}
}

func TestRegistry_GetOpensLazilyAndReuses(t *testing.T) {
	r, dir := newTestRegistry(t)

	assert.Empty(t, r.Namespaces())
	_, err := os.Stat(filepath.Join(dir, "alpha.db"))
	assert.True(t, os.IsNotExist(err), "nothing opened before first use")

	a1, err := r.Get("alpha")
	require.NoError(t, err)
	a2, err := r.Get("alpha")
	require.NoError(t, err)
	assert.Same(t, a1, a2)

	_, err = os.Stat(filepath.Join(dir, "alpha.db"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, r.Namespaces())
}

func TestRegistry_NamespacesAreIsolated(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	a, err := r.Get("alpha")
	require.NoError(t, err)
	b, err := r.Get("beta")
	require.NoError(t, err)

	_, err = a.InsertRecord(ctx, "Post", ir.Document{"n": 1.0}, "same-id")
	require.NoError(t, err)
	_, err = b.InsertRecord(ctx, "Post", ir.Document{"n": 2.0}, "same-id")
	require.NoError(t, err, "ids are unique per namespace only")

	rec, err := b.GetRecord(ctx, "same-id")
	require.NoError(t, err)
	assert.Equal(t, 2.0, rec.Data["n"])
}

func TestRegistry_Default(t *testing.T) {
	r, _ := newTestRegistry(t)
	a, err := r.Default()
	require.NoError(t, err)
	assert.Equal(t, "default", a.Name())
	assert.Equal(t, "default", r.DefaultNamespace())
}

func TestRegistry_InvalidNamespace(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Get("../escape")
	assert.ErrorIs(t, err, ErrInvalidNamespace)
	assert.True(t, IsInvalidRequest(err))
}

func TestRegistry_OpenFailureStartsNoActor(t *testing.T) {
	dir := t.TempDir()
	// A directory where the database file should be makes Open fail.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "broken.db"), 0o755))

	r := NewRegistry(RegistryConfig{DataDir: dir})
	defer r.Close()

	_, err := r.Get("broken")
	require.Error(t, err)
	assert.Empty(t, r.Namespaces())
}

func TestRegistry_CloseIsIdempotent(t *testing.T) {
	r := NewRegistry(RegistryConfig{DataDir: t.TempDir()})
	a, err := r.Get("alpha")
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	<-a.Done()
	_, err = r.Get("alpha")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRegistry_ExactBonus(t *testing.T) {
	zero := 0.0
	tests := []struct {
		name  string
		bonus *float64
		want  float64
	}{
		{"unset", nil, search.DefaultExactBonus},
		{"explicit zero", &zero, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(RegistryConfig{DataDir: t.TempDir(), ExactBonus: tt.bonus})
			t.Cleanup(func() { r.Close() })

			a, err := r.Get("alpha")
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.searcher.ExactBonus())
		})
	}
}
