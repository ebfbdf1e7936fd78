package factstore

import (
	"context"
	"testing"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMem(t *testing.T) *Store {
	t.Helper()
	s, err := Open(&Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleFacts() []program.Fact {
	return []program.Fact{
		program.Signed(program.NewFact("r", program.String("a"), program.String("b"))),
		program.NewFact("r", program.Symbolic("alpha", program.TypeSymbol), program.String("b")),
		program.NewFact("s", program.Number(1), program.Number(-2)),
		program.NewFact("rs", program.String("x")),
	}
}

func TestPutAndRead(t *testing.T) {
	s := openMem(t)

	added, err := s.Put(sampleFacts()...)
	require.NoError(t, err)
	assert.Equal(t, 4, added)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n)

	r, err := s.Facts("r")
	require.NoError(t, err)
	assert.Len(t, r, 2)
	assert.ElementsMatch(t, sampleFacts()[:2], r)

	all, err := s.All()
	require.NoError(t, err)
	assert.ElementsMatch(t, sampleFacts(), all)

	rels, err := s.Relations()
	require.NoError(t, err)
	assert.Equal(t, []string{"r", "rs", "s"}, rels)
}

func TestPutReplacesSameHead(t *testing.T) {
	s := openMem(t)
	plain := program.NewFact("r", program.String("a"), program.String("b"))

	_, err := s.Put(plain)
	require.NoError(t, err)
	added, err := s.Put(program.Signed(plain))
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	facts, err := s.Facts("r")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.True(t, facts[0].SymbolicSign)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestDelete(t *testing.T) {
	s := openMem(t)
	_, err := s.Put(sampleFacts()...)
	require.NoError(t, err)

	removed, err := s.Delete(sampleFacts()[2], program.NewFact("s", program.Number(9), program.Number(9)))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	facts, err := s.Facts("s")
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestRejectsVariables(t *testing.T) {
	s := openMem(t)
	_, err := s.Put(program.NewFact("r", program.Variable("X")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, program.ErrStructural))
}

func TestScanCancelled(t *testing.T) {
	s := openMem(t)
	_, err := s.Put(sampleFacts()...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, err := range s.Scan(ctx, "") {
		assert.ErrorIs(t, err, context.Canceled)
		break
	}
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	_, err = s.Put(sampleFacts()...)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer s.Close()
	all, err := s.All()
	require.NoError(t, err)
	assert.ElementsMatch(t, sampleFacts(), all)
}

func TestClosedStore(t *testing.T) {
	s, err := Open(&Config{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Put(sampleFacts()...)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.All()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"on disk", Config{DataDir: "/tmp/x"}, false},
		{"in memory", Config{InMemory: true}, false},
		{"missing dir", Config{}, true},
		{"read-only memory", Config{InMemory: true, ReadOnly: true}, true},
		{"bad profile", Config{InMemory: true, Profile: "Huge"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrInvalidInput))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
