package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ffutop/surveysim/internal/table"
)

func TestHierarchicalWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.h5")
	logger, logs := bufferLogger()
	hw := NewHierarchicalWriter(path, logger)
	ctx := context.Background()

	first := observations(t, 3)
	second := observations(t, 2)
	want := []*table.Batch{first.Clone(), second.Clone()}

	require.NoError(t, hw.Append(ctx, first, "10"))
	require.NoError(t, hw.Append(ctx, second, "12"))
	require.NoError(t, hw.Close())

	assert.Contains(t, logs.String(), "Group key is not a natural name")

	groups, err := ReadHierarchical(path)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "10", groups[0].Key)
	assert.Equal(t, "12", groups[1].Key)

	for i, g := range groups {
		if diff := cmp.Diff(want[i].Columns(), g.Batch.Columns(), cmpopts.EquateNaNs(), cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("group %s mismatch (-want +got):\n%s", g.Key, diff)
		}
	}

	g, err := ReadGroup(path, "12")
	require.NoError(t, err)
	assert.Equal(t, 2, g.NumRows())

	_, err = ReadGroup(path, "99")
	assert.Error(t, err)
}

func TestHierarchicalWriter_SameKeyConcatenates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.h5")
	hw := NewHierarchicalWriter(path, nil)
	require.NoError(t, hw.Append(context.Background(), observations(t, 2), "chunk"))
	require.NoError(t, hw.Append(context.Background(), observations(t, 3), "chunk"))

	g, err := ReadGroup(path, "chunk")
	require.NoError(t, err)
	assert.Equal(t, 5, g.NumRows())
}

func TestHierarchicalWriter_NumericIDBecomesText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.h5")
	b := table.New()
	require.NoError(t, b.AddInt(table.IDColumn, []int64{101, 202}))
	require.NoError(t, b.AddFloat("fieldMJD_TAI", []float64{60000.5, 60001.5}))

	require.NoError(t, NewHierarchicalWriter(path, nil).Append(context.Background(), b, "2"))

	g, err := ReadGroup(path, "2")
	require.NoError(t, err)
	ids, ok := g.Column(table.IDColumn)
	require.True(t, ok)
	assert.Equal(t, table.KindString, ids.Kind)
	assert.Equal(t, []string{"101", "202"}, ids.Strings)
}

func TestReadHierarchical_Corrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.h5")
	require.NoError(t, NewHierarchicalWriter(path, nil).Append(context.Background(), observations(t, 2), "2"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"too short", raw[:4]},
		{"bad magic", append([]byte("XXXX"), raw[4:]...)},
		{"truncated block", raw[:len(raw)-7]},
		{"flipped payload byte", flip(raw, headerSize+20)},
		{"trailing garbage", append(append([]byte(nil), raw...), 'G', 'R')},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(dir, tt.name+".h5")
			require.NoError(t, os.WriteFile(p, tt.data, 0o644))
			_, err := ReadHierarchical(p)
			assert.ErrorIs(t, err, errCorrupt)
		})
	}
}

func TestHierarchicalWriter_RefusesForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.h5")
	require.NoError(t, os.WriteFile(path, []byte("not a table file"), 0o644))

	err := NewHierarchicalWriter(path, nil).Append(context.Background(), observations(t, 1), "1")
	assert.ErrorIs(t, err, errCorrupt)
}

func TestIsNaturalName(t *testing.T) {
	assert.True(t, isNaturalName("chunk_10"))
	assert.True(t, isNaturalName("_x"))
	assert.False(t, isNaturalName("10"))
	assert.False(t, isNaturalName(""))
	assert.False(t, isNaturalName("a-b"))
}

func flip(b []byte, i int) []byte {
	out := append([]byte(nil), b...)
	out[i] ^= 0xff
	return out
}
