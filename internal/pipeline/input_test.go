package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ffutop/surveysim/internal/table"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.csv"), "")
	writeFile(t, filepath.Join(dir, "a.csv"), "")
	writeFile(t, filepath.Join(dir, "deep", "x", "c.csv"), "")
	writeFile(t, filepath.Join(dir, "notes.txt"), "")

	files, err := ExpandInputs([]string{
		filepath.Join(dir, "*.csv"),
		filepath.Join(dir, "**", "*.csv"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.csv"),
		filepath.Join(dir, "b.csv"),
		filepath.Join(dir, "deep", "x", "c.csv"),
	}, files)
}

func TestExpandInputs_Errors(t *testing.T) {
	_, err := ExpandInputs(nil)
	assert.Error(t, err)

	_, err = ExpandInputs([]string{filepath.Join(t.TempDir(), "*.csv")})
	assert.ErrorContains(t, err, "matched no files")

	_, err = ExpandInputs([]string{"[bad"})
	assert.Error(t, err)
}

func TestLoadObservations(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "1.csv")
	second := filepath.Join(dir, "2.csv")
	writeFile(t, first, "ObjID,fieldMJD_TAI,phase_deg\n101,60000.5,12\n102,60001.5,13\n")
	writeFile(t, second, "ObjID,fieldMJD_TAI,phase_deg\n103,60002.5,13.5\n")

	obs, err := LoadObservations([]string{first, second}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, obs.NumRows())

	ids, ok := obs.Column(table.IDColumn)
	require.True(t, ok)
	assert.Equal(t, []string{"101", "102", "103"}, ids.Strings)

	phase, ok := obs.Column("phase_deg")
	require.True(t, ok)
	assert.Equal(t, table.KindFloat, phase.Kind)
	assert.Equal(t, []float64{12, 13, 13.5}, phase.Floats)
}

func TestLoadObservations_SchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "1.csv")
	second := filepath.Join(dir, "2.csv")
	writeFile(t, first, "ObjID,fieldMJD_TAI\n1,60000.5\n")
	writeFile(t, second, "ObjID,other\n2,1.5\n")

	_, err := LoadObservations([]string{first, second}, nil)
	assert.ErrorContains(t, err, "schema mismatch")

	_, err = LoadObservations([]string{filepath.Join(dir, "absent.csv")}, nil)
	assert.Error(t, err)
}

func TestLoadObservations_MixedKindsBecomeText(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "1.csv")
	second := filepath.Join(dir, "2.csv")
	writeFile(t, first, "ObjID,optFilter\na,1\n")
	writeFile(t, second, "ObjID,optFilter\nb,r\n")

	obs, err := LoadObservations([]string{first, second}, nil)
	require.NoError(t, err)
	f, ok := obs.Column("optFilter")
	require.True(t, ok)
	assert.Equal(t, []string{"1", "r"}, f.Strings)
}
