package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const obsHeader = "ObjID,fieldMJD_TAI,fieldRA_deg,fieldDec_deg,RA_deg,Dec_deg,astrometricSigma_deg,optFilter," +
	"trailedSourceMag,trailedSourceMagSigma,fiveSigmaDepth_mag,phase_deg,Range_LTC_km,RangeRate_LTC_km_s,LCA,Period,Time0\n"

// writeObservations writes rows for the given objects, two rows each.
func writeObservations(t *testing.T, dir string, objects ...string) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString(obsHeader)
	for i, id := range objects {
		for j := 0; j < 2; j++ {
			fmt.Fprintf(&sb, "%s,%.6f,10.5,-3.25,123.456789,-20.1234567,0.0001,r,21.5,0.01,24.2,12.5,150000000,3.5,0.3,0.5,60000\n",
				id, 60000.1234567+float64(i)+float64(j)*0.25)
		}
	}
	path := filepath.Join(dir, "obs.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRun_CSV(t *testing.T) {
	in := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "results")
	obs := writeObservations(t, in, "a", "b", "c")
	metrics := filepath.Join(t.TempDir(), "run.prom")

	_, err := execute(t, "run",
		"-i", obs, "-p", outDir, "-t", "sim",
		"--lightcurve", "sinusoidal",
		"--chunk-size", "2",
		"--position-decimals", "3",
		"--metrics-file", metrics,
		"--log-level", "error",
	)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(outDir, "sim.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	assert.Len(t, lines, 1+6)
	assert.Equal(t, 1, strings.Count(string(raw), "ObjID"))
	assert.Contains(t, lines[1], ",123.457,")
	assert.NotContains(t, lines[0], "LCA", "basic output drops model inputs")

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `surveysim_output_rows_written_total{format="csv"} 6`)
	assert.Contains(t, string(prom), `surveysim_output_chunks_written_total{format="csv"} 2`)
}

func TestRun_HierarchicalThenInspect(t *testing.T) {
	in := t.TempDir()
	outDir := t.TempDir()
	obs := writeObservations(t, in, "a", "b", "c")

	_, err := execute(t, "run", "-i", obs, "-p", outDir, "-t", "sim",
		"--output-format", "h5", "--output-size", "all", "--chunk-size", "2", "--log-level", "error")
	require.NoError(t, err)

	out, err := execute(t, "inspect", filepath.Join(outDir, "sim.h5"))
	require.NoError(t, err)
	assert.Contains(t, out, "group 2: 4 rows\n")
	assert.Contains(t, out, "group 3: 2 rows\n")
	assert.Contains(t, out, "rows: 6\n")

	out, err = execute(t, "inspect", filepath.Join(outDir, "sim.h5"), "--key", "3", "--head", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, "group 2")
	assert.Contains(t, out, "ObjID,fieldMJD_TAI,")
	assert.Contains(t, out, "\nc,")

	_, err = execute(t, "inspect", filepath.Join(outDir, "sim.h5"), "--key", "99")
	assert.Error(t, err)
}

func TestRun_RejectsUnknownFormat(t *testing.T) {
	obs := writeObservations(t, t.TempDir(), "a")
	outDir := filepath.Join(t.TempDir(), "results")

	_, err := execute(t, "run", "-i", obs, "-p", outDir, "-t", "sim", "--output-format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"xml"`)
	assert.NoDirExists(t, outDir)
}

func TestRun_UnknownModel(t *testing.T) {
	obs := writeObservations(t, t.TempDir(), "a")
	_, err := execute(t, "run", "-i", obs, "-p", t.TempDir(), "-t", "sim", "--lightcurve", "nope", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity")
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	obs := writeObservations(t, t.TempDir(), "a", "b")
	outDir := filepath.Join(t.TempDir(), "results")

	_, err := execute(t, "run", "-i", obs, "-p", outDir, "-t", "sim", "--dry-run", "--log-level", "error")
	require.NoError(t, err)
	assert.NoDirExists(t, outDir)
}

func TestModels(t *testing.T) {
	out, err := execute(t, "models")
	require.NoError(t, err)
	assert.Equal(t, "identity\nsinusoidal\n", out)

	out, err = execute(t, "models", "--yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "- name: sinusoidal\n")
	assert.Contains(t, out, "    - LCA\n")
}

func TestInspect_UnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.parquet")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	_, err := execute(t, "inspect", path)
	assert.ErrorContains(t, err, "unrecognised store extension")
}
