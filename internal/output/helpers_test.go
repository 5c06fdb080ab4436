package output

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ffutop/surveysim/internal/table"
)

// observations returns n rows carrying the basic columns plus six extras.
func observations(t testing.TB, n int) *table.Batch {
	t.Helper()
	b := table.New()

	ids := make([]string, n)
	filters := make([]string, n)
	for i := range ids {
		ids[i] = "obj" + string(rune('A'+i%26))
		filters[i] = "r"
	}
	require.NoError(t, b.AddString(table.IDColumn, ids))

	floats := func(base float64) []float64 {
		v := make([]float64, n)
		for i := range v {
			v[i] = base + float64(i)
		}
		return v
	}
	require.NoError(t, b.AddFloat("fieldMJD_TAI", floats(60000.123456789)))
	require.NoError(t, b.AddFloat("fieldRA_deg", floats(10.1234567)))
	require.NoError(t, b.AddFloat("fieldDec_deg", floats(-5.9876543)))
	require.NoError(t, b.AddFloat("RA_deg", floats(123.456789)))
	require.NoError(t, b.AddFloat("Dec_deg", floats(-20.111111)))
	require.NoError(t, b.AddFloat("astrometricSigma_deg", floats(0.0001234)))
	require.NoError(t, b.AddString("optFilter", filters))
	require.NoError(t, b.AddFloat("trailedSourceMag", floats(21.23456)))
	require.NoError(t, b.AddFloat("trailedSourceMagSigma", floats(0.012345)))
	require.NoError(t, b.AddFloat("fiveSigmaDepth_mag", floats(24.56789)))
	require.NoError(t, b.AddFloat("phase_deg", floats(12.5)))
	require.NoError(t, b.AddFloat("Range_LTC_km", floats(1.5e8)))
	require.NoError(t, b.AddFloat("RangeRate_LTC_km_s", floats(3.25)))

	require.NoError(t, b.AddFloat("RATrue_deg", floats(123.4567891)))
	require.NoError(t, b.AddFloat("DecTrue_deg", floats(-20.1111119)))
	require.NoError(t, b.AddFloat("PSFMag", floats(21.11119)))
	require.NoError(t, b.AddFloat("PSFMagSigma", floats(0.02468)))
	require.NoError(t, b.AddFloat("trailedSourceMagTrue", floats(21.2)))
	require.NoError(t, b.AddFloat("PSFMagTrue", floats(21.1)))
	return b
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}
