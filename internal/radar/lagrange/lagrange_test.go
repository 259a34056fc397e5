package lagrange

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/types"
)

func TestDefaultTableShapeAndRowSums(t *testing.T) {
	m := Default()
	require.Equal(t, types.LagrangeRows, m.Rows)
	require.Equal(t, types.LagrangeTaps, m.Columns)
	require.Len(t, m.Data, types.LagrangeRows)

	for r := 0; r < m.Rows; r++ {
		require.Len(t, m.Data[r], types.LagrangeTaps)
		assert.InDelta(t, 1.0, float64(m.RowSum(r)), 0.01, "row %d", r)
	}
}

func TestValidateRejectsWrongColumnCount(t *testing.T) {
	m := types.LagrangeMatrix{
		Rows:    types.LagrangeRows,
		Columns: 7,
		Data:    make([][]float32, types.LagrangeRows),
	}
	for i := range m.Data {
		m.Data[i] = make([]float32, 7)
	}
	err := Validate(m)
	require.Error(t, err)
}

func TestValidateRejectsBadRowSum(t *testing.T) {
	m := Default()
	m.Data[0][0] += 1.0 // break row-sum invariant
	err := Validate(m)
	require.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lagrange.json")

	m := Default()
	m.Description = "round trip test table"

	require.NoError(t, Save(path, m))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.Description, loaded.Description)
	assert.Equal(t, m.Rows, loaded.Rows)
	assert.Equal(t, m.Columns, loaded.Columns)
	require.Len(t, loaded.Data, len(m.Data))
	for r := range m.Data {
		assert.InDeltaSlice(t, m.Data[r], loaded.Data[r], 1e-6)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.Error(t, err)
}
