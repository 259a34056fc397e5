// Package lagrange loads and validates the Lagrange interpolation table
// from its on-disk JSON form, using an atomic write-to-tmp-then-rename
// pattern.
package lagrange

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/gpuerr"
	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/types"
)

type fileForm struct {
	Description string      `json:"description"`
	Rows        int         `json:"rows"`
	Columns     int         `json:"columns"`
	Data        [][]float32 `json:"data"`
}

// rowSumTolerance is the +/-1% row-sum validation band.
const rowSumTolerance = 0.01

// Load reads and validates a Lagrange matrix file: exact 48x5 dimensions,
// every row summing to 1.0 +/- 1%. Any mismatch returns
// gpuerr.ErrInvalidLagrangeFile.
func Load(path string) (types.LagrangeMatrix, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.LagrangeMatrix{}, fmt.Errorf("%w: read %s: %v", gpuerr.ErrInvalidLagrangeFile, path, err)
	}

	var f fileForm
	if err := json.Unmarshal(raw, &f); err != nil {
		return types.LagrangeMatrix{}, fmt.Errorf("%w: parse %s: %v", gpuerr.ErrInvalidLagrangeFile, path, err)
	}

	m := types.LagrangeMatrix{
		Description: f.Description,
		Rows:        f.Rows,
		Columns:     f.Columns,
		Data:        f.Data,
	}
	if err := Validate(m); err != nil {
		return types.LagrangeMatrix{}, err
	}
	return m, nil
}

// Validate checks the dimension and row-sum invariants. A Columns value
// other than 5 is rejected outright — no guessing at a different tap
// count.
func Validate(m types.LagrangeMatrix) error {
	if m.Rows != types.LagrangeRows || m.Columns != types.LagrangeTaps {
		return fmt.Errorf("%w: expected %dx%d, got %dx%d", gpuerr.ErrInvalidLagrangeFile,
			types.LagrangeRows, types.LagrangeTaps, m.Rows, m.Columns)
	}
	if len(m.Data) != m.Rows {
		return fmt.Errorf("%w: expected %d data rows, got %d", gpuerr.ErrInvalidLagrangeFile, m.Rows, len(m.Data))
	}
	for r, row := range m.Data {
		if len(row) != m.Columns {
			return fmt.Errorf("%w: row %d has %d columns, want %d", gpuerr.ErrInvalidLagrangeFile, r, len(row), m.Columns)
		}
		sum := m.RowSum(r)
		if math.Abs(float64(sum)-1.0) >= rowSumTolerance {
			return fmt.Errorf("%w: row %d sums to %f, want 1.0 +/- %.2f", gpuerr.ErrInvalidLagrangeFile, r, sum, rowSumTolerance)
		}
	}
	return nil
}

// Default builds the canonical 48x5 Lagrange interpolation table: row r
// holds the 5-tap fourth-order Lagrange coefficients over the 5-point
// window [-2,-1,0,1,2] relative to the base sample, evaluated at offset
// -r/48. Since the delay convolution reads input at k-2 for k in [0,4],
// row r adds a fractional delay of r/48 samples.
func Default() types.LagrangeMatrix {
	data := make([][]float32, types.LagrangeRows)
	nodes := [types.LagrangeTaps]float64{-2, -1, 0, 1, 2}
	for r := 0; r < types.LagrangeRows; r++ {
		x := -float64(r) / types.LagrangeRows
		row := make([]float32, types.LagrangeTaps)
		for k := 0; k < types.LagrangeTaps; k++ {
			l := 1.0
			for j := 0; j < types.LagrangeTaps; j++ {
				if j == k {
					continue
				}
				l *= (x - nodes[j]) / (nodes[k] - nodes[j])
			}
			row[k] = float32(l)
		}
		data[r] = row
	}
	return types.LagrangeMatrix{
		Description: "fourth-order Lagrange fractional-delay table, 48 rows x 5 taps",
		Rows:        types.LagrangeRows,
		Columns:     types.LagrangeTaps,
		Data:        data,
	}
}

// Save writes m to path via an atomic write-to-tmp-then-rename pattern, so
// a crash mid-write never leaves a half-written table on disk.
func Save(path string, m types.LagrangeMatrix) error {
	f := fileForm{Description: m.Description, Rows: m.Rows, Columns: m.Columns, Data: m.Data}
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal lagrange matrix: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".lagrange-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file into place: %w", err)
	}
	return nil
}
