package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/types"
)

func sampleResult() types.AntennaFFTResult {
	return types.AntennaFFTResult{
		TaskID:     "task-1",
		ModuleName: "antenna-fft",
		TotalBeams: 2,
		NFFT:       64,
		Profiling:  types.Profiling{UploadMS: 1, FFTMS: 2, PostMS: 3, ReductionMS: 4, TotalMS: 10},
		Results: []types.FFTResult{
			{BeamIndex: 0, Peaks: []types.PeakRecord{{Index: 3, Magnitude: 1.5, PhaseDeg: 45}}},
			{BeamIndex: 1, Peaks: []types.PeakRecord{{Index: types.PeakIndexSentinel, Magnitude: 0, PhaseDeg: 0}}},
		},
	}
}

func TestWriteProducesBothFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, "report", sampleResult()))

	jsonPath := filepath.Join(dir, "report.json")
	mdPath := filepath.Join(dir, "report.md")
	assert.FileExists(t, jsonPath)
	assert.FileExists(t, mdPath)

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)

	var doc documentJSON
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "task-1", doc.TaskID)
	assert.Equal(t, 2, doc.TotalBeams)
	assert.Equal(t, 64, doc.NFFT)
	require.Len(t, doc.Results, 2)
	assert.Equal(t, 3, doc.Results[0].MaxValues[0].IndexPoint)

	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "task-1")
	assert.Contains(t, string(md), "Profiling")
}

func TestWriteCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")
	require.NoError(t, Write(dir, "out", sampleResult()))
	assert.FileExists(t, filepath.Join(dir, "out.json"))
}
