// Package report writes the paired .md/.json FFT report files, using the
// same atomic write-to-tmp-then-rename pattern as internal/radar/lagrange.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlexLan73/LCH-Farrow01-sub002/internal/radar/types"
)

type peakJSON struct {
	IndexPoint int     `json:"index_point"`
	Amplitude  float32 `json:"amplitude"`
	Phase      float32 `json:"phase"`
}

type complexJSON [2]float32

type beamJSON struct {
	BeamIndex  int           `json:"beam_index"`
	MaxValues  []peakJSON    `json:"max_values"`
	FFTComplex []complexJSON `json:"fft_complex,omitempty"`
}

type profilingJSON struct {
	Upload       float64 `json:"upload"`
	FFT          float64 `json:"fft"`
	PostCallback float64 `json:"post_callback"`
	Reduction    float64 `json:"reduction"`
	Total        float64 `json:"total"`
}

type documentJSON struct {
	TaskID      string        `json:"task_id"`
	ModuleName  string        `json:"module_name"`
	TotalBeams  int           `json:"total_beams"`
	NFFT        int           `json:"nFFT"`
	ProfilingMS profilingJSON `json:"profiling_ms"`
	Results     []beamJSON    `json:"results"`
}

func toDocument(r types.AntennaFFTResult) documentJSON {
	doc := documentJSON{
		TaskID:     r.TaskID,
		ModuleName: r.ModuleName,
		TotalBeams: r.TotalBeams,
		NFFT:       r.NFFT,
		ProfilingMS: profilingJSON{
			Upload:       r.Profiling.UploadMS,
			FFT:          r.Profiling.FFTMS,
			PostCallback: r.Profiling.PostMS,
			Reduction:    r.Profiling.ReductionMS,
			Total:        r.Profiling.TotalMS,
		},
		Results: make([]beamJSON, len(r.Results)),
	}
	for i, res := range r.Results {
		bj := beamJSON{BeamIndex: res.BeamIndex, MaxValues: make([]peakJSON, len(res.Peaks))}
		for j, p := range res.Peaks {
			bj.MaxValues[j] = peakJSON{IndexPoint: int(p.Index), Amplitude: p.Magnitude, Phase: p.PhaseDeg}
		}
		if res.FFTComplex != nil {
			bj.FFTComplex = make([]complexJSON, len(res.FFTComplex))
			for j, c := range res.FFTComplex {
				bj.FFTComplex[j] = complexJSON{c.Re, c.Im}
			}
		}
		doc.Results[i] = bj
	}
	return doc
}

// Write emits both dir/basePrefix.json and dir/basePrefix.md describing r.
func Write(dir, basePrefix string, r types.AntennaFFTResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: create reports dir: %w", err)
	}

	doc := toDocument(r)
	jsonPath := filepath.Join(dir, basePrefix+".json")
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal json: %w", err)
	}
	if err := atomicWrite(jsonPath, raw); err != nil {
		return err
	}

	mdPath := filepath.Join(dir, basePrefix+".md")
	if err := atomicWrite(mdPath, []byte(renderMarkdown(doc))); err != nil {
		return err
	}
	return nil
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".report-*.tmp")
	if err != nil {
		return fmt.Errorf("report: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("report: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("report: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("report: rename temp file into place: %w", err)
	}
	return nil
}

func renderMarkdown(doc documentJSON) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# FFT report: %s\n\n", doc.TaskID)
	fmt.Fprintf(&b, "- module: `%s`\n", doc.ModuleName)
	fmt.Fprintf(&b, "- total beams: %d\n", doc.TotalBeams)
	fmt.Fprintf(&b, "- nFFT: %d\n\n", doc.NFFT)
	fmt.Fprintf(&b, "## Profiling (ms)\n\n")
	fmt.Fprintf(&b, "| upload | fft | post | reduction | total |\n|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %.3f | %.3f | %.3f | %.3f | %.3f |\n\n",
		doc.ProfilingMS.Upload, doc.ProfilingMS.FFT, doc.ProfilingMS.PostCallback,
		doc.ProfilingMS.Reduction, doc.ProfilingMS.Total)

	fmt.Fprintf(&b, "## Peaks\n\n")
	fmt.Fprintf(&b, "| beam | index | amplitude | phase |\n|---|---|---|---|\n")
	for _, beam := range doc.Results {
		for _, p := range beam.MaxValues {
			fmt.Fprintf(&b, "| %d | %d | %.4f | %.2f |\n", beam.BeamIndex, p.IndexPoint, p.Amplitude, p.Phase)
		}
	}
	return b.String()
}
