// Package report writes analysis results to disk.
//
// CSV files are opened in append mode so one file collects the results of
// many stacks; the header row is written only when the file is created.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"axonspread/pkg/quantify"
)

// Headers are the CSV column names, in order
var Headers = []string{
	"Image filename",
	"Spread x [pixel]",
	"Spread y [pixel]",
	"Spread z [pixel]",
	"Spread x*y [pixel²]",
	"Spread x*y*z [pixel³]",
	"Spread x [µm]",
	"Spread y [µm]",
	"Spread z [µm]",
	"Spread x*y [µm²]",
	"Spread x*y*z [µm³]",
	"Axonal Volume",
	"Fluorescence_px",
	"Fluorescence_um",
	"Observation",
}

// Record is one row of the results file
type Record struct {
	// RunID identifies the analysis run
	RunID string `json:"run_id"`

	// CreatedAt is when the analysis finished
	CreatedAt time.Time `json:"created_at"`

	ImageName   string `json:"image_name"`
	Observation string `json:"observation,omitempty"`

	// StackDigest is the BLAKE3 digest of the input slice files, if known
	StackDigest string `json:"stack_digest,omitempty"`

	Result *quantify.SpreadResult `json:"result"`
}

// NewRecord stamps a result with a fresh run ID and the current time
func NewRecord(imageName, observation string, result *quantify.SpreadResult) Record {
	return Record{
		RunID:       uuid.New().String(),
		CreatedAt:   time.Now().UTC(),
		ImageName:   imageName,
		Observation: observation,
		Result:      result,
	}
}

// Row returns the CSV fields of r in Headers order
func (r Record) Row() []string {
	res := r.Result
	values := []float64{
		res.SpreadXPixel,
		res.SpreadYPixel,
		res.SpreadZPixel,
		res.SpreadXYPixel,
		res.SpreadXYZPixel,
		res.SpreadXUm,
		res.SpreadYUm,
		res.SpreadZUm,
		res.SpreadXYUm,
		res.SpreadXYZUm,
		res.AxonalVolume,
		res.FluorescencePx,
		res.FluorescenceUm,
	}

	row := make([]string, 0, len(Headers))
	row = append(row, r.ImageName)
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return append(row, r.Observation)
}

// AppendCSV appends r to the CSV file at path, creating the file and its
// header row when it does not exist yet
func AppendCSV(path string, r Record) error {
	if r.Result == nil {
		return fmt.Errorf("record for %q has no result", r.ImageName)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}
	}

	writeHeader := true
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		writeHeader = false
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error opening results file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if writeHeader {
		if err := w.Write(Headers); err != nil {
			return fmt.Errorf("error writing CSV header: %w", err)
		}
	}
	if err := w.Write(r.Row()); err != nil {
		return fmt.Errorf("error writing CSV row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("error flushing CSV: %w", err)
	}
	return file.Close()
}

// WriteJSON writes r as indented JSON
func WriteJSON(w io.Writer, r Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
