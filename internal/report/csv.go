package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/nao1215/pageaudit/internal/model"
)

// csvHeader is the flattened record schema. page is the 1-based record index.
var csvHeader = []string{"page", "title", "url", "loadTimeMs", "screenshot", "status", "name", "duration", "initiatorType"}

// resourceCSVHeader is the schema of a per-page resource file.
var resourceCSVHeader = []string{"name", "duration", "initiatorType"}

// CSVWriter flattens records into one row per ranked resource. A record
// without resources produces one row with empty resource columns.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the records of report as CSV with a header row.
func (w *CSVWriter) Write(report *model.AuditReport) (int, error) {
	cw := &countingWriter{w: w.output}
	out := csv.NewWriter(cw)

	if err := out.Write(csvHeader); err != nil {
		return cw.n, err
	}
	for i, rec := range report.Records {
		page := []string{
			strconv.Itoa(i + 1),
			rec.Title,
			rec.URL,
			formatFloat(rec.LoadTimeMs),
			rec.Screenshot,
			rec.Status.String(),
		}
		if len(rec.TopResources) == 0 {
			if err := out.Write(append(page, "", "", "")); err != nil {
				return cw.n, err
			}
			continue
		}
		for _, s := range rec.TopResources {
			row := append(slices.Clone(page), s.Name, formatFloat(s.Duration), s.InitiatorType)
			if err := out.Write(row); err != nil {
				return cw.n, err
			}
		}
	}

	out.Flush()
	return cw.n, out.Error()
}

// WriteResourceCSV writes samples with the header name,duration,initiatorType.
func WriteResourceCSV(w io.Writer, samples []model.ResourceSample) error {
	out := csv.NewWriter(w)
	if err := out.Write(resourceCSVHeader); err != nil {
		return err
	}
	for _, s := range samples {
		if err := out.Write([]string{s.Name, formatFloat(s.Duration), s.InitiatorType}); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

// ReadCSV rebuilds records from CSVWriter output. Checks, errors and audit
// times are not part of the CSV schema and come back empty.
func ReadCSV(r io.Reader) ([]model.PageAuditRecord, error) {
	in := csv.NewReader(r)
	in.FieldsPerRecord = len(csvHeader)

	header, err := in.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrMalformedCSV)
		}
		return nil, err
	}
	if !slices.Equal(header, csvHeader) {
		return nil, fmt.Errorf("%w: unexpected header %v", ErrMalformedCSV, header)
	}

	var (
		records []model.PageAuditRecord
		current = -1
	)
	for {
		row, err := in.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		page, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%w: page %q: %v", ErrMalformedCSV, row[0], err)
		}
		if page != current {
			rec, err := parseCSVRecord(row)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
			current = page
		}

		if row[6] == "" && row[7] == "" && row[8] == "" {
			continue
		}
		duration, err := strconv.ParseFloat(row[7], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: duration %q: %v", ErrMalformedCSV, row[7], err)
		}
		last := &records[len(records)-1]
		last.TopResources = append(last.TopResources, model.ResourceSample{
			Name:          row[6],
			Duration:      duration,
			InitiatorType: row[8],
		})
	}
	return records, nil
}

// parseCSVRecord reads the page-level columns of a row.
func parseCSVRecord(row []string) (model.PageAuditRecord, error) {
	load, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return model.PageAuditRecord{}, fmt.Errorf("%w: loadTimeMs %q: %v", ErrMalformedCSV, row[3], err)
	}
	status, err := model.ParseStatus(row[5])
	if err != nil {
		return model.PageAuditRecord{}, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
	}
	return model.PageAuditRecord{
		Title:        row[1],
		URL:          row[2],
		LoadTimeMs:   load,
		Screenshot:   row[4],
		Status:       status,
		TopResources: []model.ResourceSample{},
	}, nil
}

// formatFloat prints the shortest representation that parses back exactly.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
