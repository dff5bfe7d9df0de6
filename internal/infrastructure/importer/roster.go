// Package importer reads class rosters from YAML, JSON and CSV files and
// turns them into records the classroom registry can import.
package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/lhtc/classpoint/internal/domain/classroom"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/pkg/validation"
)

// MaxRecords bounds a single import.
const MaxRecords = 1000

// Format is a roster file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ErrUnknownFormat is returned for unsupported file extensions.
var ErrUnknownFormat = errors.New("unknown roster format")

// Record is one roster row.
type Record struct {
	Order *int   `json:"order,omitempty" yaml:"order,omitempty" validate:"omitempty,gte=0"`
	Name  string `json:"name" yaml:"name" validate:"max=100"`
	DOB   string `json:"dob,omitempty" yaml:"dob,omitempty" validate:"dob"`
	Class string `json:"class,omitempty" yaml:"class,omitempty" validate:"max=100"`
}

// Roster is a parsed roster file. Class is an optional default for records
// without one.
type Roster struct {
	Class    string   `json:"class,omitempty" yaml:"class,omitempty" validate:"max=100"`
	Students []Record `json:"students" yaml:"students" validate:"max=1000,dive"`
}

// Records converts the roster to registry records.
func (r Roster) Records() []classroom.ParsedRecord {
	out := make([]classroom.ParsedRecord, 0, len(r.Students))
	for _, rec := range r.Students {
		class := strings.TrimSpace(rec.Class)
		if class == "" {
			class = strings.TrimSpace(r.Class)
		}
		var order *int
		if rec.Order != nil {
			o := *rec.Order
			order = &o
		}
		out = append(out, classroom.ParsedRecord{
			Order:     order,
			Name:      strings.TrimSpace(rec.Name),
			DOB:       strings.TrimSpace(rec.DOB),
			ClassName: class,
		})
	}
	return out
}

// DetectFormat picks the format from a file name.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(name))
	}
}

// ParseFile reads and parses a roster file.
func ParseFile(path string) (Roster, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return Roster{}, shared.WrapError("importer", "ParseFile", shared.ErrInvalidInput, "unsupported file", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return Roster{}, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	return Parse(f, format)
}

// Parse reads a roster in the given format. YAML and JSON accept either a
// {class, students} document or a bare list of students. Rows with every
// field empty are dropped.
func Parse(r io.Reader, format Format) (Roster, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster: %w", err)
	}

	var roster Roster
	switch format {
	case FormatYAML:
		roster, err = parseYAML(data)
	case FormatJSON:
		roster, err = parseJSON(data)
	case FormatCSV:
		roster, err = parseCSV(data)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return Roster{}, shared.WrapError("importer", "Parse", shared.ErrInvalidInput, "malformed roster", err)
	}

	roster.Students = dropEmpty(roster.Students)
	if len(roster.Students) > MaxRecords {
		return Roster{}, shared.Invalid("importer", "Parse", fmt.Sprintf("roster has %d students, the limit is %d", len(roster.Students), MaxRecords))
	}
	if err := validation.Struct(roster); err != nil {
		return Roster{}, shared.WrapError("importer", "Parse", shared.ErrValidation, "invalid roster", err)
	}
	return roster, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// YAML / JSON
// ──────────────────────────────────────────────────────────────────────────────

func parseYAML(data []byte) (Roster, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return Roster{}, err
	}
	if len(node.Content) == 0 {
		return Roster{}, nil
	}

	var roster Roster
	if node.Content[0].Kind == yaml.SequenceNode {
		err := node.Content[0].Decode(&roster.Students)
		return roster, err
	}
	err := node.Content[0].Decode(&roster)
	return roster, err
}

func parseJSON(data []byte) (Roster, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Roster{}, nil
	}

	var roster Roster
	if trimmed[0] == '[' {
		err := json.Unmarshal(trimmed, &roster.Students)
		return roster, err
	}
	err := json.Unmarshal(trimmed, &roster)
	return roster, err
}

// ──────────────────────────────────────────────────────────────────────────────
// CSV
// ──────────────────────────────────────────────────────────────────────────────

type column int

const (
	colOrder column = iota
	colName
	colDOB
	colClass
)

// headerNames maps case-folded header cells to columns. The Vietnamese
// names match the export written by the export package.
var headerNames = map[string]column{
	"stt":       colOrder,
	"order":     colOrder,
	"họ và tên": colName,
	"họ tên":    colName,
	"name":      colName,
	"ngày sinh": colDOB,
	"dob":       colDOB,
	"lớp":       colClass,
	"class":     colClass,
}

// parseCSV reads rows of order,name,dob,class. A header row, when present,
// may reorder or add columns; unknown columns are ignored.
func parseCSV(data []byte) (Roster, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return Roster{}, err
	}
	if len(rows) == 0 {
		return Roster{}, nil
	}

	layout := map[column]int{colOrder: 0, colName: 1, colDOB: 2, colClass: 3}
	if header, ok := detectHeader(rows[0]); ok {
		layout = header
		rows = rows[1:]
	}

	var roster Roster
	for i, row := range rows {
		cell := func(c column) string {
			idx, ok := layout[c]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		rec := Record{Name: cell(colName), DOB: cell(colDOB), Class: cell(colClass)}
		if raw := cell(colOrder); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return Roster{}, fmt.Errorf("row %d: order %q is not a number", i+1, raw)
			}
			rec.Order = &n
		}
		roster.Students = append(roster.Students, rec)
	}
	return roster, nil
}

func detectHeader(row []string) (map[column]int, bool) {
	layout := make(map[column]int)
	fold := cases.Fold()
	for i, cell := range row {
		key := fold.String(strings.TrimSpace(cell))
		if c, ok := headerNames[key]; ok {
			if _, seen := layout[c]; !seen {
				layout[c] = i
			}
		}
	}
	_, hasName := layout[colName]
	return layout, hasName
}

func dropEmpty(records []Record) []Record {
	out := records[:0]
	for _, r := range records {
		if r.Order == nil && strings.TrimSpace(r.Name) == "" &&
			strings.TrimSpace(r.DOB) == "" && strings.TrimSpace(r.Class) == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
