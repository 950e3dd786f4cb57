package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"sprintrep/adapters/excel"
	"sprintrep/domain/core"
	"sprintrep/domain/sprint"
	"sprintrep/internal"
)

// missingMarkers are cell values treated as missing in addition to blanks.
var missingMarkers = map[string]bool{
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	".":    true,
	"-":    true,
}

// LoadAndReshape reads one dataset file and returns both its wide and long forms.
func LoadAndReshape(spec sprint.DatasetSpec, log *internal.Logger) (*sprint.SprintDataset, []sprint.LongObservation, error) {
	log = log.WithField("dataset", spec.Label)

	reader := excel.NewDataReader(spec.Path).WithLogger(log)
	raw, err := reader.ReadData()
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", spec.Path, err)
	}

	ds, err := FromTable(spec, raw, reader, log)
	if err != nil {
		return nil, nil, err
	}

	observations := Unpivot(ds)
	log.Info("Loaded %d participants (%d observations, %d rows dropped)", len(ds.Participants), len(observations), ds.DroppedRows)
	return ds, observations, nil
}

// NormalizeHeader lowercases a header and collapses every run of
// non-alphanumeric characters into a single underscore.
func NormalizeHeader(h string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// normalizeTable re-keys a raw table by normalized, renamed headers.
func normalizeTable(raw *excel.ExcelData, renames map[string]string) (*excel.ExcelData, error) {
	out := &excel.ExcelData{Headers: make([]string, len(raw.Headers))}
	seen := make(map[string]string, len(raw.Headers))

	for i, h := range raw.Headers {
		name := NormalizeHeader(h)
		if renamed, ok := renames[name]; ok {
			name = renamed
		}
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if prev, dup := seen[name]; dup {
			return nil, core.NewInvalidInputError("header", fmt.Sprintf("%q and %q both normalize to %q", prev, h, name))
		}
		seen[name] = h
		out.Headers[i] = name
	}

	out.Rows = make([]excel.RawRowData, len(raw.Rows))
	for r, row := range raw.Rows {
		normalized := make(excel.RawRowData, len(row))
		for i, h := range raw.Headers {
			normalized[out.Headers[i]] = row[h]
		}
		out.Rows[r] = normalized
	}
	return out, nil
}

// FromTable validates a raw table against the condition schema and builds the
// wide dataset. Rows with a missing condition value are dropped listwise when
// spec.DropMissing is set and rejected otherwise.
func FromTable(spec sprint.DatasetSpec, raw *excel.ExcelData, reader *excel.DataReader, log *internal.Logger) (*sprint.SprintDataset, error) {
	table, err := normalizeTable(raw, spec.Renames)
	if err != nil {
		return nil, err
	}

	for _, c := range sprint.Conditions {
		if !table.HasHeader(string(c)) {
			return nil, core.NewSchemaError(spec.Label, string(c))
		}
	}

	idColumn, err := reader.DetectEntityColumn(table)
	if err == nil {
		if _, isCondition := sprint.Condition(idColumn).Index(); isCondition {
			err = fmt.Errorf("detected column %q is a condition", idColumn)
		}
	}
	if err != nil {
		log.Warn("No participant column found (%v); using row numbers", err)
		idColumn = ""
	}

	ds := &sprint.SprintDataset{Label: spec.Label}
	seenIDs := make(map[core.ParticipantID]bool, len(table.Rows))

	for r, row := range table.Rows {
		lineNo := r + 2 // header is line 1

		id := core.ParticipantID(fmt.Sprintf("row_%d", lineNo))
		if idColumn != "" {
			if parsed, err := core.ParseParticipantID(row[idColumn]); err == nil {
				id = parsed
			}
		}
		if seenIDs[id] {
			return nil, core.NewInvalidInputError(fmt.Sprintf("%s line %d", spec.Label, lineNo), fmt.Sprintf("duplicate participant %q", id))
		}

		times := make(map[sprint.Condition]float64, len(sprint.Conditions))
		var missing []string
		for _, c := range sprint.Conditions {
			cell := row[string(c)]
			if isMissing(cell) {
				missing = append(missing, string(c))
				continue
			}
			v, err := parseSprintTime(cell)
			if err != nil {
				return nil, core.NewInvalidInputError(fmt.Sprintf("%s line %d column %s", spec.Label, lineNo, c), err.Error())
			}
			times[c] = v
		}

		if len(missing) > 0 {
			if !spec.DropMissing {
				return nil, core.NewInvalidInputError(fmt.Sprintf("%s line %d", spec.Label, lineNo), "missing value in "+strings.Join(missing, ", "))
			}
			log.Debug("Dropping participant %s: missing %s", id, strings.Join(missing, ", "))
			ds.DroppedRows++
			continue
		}

		seenIDs[id] = true
		ds.Participants = append(ds.Participants, sprint.Participant{ID: id, Times: times})
	}

	if ds.DroppedRows > 0 {
		log.Warn("Dropped %d of %d rows with missing condition values", ds.DroppedRows, len(table.Rows))
	}
	return ds, nil
}

func isMissing(cell string) bool {
	cell = strings.TrimSpace(cell)
	return cell == "" || missingMarkers[strings.ToLower(cell)]
}

// parseSprintTime accepts "1.92" and the decimal-comma form "1,92".
func parseSprintTime(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", cell)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("sprint time must be a positive real, got %q", cell)
	}
	return v, nil
}
