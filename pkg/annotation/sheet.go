package annotation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"followgraph/pkg/twitter"
)

// IdentityColumns are the leading, read-only columns of a coding sheet
var IdentityColumns = []string{"id", "screen_name", "name", "description", "location", "url", "followers_count", "profile"}

// ErrMangledID is returned for ids a spreadsheet turned into a float
var ErrMangledID = errors.New("account id in scientific notation")

// ErrDuplicateID is returned when a coded sheet lists the same account twice
var ErrDuplicateID = errors.New("duplicate account id")

// Codes maps category name to coded value
type Codes map[string]string

// Labels maps account ID to its codes
type Labels map[string]Codes

func isIdentityColumn(name string) bool {
	for _, c := range IdentityColumns {
		if c == name {
			return true
		}
	}
	return false
}

// WriteSheet writes a coding sheet: one row per account with the identity
// columns filled in and one empty column per codebook category. Ids are
// written bare; spreadsheets must open the id column as text or they round
// long ids to scientific notation, which ReadLabels rejects.
func WriteSheet(w io.Writer, accounts []twitter.Account, cb *Codebook) error {
	cw := csv.NewWriter(w)

	header := append(append([]string{}, IdentityColumns...), cb.Names()...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write sheet header: %w", err)
	}

	empty := make([]string, len(cb.Categories))
	for _, a := range accounts {
		row := []string{
			a.ID,
			a.ScreenName,
			a.Name,
			flatten(a.Description),
			flatten(a.Location),
			a.URL,
			strconv.Itoa(a.FollowersCount),
			twitter.ProfileURL(a.ScreenName),
		}
		if err := cw.Write(append(row, empty...)); err != nil {
			return fmt.Errorf("failed to write sheet row for %s: %w", a.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadLabels reads a coded sheet. Cell values are trimmed and lower-cased
// and checked against the codebook; all problems are reported together.
// Rows whose category cells are all empty are treated as not yet coded and
// skipped.
func ReadLabels(r io.Reader, cb *Codebook) (Labels, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[normalizeValue(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	idCol, ok := columns["id"]
	if !ok {
		return nil, errors.New("sheet has no id column")
	}

	var problems []error
	for _, c := range cb.Categories {
		if _, ok := columns[normalizeValue(c.Name)]; !ok && c.Required {
			problems = append(problems, fmt.Errorf("sheet has no column for required category %q", c.Name))
		}
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}

	labels := make(Labels)
	firstRow := make(map[string]int)
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			problems = append(problems, fmt.Errorf("line %d: %w", line, err))
			continue
		}

		id := normalizeID(cell(record, idCol))
		if id == "" {
			if !blank(record) {
				problems = append(problems, fmt.Errorf("line %d: missing id", line))
			}
			continue
		}

		if scientific.MatchString(id) {
			problems = append(problems, fmt.Errorf("line %d: %w (%s); format the id column as text or prefix ids with '", line, ErrMangledID, id))
			continue
		}

		if prev, dup := firstRow[id]; dup {
			problems = append(problems, fmt.Errorf("line %d: %w %s (first on line %d)", line, ErrDuplicateID, id, prev))
			continue
		}
		firstRow[id] = line

		codes, rowProblems := readCodes(record, columns, cb)
		for _, p := range rowProblems {
			problems = append(problems, fmt.Errorf("line %d (id %s): %w", line, id, p))
		}
		if codes != nil && len(rowProblems) == 0 {
			labels[id] = codes
		}
	}

	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	return labels, nil
}

// readCodes returns nil codes when every category cell is empty
func readCodes(record []string, columns map[string]int, cb *Codebook) (Codes, []error) {
	codes := make(Codes, len(cb.Categories))
	var problems []error
	filled := 0

	for _, c := range cb.Categories {
		col, ok := columns[normalizeValue(c.Name)]
		if !ok {
			continue
		}
		v := normalizeValue(cell(record, col))
		if v == "" {
			continue
		}
		filled++
		if !c.Allows(v) {
			problems = append(problems, fmt.Errorf("category %q: value %q not in %v", c.Name, v, c.Values))
			continue
		}
		codes[c.Name] = v
	}

	if filled == 0 {
		return nil, nil
	}
	for _, c := range cb.Categories {
		if c.Required && codes[c.Name] == "" && !hasProblemFor(problems, c.Name) {
			problems = append(problems, fmt.Errorf("category %q is required", c.Name))
		}
	}
	return codes, problems
}

func hasProblemFor(problems []error, category string) bool {
	needle := fmt.Sprintf("category %q", category)
	for _, p := range problems {
		if strings.HasPrefix(p.Error(), needle) {
			return true
		}
	}
	return false
}

func cell(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

var scientific = regexp.MustCompile(`^[0-9]+([.,][0-9]*)?[eE][+-]?[0-9]+$`)

// normalizeID strips whitespace and the leading apostrophe spreadsheets use
// to keep long numbers as text
func normalizeID(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), "'")
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
