package stats

import (
	"sort"

	"followgraph/pkg/annotation"
)

// Frequency is one row of a frequency table
type Frequency struct {
	Value   string  `json:"value"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Frequencies counts the values of category across accounts, ordered by
// count descending and then by value.
func Frequencies(accounts []annotation.Annotated, category string) []Frequency {
	counts := make(map[string]int)
	for i := range accounts {
		counts[accounts[i].Code(category)]++
	}

	out := make([]Frequency, 0, len(counts))
	for v, n := range counts {
		out = append(out, Frequency{
			Value:   v,
			Count:   n,
			Percent: percent(n, len(accounts)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// CrossTab counts accounts by the values of two categories
type CrossTab struct {
	Row    string   `json:"row"`
	Column string   `json:"column"`
	Rows   []string `json:"rows"`
	Cols   []string `json:"cols"`
	// Counts is indexed [row][col]
	Counts [][]int `json:"counts"`
	Total  int     `json:"total"`
}

// Crosstab tabulates row against col. Row and column values are sorted.
func Crosstab(accounts []annotation.Annotated, row, col string) *CrossTab {
	ct := &CrossTab{Row: row, Column: col, Total: len(accounts)}

	rowIdx := make(map[string]int)
	colIdx := make(map[string]int)
	for i := range accounts {
		rowIdx[accounts[i].Code(row)] = 0
		colIdx[accounts[i].Code(col)] = 0
	}
	ct.Rows = sortedKeys(rowIdx)
	ct.Cols = sortedKeys(colIdx)
	for i, v := range ct.Rows {
		rowIdx[v] = i
	}
	for i, v := range ct.Cols {
		colIdx[v] = i
	}

	ct.Counts = make([][]int, len(ct.Rows))
	for i := range ct.Counts {
		ct.Counts[i] = make([]int, len(ct.Cols))
	}
	for i := range accounts {
		r := rowIdx[accounts[i].Code(row)]
		c := colIdx[accounts[i].Code(col)]
		ct.Counts[r][c]++
	}
	return ct
}

// RowTotal returns the number of accounts in row r
func (ct *CrossTab) RowTotal(r int) int {
	total := 0
	for _, n := range ct.Counts[r] {
		total += n
	}
	return total
}

// ColTotal returns the number of accounts in column c
func (ct *CrossTab) ColTotal(c int) int {
	total := 0
	for _, row := range ct.Counts {
		total += row[c]
	}
	return total
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
