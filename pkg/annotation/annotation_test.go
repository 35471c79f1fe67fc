package annotation

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followgraph/pkg/twitter"
)

func testAccounts() []twitter.Account {
	return []twitter.Account{
		{ID: "1", ScreenName: "alice", Name: "Alice", Description: "open\nscience", FollowersCount: 10},
		{ID: "2", ScreenName: "bob", Name: "Bob", FollowersCount: 20},
		{ID: "3", ScreenName: "carol", Name: "Carol", FollowersCount: 30},
	}
}

func TestWriteSheet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSheet(&buf, testAccounts(), DefaultCodebook()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, []string{"id", "screen_name", "name", "description", "location", "url", "followers_count", "profile", "relevant", "actor_type"}, records[0])
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "open science", records[1][3], "newlines flattened")
	assert.Equal(t, "10", records[1][6])
	assert.Equal(t, "https://twitter.com/"+records[1][1], records[1][7])
	assert.Equal(t, "", records[1][8])
	assert.Equal(t, "", records[1][9])
}

func TestReadLabels(t *testing.T) {
	sheet := strings.Join([]string{
		"id,screen_name,relevant,actor_type,notes",
		"1,alice, YES ,Individual,free text",
		"'2,bob,no,,",
		"3,carol,,,",
		"",
	}, "\n")

	labels, err := ReadLabels(strings.NewReader(sheet), DefaultCodebook())
	require.NoError(t, err)

	require.Len(t, labels, 2)
	assert.Equal(t, Codes{"relevant": "yes", "actor_type": "individual"}, labels["1"])
	assert.Equal(t, Codes{"relevant": "no"}, labels["2"], "apostrophe prefix stripped")
	_, coded := labels["3"]
	assert.False(t, coded, "blank row is not coded yet")
}

func TestReadLabelsReportsAllProblems(t *testing.T) {
	sheet := strings.Join([]string{
		"id,relevant,actor_type",
		"1,maybe,individual",
		"2,,media",
		"3,yes,robot",
		"1,yes,",
		",yes,media",
	}, "\n")

	_, err := ReadLabels(strings.NewReader(sheet), DefaultCodebook())
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, `line 2 (id 1): category "relevant": value "maybe"`)
	assert.Contains(t, msg, `line 3 (id 2): category "relevant" is required`)
	assert.Contains(t, msg, `line 4 (id 3): category "actor_type": value "robot"`)
	assert.Contains(t, msg, "line 5: duplicate account id 1 (first on line 2)")
	assert.Contains(t, msg, "line 6: missing id")
	assert.True(t, errors.Is(err, ErrDuplicateID))
}

func TestReadLabelsMissingColumns(t *testing.T) {
	_, err := ReadLabels(strings.NewReader("screen_name,relevant\nalice,yes\n"), DefaultCodebook())
	assert.ErrorContains(t, err, "no id column")

	_, err = ReadLabels(strings.NewReader("id,actor_type\n1,media\n"), DefaultCodebook())
	assert.ErrorContains(t, err, `required category "relevant"`)
}

func TestReadLabelsRejectsScientificIDs(t *testing.T) {
	sheet := "id,relevant\n1.23457E+18,yes\n'1234567890123456789,no\n"

	_, err := ReadLabels(strings.NewReader(sheet), DefaultCodebook())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMangledID))
	assert.Contains(t, err.Error(), "line 2")
	assert.NotContains(t, err.Error(), "line 3")
}

func TestMixedCaseCategoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codebook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  - name: Region
    values: [North, South]
    required: true
exclude:
  - category: REGION
    value: south
`), 0644))

	cb, err := LoadCodebook(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"region"}, cb.Names())

	var buf bytes.Buffer
	require.NoError(t, WriteSheet(&buf, testAccounts()[:2], cb))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	records[1][len(records[1])-1] = "north"
	records[2][len(records[2])-1] = "South"

	var coded bytes.Buffer
	require.NoError(t, csv.NewWriter(&coded).WriteAll(records))

	labels, err := ReadLabels(&coded, cb)
	require.NoError(t, err)
	res := Merge(testAccounts()[:2], labels, cb)

	require.Len(t, res.Accounts, 1)
	assert.Equal(t, "north", res.Accounts[0].Code("region"))
	assert.Empty(t, res.Uncoded)
	require.Len(t, res.Excluded, 1)
	assert.Equal(t, "2", res.Excluded[0].ID)
}

func TestMerge(t *testing.T) {
	labels := Labels{
		"1":  {"relevant": "yes", "actor_type": "individual"},
		"2":  {"relevant": "no"},
		"99": {"relevant": "yes"},
	}

	res := Merge(testAccounts(), labels, DefaultCodebook())

	require.Len(t, res.Accounts, 2)
	assert.Equal(t, "1", res.Accounts[0].ID)
	assert.Equal(t, "individual", res.Accounts[0].Code("actor_type"))

	assert.Equal(t, "3", res.Accounts[1].ID)
	assert.Equal(t, Uncoded, res.Accounts[1].Code("relevant"))
	assert.Equal(t, []string{"3"}, res.Uncoded)

	require.Len(t, res.Excluded, 1)
	assert.Equal(t, "2", res.Excluded[0].ID)
	assert.Equal(t, ExcludeRule{Category: "relevant", Value: "no"}, res.Excluded[0].Rule)

	assert.Equal(t, []string{"99"}, res.UnknownIDs)
}

func TestMergePartialCodes(t *testing.T) {
	res := Merge(testAccounts()[:1], Labels{"1": {"relevant": "yes"}}, DefaultCodebook())
	require.Len(t, res.Accounts, 1)
	assert.Equal(t, Uncoded, res.Accounts[0].Codes["actor_type"])
	assert.Empty(t, res.Uncoded)
}

func TestCodebookRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codebook.yaml")
	require.NoError(t, DefaultCodebook().Save(path))

	cb, err := LoadCodebook(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"relevant", "actor_type"}, cb.Names())
	assert.True(t, cb.Category("relevant").Required)
}

func TestLoadCodebookNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codebook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  - name: stance
    values: [" Pro ", CONTRA]
exclude:
  - category: stance
    value: Contra
`), 0644))

	cb, err := LoadCodebook(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"pro", "contra"}, cb.Category("stance").Values)
	assert.Equal(t, "contra", cb.Exclude[0].Value)
}

func TestCodebookValidate(t *testing.T) {
	cb := &Codebook{
		Categories: []Category{
			{Name: "id", Values: []string{"x"}},
			{Name: "a", Values: nil},
			{Name: "b", Values: []string{"uncoded"}},
			{Name: "b", Values: []string{"y"}},
			{Name: "external", Values: []string{"y"}},
			{Name: "Link_Status", Values: []string{"y"}},
		},
		Exclude: []ExcludeRule{{Category: "zzz", Value: "x"}, {Category: "a", Value: "q"}},
	}

	err := cb.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `"id" clashes`)
	assert.Contains(t, msg, `"a" has no values`)
	assert.Contains(t, msg, `"b" has invalid value "uncoded"`)
	assert.Contains(t, msg, `"b" defined twice`)
	assert.Contains(t, msg, `"external" clashes with a graph attribute`)
	assert.Contains(t, msg, `"Link_Status" clashes with a graph attribute`)
	assert.Contains(t, msg, `unknown category "zzz"`)
	assert.Contains(t, msg, `value "q" not allowed`)

	assert.Error(t, (&Codebook{}).Validate())
	assert.NoError(t, DefaultCodebook().Validate())
}
