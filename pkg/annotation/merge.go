package annotation

import (
	"sort"

	"followgraph/pkg/twitter"
)

// Annotated is an account with its manual codes
type Annotated struct {
	twitter.Account
	Codes Codes `json:"codes"`
}

// Code returns the account's value for category, or Uncoded
func (a *Annotated) Code(category string) string {
	if v, ok := a.Codes[category]; ok && v != "" {
		return v
	}
	return Uncoded
}

// Excluded is an account dropped by an exclude rule
type Excluded struct {
	Annotated
	Rule ExcludeRule `json:"rule"`
}

// MergeResult is the outcome of joining labels onto accounts
type MergeResult struct {
	Accounts []Annotated `json:"accounts"`
	// Uncoded lists accounts without a label row; they are kept in Accounts
	Uncoded []string `json:"uncoded"`
	// UnknownIDs lists label rows that match no account; they are ignored
	UnknownIDs []string   `json:"unknown_ids"`
	Excluded   []Excluded `json:"excluded"`
}

// Merge joins labels onto accounts by ID, preserving account order. Accounts
// without labels get Uncoded for every category; coded accounts matching an
// exclude rule are moved to Excluded.
func Merge(accounts []twitter.Account, labels Labels, cb *Codebook) *MergeResult {
	res := &MergeResult{Accounts: make([]Annotated, 0, len(accounts))}
	known := make(map[string]bool, len(accounts))

	for _, a := range accounts {
		known[a.ID] = true

		codes, ok := labels[a.ID]
		if !ok {
			res.Uncoded = append(res.Uncoded, a.ID)
			res.Accounts = append(res.Accounts, Annotated{Account: a, Codes: uncodedCodes(cb)})
			continue
		}

		merged := make(Codes, len(cb.Categories))
		for _, c := range cb.Categories {
			if v := codes[c.Name]; v != "" {
				merged[c.Name] = v
			} else {
				merged[c.Name] = Uncoded
			}
		}

		ann := Annotated{Account: a, Codes: merged}
		if rule, drop := cb.Excludes(merged); drop {
			res.Excluded = append(res.Excluded, Excluded{Annotated: ann, Rule: rule})
			continue
		}
		res.Accounts = append(res.Accounts, ann)
	}

	for id := range labels {
		if !known[id] {
			res.UnknownIDs = append(res.UnknownIDs, id)
		}
	}
	sort.Strings(res.UnknownIDs)

	return res
}

func uncodedCodes(cb *Codebook) Codes {
	codes := make(Codes, len(cb.Categories))
	for _, c := range cb.Categories {
		codes[c.Name] = Uncoded
	}
	return codes
}
