package domain

import (
	"cmp"
	"strings"
)

// ============================================================
// Contributors (batch processing)
// ============================================================

// Contributor is a taxpayer with one or more omitted tributes.
type Contributor struct {
	Name            string             `json:"name" yaml:"name"`
	PaternalSurname string             `json:"paternal_surname" yaml:"paternal_surname"`
	MaternalSurname string             `json:"maternal_surname" yaml:"maternal_surname"`
	Tributes        []DebtRequestInput `json:"tributes" yaml:"tributes"`
}

// FullName returns "Name Paternal Maternal" without empty parts.
func (c Contributor) FullName() string {
	return strings.Join(strings.Fields(c.Name+" "+c.PaternalSurname+" "+c.MaternalSurname), " ")
}

// CompareContributors orders contributors by paternal surname, then maternal
// surname, then name.
func CompareContributors(a, b Contributor) int {
	if c := cmp.Compare(a.PaternalSurname, b.PaternalSurname); c != 0 {
		return c
	}
	if c := cmp.Compare(a.MaternalSurname, b.MaternalSurname); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

// BatchRequest is the body of POST /v1/debt/batch and the batch file format.
type BatchRequest struct {
	Contributors []Contributor `json:"contributors" yaml:"contributors"`
}

// TributeResult is the outcome of one tribute. Exactly one of Report and
// Error is set.
type TributeResult struct {
	Label  string      `json:"label,omitempty"`
	Report *DebtReport `json:"report,omitempty"`
	Index  *IndexPair  `json:"index,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// ContributorResult groups the tributes of one contributor.
// Total sums the successful tributes only.
type ContributorResult struct {
	Name     string          `json:"name"`
	Tributes []TributeResult `json:"tributes"`
	Total    DebtReport      `json:"total"`
	Failed   int             `json:"failed"`
}

// BatchResult is returned by POST /v1/debt/batch.
// Contributors are listed in pre-order of the contributor tree.
type BatchResult struct {
	BatchID      string              `json:"batch_id"`
	Contributors []ContributorResult `json:"contributors"`
	Tree         string              `json:"tree"`
	History      []string            `json:"history"`
}
