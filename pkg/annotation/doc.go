// Package annotation supports the manual coding workflow: it writes a coding
// sheet for collected accounts, reads the sheet back once coders have filled
// in the category columns, and joins the codes onto the accounts by ID.
//
// Categories and their allowed values come from a YAML codebook:
//
//	categories:
//	  - name: relevant
//	    values: [yes, no]
//	    required: true
//	  - name: actor_type
//	    values: [individual, organization, media, other]
//	exclude:
//	  - category: relevant
//	    value: "no"
//
// Accounts without a coded row stay in the result with every category set
// to "uncoded"; rows naming unknown IDs are reported and ignored.
package annotation
