// Package storage manages the output directory that pipeline stages use to
// hand results to each other.
//
// Each stage reads the artifact of the previous stage and writes its own:
//
//	accounts.json          search results
//	coding_sheet.csv       blank sheet for manual coding
//	annotated.json         accounts joined with their codes
//	stats.json             descriptive statistics
//	links.json             follower edges and per-account status
//	links.checkpoint.json  resumable state of an unfinished links run
//
// All writes go through a temporary file followed by a rename, so a crash
// never leaves a half-written artifact behind.
//
// Usage:
//
//	manager, err := storage.NewManager("data")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	var accounts []twitter.Account
//	if err := manager.LoadJSON(storage.AccountsFile, &accounts); err != nil {
//	    log.Fatal(err)
//	}
package storage
