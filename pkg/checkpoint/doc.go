// Package checkpoint saves and restores the progress of a follower link run.
//
// Follower IDs are fetched at a few requests per quarter hour, so a run over
// a few hundred accounts takes hours or days. The checkpoint lets a run be
// interrupted and resumed without repeating requests. It tracks:
//   - the status of every account (pending, collected, skipped, failed)
//   - the account being fetched and the cursor of its next page
//   - every edge collected so far
//
// A checkpoint is tied to its input by a fingerprint of the account IDs;
// resuming against a different account list is refused.
//
// By default checkpoints live next to the run's outputs. NewManager stores
// them in the platform data directory instead:
//   - Linux: ~/.local/share/followgraph/checkpoints/
//   - macOS: ~/Library/Application Support/followgraph/checkpoints/
//   - Windows: %APPDATA%/followgraph/checkpoints/
//
// Checkpoint files are saved atomically and carry a version number.
package checkpoint
