// Package checkpoint records how far a collection run got so it can resume.
//
// A checkpoint holds the cursor of the next unprocessed page together with
// running totals. It is rewritten after every page and deleted once the
// collection has been read to the end. Files live in the platform data
// directory:
//   - Linux: $XDG_DATA_HOME/igcollect/checkpoints/ or ~/.local/share/igcollect/checkpoints/
//   - macOS: ~/Library/Application Support/igcollect/checkpoints/
//   - Windows: %APPDATA%/igcollect/checkpoints/
package checkpoint
