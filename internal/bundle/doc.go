// Package bundle selects the files of a project directory that belong in a
// release archive and drives the archive writer.
//
// # Pipeline
//
// A run moves through five synchronous stages:
//
//	ResolveBase   -> absolute, canonical bundle root
//	LoadIgnore    -> IgnoreSet from <root>/.mbbignore
//	Selector      -> sorted FileList (walk or git-tracked)
//	ComposeTitle  -> <dirname>[-<short revision>]
//	archive       -> <title>.tar.gz
//
// Bundler.Plan performs the first four stages; Bundler.Run adds the fifth.
//
// # Ignore Rules
//
// Each non-blank line of .mbbignore that does not start with '#' names a
// file or directory relative to the bundle root. Matching is exact: no
// globs, no prefixes, no negation. A listed directory is pruned by the walk
// selector before it is entered.
//
// # Selection Strategies
//
// WalkSelector walks the directory tree and prunes ignored directories.
// TrackedSelector asks git for its tracked files and removes ignored paths
// by exact match only; a tracked file below an ignored directory is kept,
// because git already returns a flat list.
//
// # Notices
//
// Recoverable conditions (no ignore file, no .git marker, git failures,
// unreadable directories, symlinks) are reported through notice.Notifier
// and never abort the run.
package bundle
