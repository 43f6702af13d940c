// Package topic provides hierarchical topic names and pattern matching for
// the event bus.
//
// # Topic Format
//
// Topics use dot notation:
//
//	buffer.changed
//	history.undone
//	file.changed
//
// # Wildcards
//
//   - "*" matches exactly one segment
//   - "**" matches zero or more segments
//
// Examples:
//
//	history.*     matches history.added, history.jumped
//	buffer.**     matches buffer.changed, buffer.saved
//	**            matches everything
//
// The Matcher type indexes patterns in a trie so a published topic finds
// every matching pattern without scanning all of them.
package topic
