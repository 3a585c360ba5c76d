// package repositories provides the persistence layer for playlists, tracks,
// and artists.
//
// Lookups that feed the ingestion pipeline are bulk-only: referenced IDs are
// resolved with chunked IN queries, never one query per entity. Per-entity
// lookups against a million-track table were the dominant cost of the naive
// design and are deliberately not offered to the resolver.
package repositories

import (
	"strings"
)

// maxSQLParams caps host parameters per statement. SQLite's default limit is
// 999; staying well under leaves room for fixed columns in compound inserts.
const maxSQLParams = 500

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// chunkIDs splits ids into consecutive groups of at most size elements.
func chunkIDs(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// idArgs converts a chunk of string IDs into query arguments.
func idArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
