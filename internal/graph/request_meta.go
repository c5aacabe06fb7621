// Package graph is the Graph Engine (spec §4.3-§4.7): node/edge CRUD
// through KV+DS, outer-join query, bounded DFS traversal, and snapshot
// import/export.
package graph

// RequestMeta carries the provenance fields every mutation stamps onto
// the record it touches (spec §3.2 invariant 5).
type RequestMeta struct {
	PrincipalID string
	UserAgent   string
	ClientIP    string
}
