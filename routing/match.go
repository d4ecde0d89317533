// Package routing implements the resource trie, face bookkeeping, and
// pub/sub + query propagation (spec.md §9, component C11).
//
// match.go: Intersect ports the double-recursion wildcard match from the original
// implementation's rname.rs almost verbatim: one recursion walks
// "/"-separated chunks (where "**" swallows zero or more whole chunks),
// and for each non-wildcarded pair of chunks a second, nested recursion
// walks their characters one at a time (where "*" swallows any
// substring, including the empty one). Both recursions operate on
// whole remaining suffixes rather than pre-split slices: the inner one
// detects "end of this chunk" the same way the original does, by
// treating a bare "/" as a boundary in addition to true end-of-string,
// so a chunk's content is whatever precedes the next slash without ever
// slicing it out up front.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package routing

import "strings"

// cEnd/cWild/cNext/cEqual: single-character steps within one chunk.
func cEnd(s string) bool  { return s == "" || strings.HasPrefix(s, "/") }
func cWild(s string) bool { return strings.HasPrefix(s, "*") }
func cNext(s string) string {
	if s == "" {
		return s
	}
	return s[1:]
}
func cEqual(s1, s2 string) bool {
	return len(s2) > 0 && strings.HasPrefix(s1, s2[:1])
}

// subChunkIntersect matches two chunks' contents character by character,
// with '*' matching any run (including none) up to the chunk boundary.
func subChunkIntersect(c1, c2 string) bool {
	switch {
	case cEnd(c1) && cEnd(c2):
		return true
	case cWild(c1) && cEnd(c2):
		return subChunkIntersect(cNext(c1), c2)
	case cEnd(c1) && cWild(c2):
		return subChunkIntersect(c1, cNext(c2))
	case cWild(c1):
		if cEnd(cNext(c1)) {
			return true
		}
		if subChunkIntersect(cNext(c1), c2) {
			return true
		}
		return subChunkIntersect(c1, cNext(c2))
	case cWild(c2):
		if cEnd(cNext(c2)) {
			return true
		}
		if subChunkIntersect(cNext(c1), c2) {
			return true
		}
		return subChunkIntersect(c1, cNext(c2))
	case cEnd(c1) || cEnd(c2):
		return false
	case cEqual(c1, c2):
		return subChunkIntersect(cNext(c1), cNext(c2))
	default:
		return false
	}
}

// chunkIntersect guards subChunkIntersect against comparing an empty
// chunk to a non-empty one (one side already at a "/" or end, the other
// not), then delegates.
func chunkIntersect(c1, c2 string) bool {
	if cEnd(c1) != cEnd(c2) {
		return false
	}
	return subChunkIntersect(c1, c2)
}

// pEnd/pWild/pNext: whole-chunk steps across "/"-separated segments.
func pEnd(s string) bool  { return s == "" }
func pWild(s string) bool { return s == "**" || strings.HasPrefix(s, "**/") }
func pNext(s string) string {
	idx := strings.IndexByte(s, '/')
	if idx < 0 {
		return ""
	}
	return s[idx+1:]
}

// resIntersect recurses across path chunks; "**" matches zero or more of
// them entirely, falling back to chunkIntersect for a literal/'*' chunk.
func resIntersect(c1, c2 string) bool {
	switch {
	case pEnd(c1) && pEnd(c2):
		return true
	case pWild(c1) && pEnd(c2):
		return resIntersect(pNext(c1), c2)
	case pEnd(c1) && pWild(c2):
		return resIntersect(c1, pNext(c2))
	case pWild(c1):
		if pEnd(pNext(c1)) {
			return true
		}
		if resIntersect(pNext(c1), c2) {
			return true
		}
		return resIntersect(c1, pNext(c2))
	case pWild(c2):
		if pEnd(pNext(c2)) {
			return true
		}
		if resIntersect(pNext(c1), c2) {
			return true
		}
		return resIntersect(c1, pNext(c2))
	case pEnd(c1) || pEnd(c2):
		return false
	case chunkIntersect(c1, c2):
		return resIntersect(pNext(c1), pNext(c2))
	default:
		return false
	}
}

// Intersect reports whether two resource-name patterns can both match at
// least one common concrete key, taking '*' (within-chunk) and '**'
// (whole-chunk, zero-or-more) wildcards into account.
func Intersect(s1, s2 string) bool { return resIntersect(s1, s2) }
