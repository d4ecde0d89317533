// Resource is a node in the "/"-chunked resource name trie (spec.md §9),
// ported from the original implementation's routing/resource.rs. Unlike
// the original's manually-refcounted Arc<Resource> tree (cleaned up via
// unsafe strong-count inspection), this port relies on ordinary Go
// pointers and garbage collection for node lifetime, but still performs
// the same leaf-first structural cleanup: an interior node with no
// subscribers/queryables/publishers and no children detaches itself from
// its parent, and the check repeats up the chain (spec.md §9's
// cyclic-reference notes -- child edges here are owning, there are no
// back-edges to prune).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package routing

import (
	"strings"

	"github.com/zenohd/zenohd/cmn/debug"
	"github.com/zenohd/zenohd/wire"
)

// Context is one face's registration against a Resource: whether it is a
// subscriber and/or queryable there, plus the two halves of the best-key
// mechanism a router uses to pick the most compact id when it declares or
// routes to this face for this resource (spec.md §4.10). RemoteRID/HasRemote
// is the id the face chose for itself, learned from its own DeclareResource;
// LocalRID/HasLocal is an id this router minted on the face's behalf the
// first time it needed to declare a subscription or queryable for a
// resource the face never named itself. bestPrefixKey walks a resource's
// ancestors preferring RemoteRID over LocalRID at each node, since a face's
// own chosen id always takes precedence over one this router assigned.
type Context struct {
	Face      *Face
	LocalRID  uint64
	HasLocal  bool
	RemoteRID uint64
	HasRemote bool
	SubMode   *wire.SubMode
	Queryable bool

	// pulled holds the latest sample for a pull-mode subscription that
	// hasn't been pulled yet (spec.md §9's PULL operation); push-mode
	// subscriptions never populate this.
	pulled struct {
		key     wire.ResKey
		info    *wire.DataInfo
		payload []byte
		has     bool
	}
}

func (c *Context) isPullMode() bool {
	return c.SubMode != nil && (c.SubMode.Kind == wire.SubModePull || c.SubMode.Kind == wire.SubModePeriodicPull)
}

// Resource is one node of the trie: its name is the concatenation of
// every ancestor's suffix down to the root.
type Resource struct {
	parent   *Resource
	suffix   string
	children map[string]*Resource
	contexts map[uint64]*Context // face id -> context
}

// NewRoot creates an empty resource trie.
func NewRoot() *Resource {
	return &Resource{children: make(map[string]*Resource), contexts: make(map[uint64]*Context)}
}

// Name returns the resource's full, concrete path.
func (r *Resource) Name() string {
	if r.parent == nil {
		return ""
	}
	return r.parent.Name() + r.suffix
}

// IsKey reports whether any face has declared a subscription, queryable,
// or plain resource-id mapping against this node.
func (r *Resource) IsKey() bool { return len(r.contexts) > 0 }

func (r *Resource) context(faceID uint64) *Context {
	return r.contexts[faceID]
}

func (r *Resource) ensureContext(f *Face) *Context {
	ctx, ok := r.contexts[f.ID]
	if !ok {
		ctx = &Context{Face: f}
		r.contexts[f.ID] = ctx
	}
	return ctx
}

// nextChunk splits a suffix starting with '/' into its first chunk
// (including the leading '/', excluding the next) and the remainder.
func nextChunk(suffix string) (chunk, rest string) {
	idx := strings.IndexByte(suffix[1:], '/')
	if idx < 0 {
		return suffix, ""
	}
	return suffix[:idx+1], suffix[idx+1:]
}

// MakeResource walks from, creating any missing intermediate chunks, and
// returns the node that represents name's full suffix under it.
func MakeResource(from *Resource, suffix string) *Resource {
	if suffix == "" {
		return from
	}
	chunk, rest := nextChunk(suffix)
	child, ok := from.children[chunk]
	if !ok {
		child = &Resource{parent: from, suffix: chunk, children: make(map[string]*Resource), contexts: make(map[uint64]*Context)}
		from.children[chunk] = child
	}
	return MakeResource(child, rest)
}

// GetResource looks up suffix under from without creating anything.
func GetResource(from *Resource, suffix string) (*Resource, bool) {
	if suffix == "" {
		return from, true
	}
	chunk, rest := nextChunk(suffix)
	child, ok := from.children[chunk]
	if !ok {
		return nil, false
	}
	return GetResource(child, rest)
}

// Clean detaches r from its parent if it has become a dead leaf (no
// contexts, no children) and repeats up the ancestor chain.
func Clean(r *Resource) {
	for r != nil && r.parent != nil && !r.IsKey() && len(r.children) == 0 {
		parent := r.parent
		debug.Assert(parent.children[r.suffix] == r, "detaching a node its parent doesn't own")
		delete(parent.children, r.suffix)
		r = parent
	}
}

// walkResources visits every node in the trie rooted at root, depth
// first; used by NewFace to replay existing declarations to a newly
// joined face.
func walkResources(root *Resource, visit func(*Resource)) {
	visit(root)
	for _, c := range root.children {
		walkResources(c, visit)
	}
}

// collectMatches walks the whole trie collecting every node whose full
// name intersects pattern. This recomputes what the original caches
// incrementally in Resource.matches/Tables::build_matches_direct_tables;
// the core's operation set (spec.md §9) doesn't depend on that cache
// existing, only on every intersecting key being found, so a full walk
// is the straightforward portable equivalent.
func collectMatches(root *Resource, pattern string) []*Resource {
	var out []*Resource
	var walk func(r *Resource)
	walk = func(r *Resource) {
		if r.IsKey() && Intersect(r.Name(), pattern) {
			out = append(out, r)
		}
		for _, c := range r.children {
			walk(c)
		}
	}
	walk(root)
	return out
}
