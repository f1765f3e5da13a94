package cognates

import (
	"strings"
	"sync"
)

// DefaultMaxPaths bounds path enumeration on each side of an ancestor.
const DefaultMaxPaths = 10000

// HydrateOptions tune chain reconstruction. Affix handling follows the
// AllowPrefixesAndSuffixes flag of the raw result's parameters.
type HydrateOptions struct {
	// IncludeIdentityChains keeps chains whose cognate is the searched word
	// itself, which only happens when source and target languages coincide.
	IncludeIdentityChains bool
	// MaxPaths caps the number of upward paths, and of downward paths per
	// ancestor, that are enumerated. Zero means DefaultMaxPaths.
	MaxPaths int
}

// Hydrate turns the flat edge set of raw into cognate chains. Ancestors are
// ordered by breadth-first discovery upward from the searched word; within an
// ancestor, chains follow the discovery order of their upward and downward
// paths. Hydrate never fails: edges that are malformed, disconnected or part
// of a cycle simply produce no chains.
func Hydrate(raw *CognateRaw, opts HydrateOptions) []CognateChain {
	chains := []CognateChain{}
	if raw == nil || len(raw.Edges) == 0 {
		return chains
	}
	p := raw.Params.Normalized()
	source := WordRef{Word: p.Word, LangCode: p.SrcLang}
	if source.Word == "" || p.TrgLang == "" {
		return chains
	}
	maxPaths := opts.MaxPaths
	if maxPaths <= 0 {
		maxPaths = DefaultMaxPaths
	}

	g := newGraph(raw.Edges)
	ancestors, upward := g.upwardPaths(source, maxPaths)

	seen := make(map[string]struct{})
	for _, anc := range ancestors {
		downward := g.downwardPaths(anc, p.TrgLang, maxPaths, func(n WordRef) bool {
			if !p.AllowPrefixesAndSuffixes && g.morpheme[n] {
				return false
			}
			if !opts.IncludeIdentityChains && n == source {
				return false
			}
			return true
		})
		if len(downward) == 0 {
			continue
		}

		for _, up := range upward[anc] {
			// up runs source..anc; src runs from below anc down to source.
			src := reversed(up[:len(up)-1])
			if hasRepeat(anc, src) {
				continue
			}
			if len(src) == 0 {
				// The ancestor is the searched word itself.
				src = []WordRef{anc}
			}
			for _, down := range downward {
				trg := down[1:]
				if hasRepeat(anc, trg) {
					continue
				}
				key := chainKey(anc, src, trg)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				chains = append(chains, CognateChain{
					Ancestor: anc,
					Src:      append([]WordRef(nil), src...),
					Trg:      append([]WordRef(nil), trg...),
				})
			}
		}
	}
	return chains
}

type graph struct {
	parents  map[WordRef][]WordRef
	children map[WordRef][]WordRef
	morpheme map[WordRef]bool
}

func newGraph(edges []CognateEdge) *graph {
	g := &graph{
		parents:  make(map[WordRef][]WordRef),
		children: make(map[WordRef][]WordRef),
		morpheme: make(map[WordRef]bool),
	}
	type pair struct{ child, parent WordRef }
	seen := make(map[pair]struct{}, len(edges))
	for _, e := range edges {
		c, p := e.Child(), e.Parent()
		if c.Word == "" || c.LangCode == "" || p.Word == "" || p.LangCode == "" {
			continue
		}
		if e.ChildIsMorpheme {
			g.morpheme[c] = true
		}
		if e.ParentIsMorpheme {
			g.morpheme[p] = true
		}
		if _, dup := seen[pair{c, p}]; dup {
			continue
		}
		seen[pair{c, p}] = struct{}{}
		g.parents[c] = append(g.parents[c], p)
		g.children[p] = append(g.children[p], c)
	}
	return g
}

// upwardPaths enumerates every simple path from source following parent
// edges, source itself included as a zero-length path. Paths are grouped by
// their last node; the returned ancestors are in first-discovery order.
func (g *graph) upwardPaths(source WordRef, max int) ([]WordRef, map[WordRef][][]WordRef) {
	var order []WordRef
	byAncestor := make(map[WordRef][][]WordRef)

	queue := [][]WordRef{{source}}
	produced := 0
	for len(queue) > 0 && produced < max {
		path := queue[0]
		queue = queue[1:]
		end := path[len(path)-1]
		if _, ok := byAncestor[end]; !ok {
			order = append(order, end)
		}
		byAncestor[end] = append(byAncestor[end], path)
		produced++

		for _, parent := range g.parents[end] {
			if produced+len(queue) >= max {
				break
			}
			if contains(path, parent) {
				continue
			}
			queue = append(queue, extend(path, parent))
		}
	}
	return order, byAncestor
}

// downwardPaths enumerates simple paths from anc following child edges and
// returns, in breadth-first order, those ending on a trgLang node accepted by
// keep. Exploration continues below a terminus, since target-language words
// may have target-language descendants of their own.
func (g *graph) downwardPaths(anc WordRef, trgLang string, max int, keep func(WordRef) bool) [][]WordRef {
	var out [][]WordRef
	queue := [][]WordRef{{anc}}
	visited := 0
	for len(queue) > 0 && visited < max {
		path := queue[0]
		queue = queue[1:]
		visited++
		end := path[len(path)-1]
		if len(path) > 1 && end.LangCode == trgLang && keep(end) {
			out = append(out, path)
		}
		for _, child := range g.children[end] {
			if visited+len(queue) >= max {
				break
			}
			if contains(path, child) {
				continue
			}
			queue = append(queue, extend(path, child))
		}
	}
	return out
}

func extend(path []WordRef, n WordRef) []WordRef {
	out := make([]WordRef, len(path)+1)
	copy(out, path)
	out[len(path)] = n
	return out
}

func contains(path []WordRef, n WordRef) bool {
	for _, p := range path {
		if p == n {
			return true
		}
	}
	return false
}

func reversed(path []WordRef) []WordRef {
	out := make([]WordRef, len(path))
	for i, n := range path {
		out[len(path)-1-i] = n
	}
	return out
}

// hasRepeat reports whether [anc]+seq contains a node twice.
func hasRepeat(anc WordRef, seq []WordRef) bool {
	seen := make(map[WordRef]struct{}, len(seq)+1)
	seen[anc] = struct{}{}
	for _, n := range seq {
		if _, ok := seen[n]; ok {
			return true
		}
		seen[n] = struct{}{}
	}
	return false
}

func chainKey(anc WordRef, src, trg []WordRef) string {
	var b strings.Builder
	write := func(n WordRef) {
		b.WriteString(n.LangCode)
		b.WriteByte(0)
		b.WriteString(n.Word)
		b.WriteByte(0)
	}
	write(anc)
	b.WriteByte(1)
	for _, n := range src {
		write(n)
	}
	b.WriteByte(1)
	for _, n := range trg {
		write(n)
	}
	return b.String()
}

// Hydrator caches the chains of the most recent input, recomputing only when
// it is handed a different *CognateRaw.
type Hydrator struct {
	Options HydrateOptions

	mu     sync.Mutex
	last   *CognateRaw
	chains []CognateChain
}

// Hydrate returns the chains for raw, reusing the previous result when raw is
// the same pointer as last time.
func (h *Hydrator) Hydrate(raw *CognateRaw) []CognateChain {
	h.mu.Lock()
	defer h.mu.Unlock()
	if raw != nil && raw == h.last {
		return h.chains
	}
	h.last = raw
	h.chains = Hydrate(raw, h.Options)
	return h.chains
}
