package topic

import "sync"

// Matcher indexes patterns in a trie keyed by segment.
// It is safe for concurrent use.
type Matcher struct {
	mu   sync.RWMutex
	root *trieNode
}

type trieNode struct {
	children map[string]*trieNode
	patterns []Topic
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[string]*trieNode)}
}

// NewMatcher creates an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{root: newTrieNode()}
}

// Add adds a pattern. Adding a pattern twice has no effect.
func (m *Matcher) Add(pattern Topic) {
	if pattern == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	node := m.root
	for _, seg := range pattern.Segments() {
		if node.children[seg] == nil {
			node.children[seg] = newTrieNode()
		}
		node = node.children[seg]
	}
	for _, p := range node.patterns {
		if p == pattern {
			return
		}
	}
	node.patterns = append(node.patterns, pattern)
}

// Remove removes a pattern.
func (m *Matcher) Remove(pattern Topic) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node := m.root
	for _, seg := range pattern.Segments() {
		if node.children[seg] == nil {
			return
		}
		node = node.children[seg]
	}
	for i, p := range node.patterns {
		if p == pattern {
			node.patterns = append(node.patterns[:i], node.patterns[i+1:]...)
			return
		}
	}
}

// Match returns every pattern matching eventTopic. A pattern reachable
// through several wildcard paths is reported once.
func (m *Matcher) Match(eventTopic Topic) []Topic {
	if eventTopic == "" {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[Topic]struct{})
	var matches []Topic
	m.match(m.root, eventTopic.Segments(), 0, seen, &matches)
	return matches
}

func (m *Matcher) match(node *trieNode, segments []string, depth int, seen map[Topic]struct{}, out *[]Topic) {
	if depth == len(segments) {
		for _, p := range node.patterns {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				*out = append(*out, p)
			}
		}
		if child := node.children[WildcardMulti]; child != nil {
			m.match(child, segments, depth, seen, out)
		}
		return
	}

	if child := node.children[segments[depth]]; child != nil {
		m.match(child, segments, depth+1, seen, out)
	}
	if child := node.children[WildcardSingle]; child != nil {
		m.match(child, segments, depth+1, seen, out)
	}
	if child := node.children[WildcardMulti]; child != nil {
		for i := depth; i <= len(segments); i++ {
			m.match(child, segments, i, seen, out)
		}
	}
}
