package structures

import (
	"maps"
	"slices"
)

const (
	initialQueueSize = 64
)

// AhoCorasick AC自动机. 由 BuildFailureLinks 从 Trie 构建，构建后只读，
// 可以被多个 goroutine 同时用于扫描.
type AhoCorasick struct {
	trie *Trie
}

// Match 一次命中，区间 [Begin, End) 以 rune 为单位.
type Match struct {
	Begin int
	End   int
}

// Len 命中词的长度.
func (m Match) Len() int {
	return m.End - m.Begin
}

// NewAhoCorasick 插入全部敏感词并构造失败指针. 空串被忽略，重复词只生效一次.
func NewAhoCorasick(words ...string) *AhoCorasick {
	t := NewTrie()
	for _, w := range words {
		t.Insert(w)
	}
	return BuildFailureLinks(t)
}

// BuildFailureLinks 按层 BFS 构造失败指针，并冻结 t.
// 每个节点的失败指针必然指向深度更小、已经处理完的节点，因此按层处理即可.
// 同时计算 output：失败链上最近的词尾节点，扫描时据此找出所有以当前位置结尾的词.
func BuildFailureLinks(t *Trie) *AhoCorasick {
	if t.frozen {
		return &AhoCorasick{trie: t}
	}
	t.frozen = true

	nodes := t.nodes
	queue := make([]int32, 0, initialQueueSize)

	// 第一层节点的失败指针指向根节点
	for _, r := range sortedSymbols(nodes[rootIndex].children) {
		c := nodes[rootIndex].children[r]
		nodes[c].fail = rootIndex
		queue = append(queue, c)
	}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]

		for _, r := range sortedSymbols(nodes[u].children) {
			v := nodes[u].children[r]

			f := nodes[u].fail
			for f != noLink && t.child(f, r) == noLink {
				f = nodes[f].fail
			}
			if f == noLink {
				nodes[v].fail = rootIndex
			} else {
				nodes[v].fail = t.child(f, r)
			}

			fail := nodes[v].fail
			if nodes[fail].isWordEnd {
				nodes[v].output = fail
			} else {
				nodes[v].output = nodes[fail].output
			}

			queue = append(queue, v)
		}
	}

	return &AhoCorasick{trie: t}
}

func sortedSymbols(children map[rune]int32) []rune {
	if len(children) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(children))
}

// Words 返回自动机中的词数.
func (ac *AhoCorasick) Words() int {
	return ac.trie.words
}

// Len 返回自动机的状态数.
func (ac *AhoCorasick) Len() int {
	return ac.trie.Len()
}

// next 状态转移：先走 goto 边，失败则沿失败指针回退，根节点也没有出边时停在根节点.
func (ac *AhoCorasick) next(curr int32, r rune) int32 {
	for {
		if n := ac.trie.child(curr, r); n != noLink {
			return n
		}
		if curr == rootIndex {
			return rootIndex
		}
		curr = ac.trie.nodes[curr].fail
	}
}

// longestAt 返回以状态 n 结尾的最长词的长度，没有则返回 0.
func (ac *AhoCorasick) longestAt(n int32) int {
	node := &ac.trie.nodes[n]
	if node.isWordEnd {
		return int(node.wordLength)
	}
	if node.output != noLink {
		return int(ac.trie.nodes[node.output].wordLength)
	}
	return 0
}

// Walk 单遍扫描 text，按发现顺序回调每一次命中：结束位置递增，同一结束位置先长后短.
// fn 返回 false 时停止扫描.
func (ac *AhoCorasick) Walk(text string, fn func(Match) bool) {
	if ac.trie.words == 0 {
		return
	}

	nodes := ac.trie.nodes
	curr := rootIndex
	i := 0
	for _, r := range text {
		curr = ac.next(curr, r)

		n := curr
		if !nodes[n].isWordEnd {
			n = nodes[n].output
		}
		for n != noLink {
			length := int(nodes[n].wordLength)
			if !fn(Match{Begin: i - length + 1, End: i + 1}) {
				return
			}
			n = nodes[n].output
		}
		i++
	}
}

// Matches 返回全部命中（含重叠），顺序同 Walk.
func (ac *AhoCorasick) Matches(text string) []Match {
	var results []Match
	ac.Walk(text, func(m Match) bool {
		results = append(results, m)
		return true
	})
	return results
}

// Contains 检查文本中是否包含任何敏感词.
func (ac *AhoCorasick) Contains(text string) bool {
	found := false
	ac.Walk(text, func(Match) bool {
		found = true
		return false
	})
	return found
}

// Scan 扫描 text 并返回合并后的待屏蔽区间，区间有序且互不重叠、互不相邻.
// 同一结束位置只取最长的词，更短的词必然被它覆盖.
func (ac *AhoCorasick) Scan(text string) []Span {
	if ac.trie.words == 0 || text == "" {
		return nil
	}

	var merger SpanMerger
	curr := rootIndex
	i := 0
	for _, r := range text {
		curr = ac.next(curr, r)
		if length := ac.longestAt(curr); length > 0 {
			merger.Add(Span{Begin: i - length + 1, End: i + 1})
		}
		i++
	}
	return merger.Spans()
}
