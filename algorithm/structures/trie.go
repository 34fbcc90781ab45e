package structures

const (
	rootIndex   int32 = 0
	noLink      int32 = -1
	rootSymbol        = rune(0)
	initialSize       = 64
)

// trieNode 字典树节点，所有节点存放在 Trie.nodes 中，通过下标互相引用.
type trieNode struct {
	children   map[rune]int32 // 出边：字符 -> 子节点下标
	symbol     rune           // 入边字符，根节点为哨兵 0
	fail       int32          // 失败指针，构建前为 -1
	output     int32          // 失败链上最近的词尾节点，没有则为 -1
	depth      int32
	wordLength int32
	isWordEnd  bool
}

// Trie 以 arena 方式存储的敏感词字典树.
// 构建期单线程使用；调用 BuildFailureLinks 之后即冻结，不能再插入.
type Trie struct {
	nodes  []trieNode
	words  int
	frozen bool
}

// NewTrie 创建只含根节点的字典树.
func NewTrie() *Trie {
	t := &Trie{nodes: make([]trieNode, 0, initialSize)}
	t.newNode(rootSymbol, 0)
	return t
}

func (t *Trie) newNode(symbol rune, depth int32) int32 {
	t.nodes = append(t.nodes, trieNode{
		symbol: symbol,
		fail:   noLink,
		output: noLink,
		depth:  depth,
	})
	return int32(len(t.nodes) - 1)
}

// child 返回 n 在 symbol 上的子节点，不存在时返回 -1.
func (t *Trie) child(n int32, symbol rune) int32 {
	children := t.nodes[n].children
	if children == nil {
		return noLink
	}
	if c, ok := children[symbol]; ok {
		return c
	}
	return noLink
}

// Insert 插入一个敏感词. 空串直接忽略.
// 返回值表示是否新增了一个词，重复插入同一个词返回 false 且不产生任何变化.
func (t *Trie) Insert(word string) bool {
	if t.frozen {
		panic("structures: Trie.Insert called after BuildFailureLinks")
	}
	if word == "" {
		return false
	}

	curr := rootIndex
	var length int32
	for _, r := range word {
		next := t.child(curr, r)
		if next == noLink {
			next = t.newNode(r, t.nodes[curr].depth+1)
			if t.nodes[curr].children == nil {
				t.nodes[curr].children = make(map[rune]int32)
			}
			t.nodes[curr].children[r] = next
		}
		curr = next
		length++
	}

	node := &t.nodes[curr]
	if node.isWordEnd {
		return false
	}
	node.isWordEnd = true
	node.wordLength = length
	t.words++
	return true
}

// Contains 精确判断 word 是否是字典中的词.
func (t *Trie) Contains(word string) bool {
	if word == "" {
		return false
	}
	curr := rootIndex
	for _, r := range word {
		curr = t.child(curr, r)
		if curr == noLink {
			return false
		}
	}
	return t.nodes[curr].isWordEnd
}

// LongestPrefix 返回从 runes[from] 开始能匹配到的最长词的长度，没有匹配返回 0.
func (t *Trie) LongestPrefix(runes []rune, from int) int {
	longest := 0
	curr := rootIndex
	for i := from; i < len(runes); i++ {
		curr = t.child(curr, runes[i])
		if curr == noLink {
			break
		}
		if t.nodes[curr].isWordEnd {
			longest = int(t.nodes[curr].wordLength)
		}
	}
	return longest
}

// Len 返回节点数（含根节点）.
func (t *Trie) Len() int {
	return len(t.nodes)
}

// Words 返回去重后的词数.
func (t *Trie) Words() int {
	return t.words
}
