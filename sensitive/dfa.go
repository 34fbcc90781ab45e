package sensitive

import (
	"github.com/wyfcoding/wordmask/algorithm/structures"
	"github.com/wyfcoding/wordmask/text"
)

// DFAFilter 逐个起点在字典树上走最长匹配. 最坏耗时为文本长度乘以最长词长.
type DFAFilter struct {
	trie *structures.Trie
	mask rune
}

// NewDFAFilter 构建字典树.
func NewDFAFilter(words []string, opts ...Option) (*DFAFilter, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	trie := structures.NewTrie()
	for _, w := range words {
		trie.Insert(w)
	}
	return &DFAFilter{trie: trie, mask: o.mask}, nil
}

func (f *DFAFilter) Name() Algorithm { return AlgorithmDFA }

func (f *DFAFilter) Words() int { return f.trie.Words() }

func (f *DFAFilter) Detect(s string) []structures.Span {
	if f.trie.Words() == 0 || s == "" {
		return nil
	}

	runes := []rune(s)
	var spans []structures.Span
	for start := range runes {
		if l := f.trie.LongestPrefix(runes, start); l > 0 {
			spans = appendSpan(spans, structures.Span{Begin: start, End: start + l})
		}
	}
	return spans
}

func (f *DFAFilter) Mask(s string) string {
	return text.MaskSpans(s, f.Detect(s), f.mask)
}
