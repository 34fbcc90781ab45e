package sensitive

import (
	"github.com/wyfcoding/wordmask/algorithm/structures"
	"github.com/wyfcoding/wordmask/text"
)

// AhoCorasickFilter 基于 AC 自动机的过滤器，单遍扫描，耗时与文本长度加命中数成线性.
type AhoCorasickFilter struct {
	ac   *structures.AhoCorasick
	mask rune
}

// NewAhoCorasickFilter 构建自动机. 空串被忽略，重复词只生效一次.
func NewAhoCorasickFilter(words []string, opts ...Option) (*AhoCorasickFilter, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &AhoCorasickFilter{
		ac:   structures.NewAhoCorasick(words...),
		mask: o.mask,
	}, nil
}

func (f *AhoCorasickFilter) Name() Algorithm { return AlgorithmAhoCorasick }

func (f *AhoCorasickFilter) Words() int { return f.ac.Words() }

func (f *AhoCorasickFilter) Detect(s string) []structures.Span {
	return f.ac.Scan(s)
}

func (f *AhoCorasickFilter) Mask(s string) string {
	return text.MaskSpans(s, f.ac.Scan(s), f.mask)
}

// Contains 是否包含任意敏感词，命中即返回.
func (f *AhoCorasickFilter) Contains(s string) bool {
	return f.ac.Contains(s)
}

// Hits 列出全部命中，按结束位置递增，同一结束位置先长后短.
func (f *AhoCorasickFilter) Hits(s string) []Hit {
	matches := f.ac.Matches(s)
	if len(matches) == 0 {
		return nil
	}

	runes := []rune(s)
	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, Hit{
			Word:  string(runes[m.Begin:m.End]),
			Begin: m.Begin,
			End:   m.End,
		})
	}
	return hits
}
