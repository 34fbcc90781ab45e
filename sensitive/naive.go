package sensitive

import (
	"slices"

	"github.com/wyfcoding/wordmask/algorithm/structures"
	"github.com/wyfcoding/wordmask/text"
)

// NaiveFilter 对每个词查找全部出现位置并标记覆盖范围.
// 耗时与词数成正比，仅用于小词库和结果校验.
type NaiveFilter struct {
	words [][]rune
	mask  rune
}

// NewNaiveFilter 创建朴素过滤器，空串与重复词被忽略.
func NewNaiveFilter(words []string, opts ...Option) (*NaiveFilter, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(words))
	f := &NaiveFilter{mask: o.mask}
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		f.words = append(f.words, []rune(w))
	}
	return f, nil
}

func (f *NaiveFilter) Name() Algorithm { return AlgorithmNaive }

func (f *NaiveFilter) Words() int { return len(f.words) }

func (f *NaiveFilter) Detect(s string) []structures.Span {
	if len(f.words) == 0 || s == "" {
		return nil
	}

	runes := []rune(s)
	covered := make([]bool, len(runes))
	for _, w := range f.words {
		if len(w) > len(runes) {
			continue
		}
		for i := 0; i+len(w) <= len(runes); i++ {
			if slices.Equal(runes[i:i+len(w)], w) {
				for j := i; j < i+len(w); j++ {
					covered[j] = true
				}
			}
		}
	}

	var spans []structures.Span
	for i := 0; i < len(covered); {
		if !covered[i] {
			i++
			continue
		}
		j := i
		for j < len(covered) && covered[j] {
			j++
		}
		spans = append(spans, structures.Span{Begin: i, End: j})
		i = j
	}
	return spans
}

func (f *NaiveFilter) Mask(s string) string {
	return text.MaskSpans(s, f.Detect(s), f.mask)
}
