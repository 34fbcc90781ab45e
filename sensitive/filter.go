// Package sensitive 提供敏感词检测与屏蔽过滤器：AC 自动机、逐位置字典树（DFA）和朴素查找三种实现。
//
// 过滤器构建完成后只读，可在多个 goroutine 间共享。位置均以 rune 为单位。
package sensitive

import (
	"unicode"
	"unicode/utf8"

	"github.com/wyfcoding/wordmask/algorithm/structures"
	"github.com/wyfcoding/wordmask/text"
	"github.com/wyfcoding/wordmask/xerrors"
)

// Algorithm 匹配算法名称.
type Algorithm string

const (
	AlgorithmAhoCorasick Algorithm = "aho-corasick"
	AlgorithmDFA         Algorithm = "dfa"
	AlgorithmNaive       Algorithm = "naive"
)

// Algorithms 全部支持的算法，顺序即 bench 的执行顺序.
var Algorithms = []Algorithm{AlgorithmNaive, AlgorithmDFA, AlgorithmAhoCorasick}

// Filter 敏感词过滤器.
type Filter interface {
	// Name 返回算法名.
	Name() Algorithm
	// Words 返回去重后的词数.
	Words() int
	// Detect 返回合并后的屏蔽区间，有序、互不重叠且互不相邻.
	Detect(s string) []structures.Span
	// Mask 返回屏蔽后的文本，字符数与输入相同.
	Mask(s string) string
}

// Hit 一次具体的命中.
type Hit struct {
	Word  string `json:"word"`
	Begin int    `json:"begin"`
	End   int    `json:"end"`
}

// HitFinder 能列出每一次原始命中（含重叠）的过滤器.
type HitFinder interface {
	Hits(s string) []Hit
}

type options struct {
	mask rune
}

// Option 过滤器选项.
type Option func(*options)

// WithMask 设置屏蔽字符，默认 '*'.
func WithMask(r rune) Option {
	return func(o *options) {
		o.mask = r
	}
}

func buildOptions(opts []Option) (options, error) {
	o := options{mask: text.DefaultMask}
	for _, opt := range opts {
		opt(&o)
	}
	if o.mask == utf8.RuneError || !utf8.ValidRune(o.mask) || !unicode.IsPrint(o.mask) {
		return o, xerrors.ErrInvalidMask.WithDetail("mask %q is not a printable character", o.mask)
	}
	return o, nil
}

// New 按算法名创建过滤器.
func New(algorithm Algorithm, words []string, opts ...Option) (Filter, error) {
	switch algorithm {
	case AlgorithmAhoCorasick:
		return NewAhoCorasickFilter(words, opts...)
	case AlgorithmDFA:
		return NewDFAFilter(words, opts...)
	case AlgorithmNaive:
		return NewNaiveFilter(words, opts...)
	default:
		return nil, xerrors.ErrUnknownAlgorithm.WithDetail("algorithm %q is not supported", algorithm)
	}
}

// appendSpan 追加按起点有序的区间，与尾部重叠或相邻时合并.
func appendSpan(spans []structures.Span, s structures.Span) []structures.Span {
	if s.Begin >= s.End {
		return spans
	}
	if n := len(spans); n > 0 && s.Begin <= spans[n-1].End {
		spans[n-1].End = max(spans[n-1].End, s.End)
		return spans
	}
	return append(spans, s)
}
