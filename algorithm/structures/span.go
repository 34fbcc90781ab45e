package structures

// Span 待屏蔽区间 [Begin, End)，以 rune 为单位.
type Span struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

// Len 区间长度.
func (s Span) Len() int {
	return s.End - s.Begin
}

// SpanMerger 按发现顺序合并命中区间.
// 调用方必须保证 Add 的区间 End 单调不减（单遍扫描天然满足）.
//
// lastMaskedEnd 记录已屏蔽的最右位置：新区间从 max(lastMaskedEnd, Begin) 开始延伸，
// 同一位置不会被屏蔽两次，重叠或相邻的命中连成一段.
// 若新区间的起点早于尾部区间的起点，则向左扩展尾部区间，并吞并由此接触到的更早区间.
type SpanMerger struct {
	spans         []Span
	lastMaskedEnd int
}

// Add 追加一个命中区间，空区间被忽略.
func (m *SpanMerger) Add(s Span) {
	if s.Begin >= s.End {
		return
	}

	n := len(m.spans)
	if n == 0 || s.Begin > m.lastMaskedEnd {
		m.spans = append(m.spans, s)
		m.lastMaskedEnd = s.End
		return
	}

	tail := m.spans[n-1]
	begin := min(s.Begin, tail.Begin)
	end := max(s.End, tail.End)

	k := n - 1
	for k > 0 && m.spans[k-1].End >= begin {
		k--
		begin = min(begin, m.spans[k].Begin)
	}
	m.spans = append(m.spans[:k], Span{Begin: begin, End: end})
	m.lastMaskedEnd = end
}

// Spans 返回当前合并结果.
func (m *SpanMerger) Spans() []Span {
	return m.spans
}

// Covered 返回被屏蔽的位置总数.
func (m *SpanMerger) Covered() int {
	total := 0
	for _, s := range m.spans {
		total += s.Len()
	}
	return total
}

// Reset 清空状态以便复用.
func (m *SpanMerger) Reset() {
	m.spans = m.spans[:0]
	m.lastMaskedEnd = 0
}
