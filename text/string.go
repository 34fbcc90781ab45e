// Package text 提供了屏蔽输出、哈希等字符串工具。
package text

import (
	"crypto/md5" //nolint:gosec // 仅用于生成缓存键，不用于安全场景。
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/wyfcoding/wordmask/algorithm/structures"
)

// DefaultMask 默认的屏蔽字符。
const DefaultMask = '*'

// MaskSpans 将 spans 覆盖的每个字符替换为 mask，其余字节原样保留。
// spans 以 rune 为单位，须有序且互不重叠；输出与输入的字符数相同。
func MaskSpans(s string, spans []structures.Span, mask rune) string {
	if len(spans) == 0 || s == "" {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	idx := 0 // 当前 rune 下标
	k := 0   // 当前待处理区间
	for i, r := range s {
		for k < len(spans) && spans[k].End <= idx {
			k++
		}
		if k < len(spans) && spans[k].Begin <= idx {
			b.WriteRune(mask)
		} else if r == utf8.RuneError {
			// 非法字节原样复制
			_, size := utf8.DecodeRuneInString(s[i:])
			b.WriteString(s[i : i+size])
		} else {
			b.WriteRune(r)
		}
		idx++
	}

	return b.String()
}

// MD5 计算字符串的 MD5 哈希值（返回 32 位十六进制字符串）。
// 注意：MD5 已不再适用于密码学安全场景，仅用于普通校验。
func MD5(text string) string {
	hash := md5.New() //nolint:gosec
	hash.Write([]byte(text))

	return hex.EncodeToString(hash.Sum(nil))
}

// Truncate 按字符截断，超出部分以 "..." 表示，用于日志预览。
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}

	i := 0
	for pos := range s {
		if i == maxRunes {
			return s[:pos] + "..."
		}
		i++
	}
	return s
}
