package xerrors

var (
	// ErrUnknownAlgorithm 未知的匹配算法。
	ErrUnknownAlgorithm = New(ErrInvalidArg, 400101, "unknown algorithm", "supported: aho-corasick, dfa, naive", nil)
	// ErrInvalidMask 屏蔽字符非法。
	ErrInvalidMask = New(ErrInvalidArg, 400102, "invalid mask", "mask must be exactly one printable character", nil)
	// ErrTextTooLong 待检测文本超过长度上限。
	ErrTextTooLong = New(ErrInvalidArg, 400103, "text too long", "", nil)
	// ErrBatchTooLarge 批量请求条数超过上限。
	ErrBatchTooLarge = New(ErrInvalidArg, 400104, "batch too large", "", nil)
	// ErrDictionaryNotFound 词库文件不存在。
	ErrDictionaryNotFound = New(ErrNotFound, 404101, "dictionary not found", "", nil)
	// ErrDictionaryRead 词库读取失败。
	ErrDictionaryRead = New(ErrInternal, 500101, "dictionary read failed", "", nil)
	// ErrCanceledRequest 请求被取消。
	ErrCanceledRequest = New(ErrCanceled, 499101, "request canceled", "", nil)
)
