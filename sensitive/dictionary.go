package sensitive

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/wordmask/xerrors"
)

const maxLineBytes = 1 << 20

// LoadWords 按行读取词库，去掉行尾 '\r'，跳过空行. 重复词保留，由过滤器去重.
func LoadWords(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var words []string
	for scanner.Scan() {
		w := strings.TrimSuffix(scanner.Text(), "\r")
		if w == "" {
			continue
		}
		words = append(words, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, xerrors.ErrDictionaryRead.WithCause(err)
	}
	return words, nil
}

// LoadWordFile 读取单个词库文件.
func LoadWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, xerrors.ErrDictionaryNotFound.WithCause(err).WithContext("path", path)
		}
		return nil, xerrors.ErrDictionaryRead.WithCause(err).WithContext("path", path)
	}
	defer f.Close()

	words, err := LoadWords(f)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrInternal, "read dictionary "+path)
	}
	return words, nil
}

// LoadWordFiles 并发读取多个词库文件，结果按 paths 顺序拼接. 任一文件失败即返回错误.
func LoadWordFiles(ctx context.Context, paths ...string) ([]string, error) {
	results := make([][]string, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			words, err := LoadWordFile(path)
			if err != nil {
				return err
			}
			results[i] = words
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	words := make([]string, 0, total)
	for _, r := range results {
		words = append(words, r...)
	}
	return words, nil
}
