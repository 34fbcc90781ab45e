package sensitive

import (
	"context"
	"time"
)

// BenchmarkResult 单个过滤器的一次计时结果.
type BenchmarkResult struct {
	Algorithm Algorithm
	Duration  time.Duration
	Output    string
	Spans     int
}

// Benchmark 依次用每个过滤器屏蔽 s 并计时. ctx 取消时返回已完成的部分和 ctx 错误.
func Benchmark(ctx context.Context, s string, filters ...Filter) ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, 0, len(filters))
	for _, f := range filters {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		start := time.Now()
		output := f.Mask(s)
		elapsed := time.Since(start)

		results = append(results, BenchmarkResult{
			Algorithm: f.Name(),
			Duration:  elapsed,
			Output:    output,
			Spans:     len(f.Detect(s)),
		})
	}
	return results, nil
}

// Agree 所有结果的输出是否一致.
func Agree(results []BenchmarkResult) bool {
	for i := 1; i < len(results); i++ {
		if results[i].Output != results[0].Output {
			return false
		}
	}
	return true
}
