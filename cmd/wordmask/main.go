// Command wordmask 敏感词屏蔽服务与命令行工具.
//
//	wordmask serve -config configs/config.toml
//	wordmask mask  -config configs/config.toml -input input.txt
//	wordmask bench -config configs/config.toml -input input.txt
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/wyfcoding/wordmask/app"
	"github.com/wyfcoding/wordmask/bootstrap"
	"github.com/wyfcoding/wordmask/cache"
	"github.com/wyfcoding/wordmask/config"
	"github.com/wyfcoding/wordmask/limiter"
	"github.com/wyfcoding/wordmask/metrics"
	"github.com/wyfcoding/wordmask/sensitive"
	"github.com/wyfcoding/wordmask/server"
	"github.com/wyfcoding/wordmask/service"
	"github.com/wyfcoding/wordmask/text"
)

const serviceName = "wordmask"

// maxLineBytes mask 与 bench 输入单行的上限.
const maxLineBytes = 16 << 20

// version 构建时通过 -ldflags "-X main.version=..." 注入.
var version = "dev"

const usage = `usage: wordmask <command> [flags]

commands:
  serve   start the HTTP API
  mask    mask text from -input (or stdin) line by line
  bench   time every filter on the -input text and compare outputs
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, rest := args[0], args[1:]

	var runCmd func(context.Context, *bootstrap.Bootstrapper, io.Reader, io.Writer) error
	switch cmd {
	case "serve":
		runCmd = serve
	case "mask":
		runCmd = maskText
	case "bench":
		runCmd = bench
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	b := bootstrap.New(serviceName, version)
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	b.RegisterFlags(fs)
	if err := fs.Parse(rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if err := b.Initialize(cmd); err != nil {
		fmt.Fprintf(stderr, "init: %v\n", err)
		return 1
	}
	if err := runCmd(ctx, b, stdin, stdout); err != nil {
		b.Logger.Error("command failed", "command", cmd, "error", err)
		fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, b *bootstrap.Bootstrapper, _ io.Reader, _ io.Writer) error {
	cfg := b.Config
	logger := b.Logger.Logger

	stopTracing := b.SetupTracing(ctx)

	m := metrics.NewMetrics(cfg.Server.Name)
	m.RegisterBuildInfo(cfg.Server.Name, cfg.Version)

	opts := []service.Option{
		service.WithLogger(b.Logger.WithModule("detector").Logger),
		service.WithMetrics(metrics.NewDetectorMetrics(m)),
	}
	var resultCache *cache.BigCache
	if cfg.Cache.Enabled {
		c, err := cache.NewBigCache(cfg.Cache.TTL, cfg.Cache.MaxMB)
		if err != nil {
			stopTracing()
			return err
		}
		resultCache = c
		opts = append(opts, service.WithCache(c))
	}

	detector, err := service.NewDetector(ctx, cfg.Filter, opts...)
	if err != nil {
		if resultCache != nil {
			if closeErr := resultCache.Close(); closeErr != nil {
				logger.Warn("close result cache failed", "error", closeErr)
			}
		}
		stopTracing()
		return err
	}

	rl := limiter.NewDynamicLimiter(nil)
	rl.UpdateKeyed(cfg.RateLimit.Enabled, cfg.RateLimit.Rate, cfg.RateLimit.Burst)

	config.RegisterReloadHook(func(next *config.Config) {
		rl.UpdateKeyed(next.RateLimit.Enabled, next.RateLimit.Rate, next.RateLimit.Burst)
		if err := detector.UpdateConfig(ctx, next.Filter); err != nil {
			logger.Error("apply filter config failed", "error", err)
		}
	})

	engine := server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Detector: detector,
		Metrics:  m,
		Limiter:  rl,
		Logger:   b.Logger.WithModule("http").Logger,
	})
	httpServer := server.NewGinServer(engine, cfg.Server.HTTP, logger)

	appOpts := []app.Option{
		app.WithRunner("http", httpServer.Start),
		app.WithCleanup(stopTracing),
	}
	if cfg.Filter.Watch {
		appOpts = append(appOpts, app.WithRunner("dictionary-watcher", func(ctx context.Context) error {
			return detector.Watch(ctx, service.DefaultWatchDebounce)
		}))
	}
	if resultCache != nil {
		appOpts = append(appOpts, app.WithCleanup(func() {
			if err := resultCache.Close(); err != nil {
				logger.Warn("close result cache failed", "error", err)
			}
		}))
	}

	return app.New(cfg.Server.Name, logger, appOpts...).Run(ctx)
}

func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "" {
		return io.NopCloser(stdin), nil
	}
	return os.Open(path)
}

func maskText(ctx context.Context, b *bootstrap.Bootstrapper, stdin io.Reader, stdout io.Writer) error {
	detector, err := service.NewDetector(ctx, b.Config.Filter, service.WithLogger(b.Logger.WithModule("detector").Logger))
	if err != nil {
		return err
	}

	in, err := openInput(b.Input, stdin)
	if err != nil {
		return err
	}
	defer in.Close()

	w := bufio.NewWriter(stdout)
	defer w.Flush()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		res, maskErr := detector.Mask(ctx, scanner.Text())
		if maskErr != nil {
			return maskErr
		}
		if _, err := fmt.Fprintln(w, res.Text); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// joinLines 读取全部输入并去掉换行后直接拼接.
func joinLines(r io.Reader) (string, error) {
	var b strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		b.WriteString(strings.TrimSuffix(scanner.Text(), "\r"))
	}
	return b.String(), scanner.Err()
}

// bench 读取词库与输入（各行直接拼接），依次计时三种过滤器并比较输出.
func bench(ctx context.Context, b *bootstrap.Bootstrapper, stdin io.Reader, stdout io.Writer) error {
	start := time.Now()
	words, err := sensitive.LoadWordFiles(ctx, b.Config.Filter.Dictionaries...)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "load words: %d lines in %s\n", len(words), time.Since(start))

	in, err := openInput(b.Input, stdin)
	if err != nil {
		return err
	}
	input, err := joinLines(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	fmt.Fprintf(stdout, "input: %s\n\n", text.Truncate(input, 200))

	mask := sensitive.WithMask(b.Config.Filter.MaskRune())
	filters := make([]sensitive.Filter, 0, len(sensitive.Algorithms))
	for _, algorithm := range sensitive.Algorithms {
		start = time.Now()
		f, buildErr := sensitive.New(algorithm, words, mask)
		if buildErr != nil {
			return buildErr
		}
		fmt.Fprintf(stdout, "build %-12s words=%d time=%s\n", algorithm, f.Words(), time.Since(start))
		filters = append(filters, f)
	}

	results, err := sensitive.Benchmark(ctx, input, filters...)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout)
	for _, r := range results {
		fmt.Fprintf(stdout, "filter %-12s time=%s spans=%d\noutput: %s\n\n", r.Algorithm, r.Duration, r.Spans, text.Truncate(r.Output, 200))
		b.Logger.Info("filter benchmark", "algorithm", r.Algorithm, "duration", r.Duration, "spans", r.Spans)
	}

	if !sensitive.Agree(results) {
		return errors.New("filters disagree on output")
	}
	fmt.Fprintln(stdout, "all filters agree")
	return nil
}
