package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/tdscan/internal/model"
)

// Analyzer turns one ledger file into a report
type Analyzer interface {
	AnalyzeFile(ctx context.Context, path string) (*model.Report, error)
}

// LedgerJob analyzes one ledger file
type LedgerJob struct {
	Index    int
	Path     string
	Analyzer Analyzer
	Timeout  time.Duration
}

// Execute executes the ledger job
func (j *LedgerJob) Execute(ctx context.Context) Result {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	report, err := j.Analyzer.AnalyzeFile(ctx, j.Path)
	return &LedgerResult{
		Index:    j.Index,
		Path:     j.Path,
		Report:   report,
		Error:    err,
		Duration: time.Since(start),
	}
}

// LedgerResult is the outcome of one ledger job
type LedgerResult struct {
	Index    int
	Path     string
	Report   *model.Report
	Error    error
	Duration time.Duration
}

// GetError returns the error from the ledger result
func (r *LedgerResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes many ledgers concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	timeout     time.Duration
}

// NewBatchProcessor creates a batch processor. A zero timeout means no
// per-ledger deadline.
func NewBatchProcessor(analyzer Analyzer, concurrency int, timeout time.Duration) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
		timeout:     timeout,
	}
}

// ProcessFiles analyzes every path and returns results in input order.
// Paths never submitted because ctx ended carry the context error.
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []*LedgerResult {
	if len(paths) == 0 {
		return []*LedgerResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	out := make([]*LedgerResult, len(paths))
	for i, path := range paths {
		job := &LedgerJob{Index: i, Path: path, Analyzer: b.analyzer, Timeout: b.timeout}
		if err := pool.Submit(job); err != nil {
			// The batch deadline passed; stop the workers and skip the rest
			pool.Shutdown()
			for j := i; j < len(paths); j++ {
				out[j] = &LedgerResult{Index: j, Path: paths[j], Error: fmt.Errorf("not processed: %w", err)}
			}
			break
		}
	}

	for _, result := range pool.Wait() {
		r := result.(*LedgerResult)
		out[r.Index] = r
	}

	// Jobs dropped by a cancelled pool never produced a result
	for i, r := range out {
		if r == nil {
			out[i] = &LedgerResult{Index: i, Path: paths[i], Error: fmt.Errorf("not processed: %w", context.Cause(ctx))}
		}
	}

	return out
}

// ProcessFile reads a ledger list and processes it concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, listPath string) ([]*LedgerResult, error) {
	paths, err := ReadLedgerList(listPath)
	if err != nil {
		return nil, fmt.Errorf("read ledger list: %w", err)
	}

	return b.ProcessFiles(ctx, paths), nil
}

// ReadLedgerList reads ledger paths from a file (one per line). Blank lines
// and # comments are skipped, duplicates dropped, and relative paths resolved
// against the list file's directory.
func ReadLedgerList(listPath string) ([]string, error) {
	file, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(listPath)
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
