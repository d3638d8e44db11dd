package interpreter

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/karupanerura/golox/internal/config"
	"github.com/karupanerura/golox/internal/expression"
	"github.com/karupanerura/golox/internal/types"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ScanFailure reports every scan diagnostic of a source.
type ScanFailure struct {
	Errors []*expression.ScanError
}

func (e *ScanFailure) Error() string {
	return strings.Join(lo.Map(e.Errors, func(err *expression.ScanError, _ int) string {
		return err.Error()
	}), "\n")
}

func (e *ScanFailure) Unwrap() []error {
	return lo.Map(e.Errors, func(err *expression.ScanError, _ int) error {
		return err
	})
}

type Result struct {
	Tokens []expression.Token
	Expr   expression.Expr
	Value  types.Value
}

// AST returns the printed form of the parsed tree, or "" when parsing failed.
func (r *Result) AST() string {
	if r.Expr == nil {
		return ""
	}
	return expression.PrintAST(r.Expr)
}

type Interpreter struct {
	cfg       *config.Config
	logger    *zap.Logger
	evaluator expression.Evaluator
}

func New(cfg *config.Config, logger *zap.Logger) *Interpreter {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{
		cfg:       cfg,
		logger:    logger,
		evaluator: expression.Evaluator{MaxDepth: cfg.MaxEvaluationDepth},
	}
}

// Run scans, parses and evaluates source. The returned Result carries
// whatever stages completed, even when err is non-nil.
func (in *Interpreter) Run(ctx context.Context, source string) (*Result, error) {
	scanned := expression.Scan(source)
	result := &Result{Tokens: scanned.Tokens}
	if len(scanned.Errors) != 0 {
		in.logger.Debug("scan failed", zap.Int("errors", len(scanned.Errors)))
		return result, &ScanFailure{Errors: scanned.Errors}
	}

	expr, err := expression.Parse(scanned.Tokens,
		expression.WithMaxDepth(in.cfg.MaxDepth),
		expression.WithStrict(in.cfg.Strict),
		expression.WithLogger(in.logger.Named("parser")),
	)
	if err != nil {
		in.logger.Debug("parse failed", zap.Error(err))
		return result, err
	}
	result.Expr = expr

	value, err := in.evaluate(ctx, expr)
	if err != nil {
		in.logger.Debug("evaluation failed", zap.Error(err))
		return result, err
	}
	result.Value = value
	return result, nil
}

func (in *Interpreter) evaluate(ctx context.Context, expr expression.Expr) (types.Value, error) {
	if in.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.cfg.Timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return types.Nil, fmt.Errorf("evaluation aborted: %w", err)
	}

	var (
		eg    errgroup.Group
		value types.Value
		done  = make(chan struct{})
	)
	eg.Go(func() error {
		defer close(done)
		v, err := in.evaluator.EvaluateValue(expr)
		if err != nil {
			return err
		}
		value = v
		return nil
	})

	select {
	case <-done:
		if err := eg.Wait(); err != nil {
			return types.Nil, err
		}
		return value, nil
	case <-ctx.Done():
		// the walk is not interruptible; its result is discarded
		return types.Nil, fmt.Errorf("evaluation aborted: %w", ctx.Err())
	}
}

type FileResult struct {
	Path   string
	Result *Result
	Err    error
}

// RunFiles evaluates every script independently, at most cfg.Concurrency at
// a time, and returns the outcomes in the order of paths.
func (in *Interpreter) RunFiles(ctx context.Context, paths []string) []*FileResult {
	results := lo.Map(paths, func(path string, _ int) *FileResult {
		return &FileResult{Path: path}
	})

	var eg errgroup.Group
	eg.SetLimit(lo.Max([]int{in.cfg.Concurrency, 1}))
	for _, fr := range results {
		fr := fr
		eg.Go(func() error {
			source, err := os.ReadFile(fr.Path)
			if err != nil {
				fr.Err = fmt.Errorf("os.ReadFile(%q): %w", fr.Path, err)
				return nil
			}

			fr.Result, fr.Err = in.Run(ctx, string(source))
			in.logger.Debug("script evaluated", zap.String("path", fr.Path), zap.Error(fr.Err))
			return nil
		})
	}
	_ = eg.Wait()
	return results
}
