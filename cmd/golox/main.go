package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/jessevdk/go-flags"
	"github.com/karupanerura/golox/internal/config"
	"github.com/karupanerura/golox/internal/expression"
	"github.com/karupanerura/golox/internal/interpreter"
	"github.com/karupanerura/golox/internal/server"
	"github.com/karupanerura/golox/internal/types"
	"github.com/mattn/go-isatty"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// exit statuses follow sysexits(3)
const (
	exitOK       = 0
	exitUsage    = 1
	exitDataErr  = 65
	exitSoftware = 70
)

type Option struct {
	Config  string        `short:"c" long:"config" description:"[OPTIONAL] Config file (YAML)" required:"false"`
	AST     bool          `long:"ast" description:"[OPTIONAL] Print the syntax tree of each expression"`
	Tokens  bool          `long:"tokens" description:"[OPTIONAL] Print the tokens of each expression"`
	JSON    bool          `long:"json" description:"[OPTIONAL] Print values as JSON"`
	Listen  string        `short:"l" long:"listen" description:"[OPTIONAL] Listen host and port to serve the evaluation API" required:"false"`
	Timeout time.Duration `long:"timeout" description:"[OPTIONAL] Abort an evaluation after this duration"`
	Args    struct {
		Scripts []string `positional-arg-name:"SCRIPT" description:"Script files; starts a REPL when omitted"`
	} `positional-args:"yes"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opt Option
	parser := flags.NewParser(&opt, flags.HelpFlag|flags.PassDoubleDash)
	_, err := parser.ParseArgs(args)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(stdout)
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		parser.WriteHelp(stderr)
		return exitUsage
	}
	if opt.Listen != "" && len(opt.Args.Scripts) != 0 {
		parser.WriteHelp(stderr)
		return exitUsage
	}

	cfg, err := loadConfig(&opt)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return exitUsage
	}

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "failed to build logger: %v\n", err)
		return exitUsage
	}
	defer func() { _ = logger.Sync() }()
	logger.Debug("config loaded", zap.Stringer("config", cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in := interpreter.New(cfg, logger)

	// server mode
	if opt.Listen != "" {
		if err := serve(ctx, opt.Listen, in, logger); err != nil {
			logger.Error("failed to serve evaluation API", zap.Error(err))
			return exitUsage
		}
		return exitOK
	}

	p := &printer{opt: &opt, cfg: cfg, stdout: stdout, stderr: stderr}
	if len(opt.Args.Scripts) == 0 {
		return repl(ctx, in, cfg, p, stdin)
	}

	code := exitOK
	for _, fr := range in.RunFiles(ctx, opt.Args.Scripts) {
		if fr.Result != nil {
			p.printResult(fr.Result, fr.Err == nil)
		}
		if fr.Err != nil {
			p.printError(fr.Err)
			code = lo.Max([]int{code, exitCode(fr.Err)})
		}
	}
	return code
}

func loadConfig(opt *Option) (*config.Config, error) {
	cfg := config.Default()
	if opt.Config != "" {
		var err error
		if cfg, err = config.Load(opt.Config); err != nil {
			return nil, err
		}
	}
	if err := config.LoadEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if opt.Timeout != 0 {
		cfg.Timeout = opt.Timeout
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg *config.Config, w io.Writer) (*zap.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	if cfg.Color {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(w), level)
	return zap.New(core), nil
}

func exitCode(err error) int {
	var (
		scanFailure *interpreter.ScanFailure
		parseErr    *expression.ParseError
		exception   types.Exception
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &scanFailure), errors.As(err, &parseErr):
		return exitDataErr
	case errors.As(err, &exception), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return exitSoftware
	default:
		return exitUsage
	}
}

func serve(ctx context.Context, listen string, in *interpreter.Interpreter, logger *zap.Logger) error {
	handler := server.NewHTTPHandler(in, logger.Named("server"))
	srv := http.Server{
		Handler:           handler,
		Addr:              listen,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shutdown", zap.Error(err))
		}
	}()

	logger.Info("listen HTTP", zap.String("addr", listen))
	if err := srv.ListenAndServe(); errors.Is(err, http.ErrServerClosed) {
		handler.Wait()
		return nil
	} else if err != nil {
		return err
	}
	return nil
}

type printer struct {
	opt    *Option
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

func (p *printer) printResult(result *interpreter.Result, ok bool) {
	if p.opt.Tokens {
		fmt.Fprintln(p.stdout, strings.Join(lo.Map(result.Tokens, func(tok expression.Token, _ int) string {
			return tok.String()
		}), " "))
	}
	if p.opt.AST && result.Expr != nil {
		fmt.Fprintln(p.stdout, result.AST())
	}
	if !ok {
		return
	}

	if p.opt.JSON {
		if err := dumpJSON(p.stdout, result.Value, p.cfg.Color); err != nil {
			fmt.Fprintf(p.stderr, "failed to dump value as JSON: %v\n", err)
		}
		return
	}
	fmt.Fprintln(p.stdout, result.Value.String())
}

func (p *printer) printError(err error) {
	errorColor := newErrorColor(p.cfg)
	errorColor.Fprintln(p.stderr, err.Error())

	var exception types.Exception
	if p.opt.JSON && errors.As(err, &exception) {
		if err := dumpJSON(p.stderr, exception.Exception(), p.cfg.Color); err != nil {
			fmt.Fprintf(p.stderr, "failed to dump error as JSON: %v\n", err)
		}
	}
}

func dumpJSON(w io.Writer, v any, colorize bool) error {
	opts := []json.EncodeOptionFunc{json.DisableHTMLEscape()}
	if f, ok := w.(interface{ Fd() uintptr }); ok && colorize {
		if isatty.IsTerminal(f.Fd()) {
			opts = append(opts, json.Colorize(json.DefaultColorScheme))
		}
	}

	b, err := json.MarshalIndentWithOption(v, "", "\t", opts...)
	if err != nil {
		return fmt.Errorf("json.MarshalIndentWithOption: %w", err)
	}

	if _, err = w.Write(b); err != nil {
		return fmt.Errorf("w.Write: %w", err)
	}
	if _, err = io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("io.WriteString: %w", err)
	}
	return nil
}
