package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/karupanerura/golox/internal/config"
	"github.com/karupanerura/golox/internal/interpreter"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
)

type lineReader interface {
	ReadLine(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

type linerReader struct {
	state       *liner.State
	historyFile string
}

func newLinerReader(historyFile string) *linerReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			_, _ = state.ReadHistory(f)
			_ = f.Close()
		}
	}
	return &linerReader{state: state, historyFile: historyFile}
}

func (r *linerReader) ReadLine(prompt string) (string, error) {
	line, err := r.state.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", nil
	}
	return line, err
}

func (r *linerReader) AppendHistory(line string) {
	r.state.AppendHistory(line)
}

func (r *linerReader) Close() error {
	if r.historyFile != "" {
		if f, err := os.Create(r.historyFile); err == nil {
			_, _ = r.state.WriteHistory(f)
			_ = f.Close()
		}
	}
	return r.state.Close()
}

// maxLineSize bounds one line of piped input.
const maxLineSize = 16 << 20

// plainReader serves piped input; it prints no prompt.
type plainReader struct {
	scanner *bufio.Scanner
}

func (r *plainReader) ReadLine(string) (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *plainReader) AppendHistory(string) {}

func (r *plainReader) Close() error { return nil }

func newLineReader(cfg *config.Config, stdin io.Reader) lineReader {
	if f, ok := stdin.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return newLinerReader(cfg.HistoryFile)
	}
	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineSize)
	return &plainReader{scanner: scanner}
}

func newErrorColor(cfg *config.Config) *color.Color {
	c := color.New(color.FgRed)
	if !cfg.Color {
		c.DisableColor()
	}
	return c
}

// repl evaluates one expression per line until EOF or ":quit". Errors are
// reported and never end the session.
func repl(ctx context.Context, in *interpreter.Interpreter, cfg *config.Config, p *printer, stdin io.Reader) int {
	lines := newLineReader(cfg, stdin)
	defer lines.Close()

	for ctx.Err() == nil {
		line, err := lines.ReadLine(cfg.Prompt)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			p.printError(err)
			return exitUsage
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			switch trimmed {
			case ":quit":
				return exitOK
			default:
				newErrorColor(cfg).Fprintln(p.stderr, "unknown command. Type :quit to exit.")
			}
			continue
		}
		lines.AppendHistory(line)

		result, err := in.Run(ctx, line)
		p.printResult(result, err == nil)
		if err != nil {
			p.printError(err)
		}
	}
	return exitOK
}
