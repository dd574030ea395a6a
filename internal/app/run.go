package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Run reads one question per line from in and prints each answer to out
// until "exit", end of input or ctx is done.
func (a *App) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	a.logger.Info("🚀 assistant started", zap.Int("documents", a.Count()))
	fmt.Fprintln(out, "--- Assistant menu La Belle Pizza ---")
	fmt.Fprintln(out, "Posez vos questions sur le menu et les allergènes. Tapez 'exit' pour quitter.")

	scanner := bufio.NewScanner(in)
	const maxLineSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down")
			return nil
		default:
		}

		fmt.Fprint(out, "\nVous: ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("stdin error: %w", err)
			}
			a.logger.Info("stdin closed")
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, "exit") {
			fmt.Fprintln(out, "Au revoir !")
			return nil
		}

		fmt.Fprintf(out, "Assistant: %s\n", a.Ask(ctx, line))
	}
}
