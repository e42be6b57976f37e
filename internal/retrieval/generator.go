package retrieval

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ExecGenerator runs a local generation command. The prompt goes in on
// stdin and the completion comes back on stdout, matching llama.cpp-style
// runner binaries.
type ExecGenerator struct {
	bin string
}

// NewExecGenerator creates a generator that invokes the command at bin.
func NewExecGenerator(bin string) *ExecGenerator {
	return &ExecGenerator{bin: bin}
}

// Generate runs the command with prompt on stdin and returns its trimmed
// stdout.
func (g *ExecGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	cmd := exec.CommandContext(ctx, g.bin)
	cmd.Stdin = strings.NewReader(prompt)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run generator %s: %w", g.bin, err)
	}
	return strings.TrimSpace(out.String()), nil
}
