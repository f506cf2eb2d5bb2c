package domclient

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Mode selects which dominance relation a query asks for.
type Mode int

const (
	Any Mode = iota
	PreOnly
	PostOnly
	Both
)

func (m Mode) String() string {
	switch m {
	case Any:
		return "Any"
	case PreOnly:
		return "PreOnly"
	case PostOnly:
		return "PostOnly"
	case Both:
		return "Both"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Oracle answers dominance queries over a fixed build tree.
type Oracle interface {
	Query(ctx context.Context, sourceFile string, line int, mode Mode) ([]int, error)
}

// Client invokes an external dominator-analysis binary as a subprocess,
// once per query, and parses its whitespace-separated line-number output.
type Client struct {
	BuildPath string
	ExePath   string
}

func NewClient(buildPath, exePath string) *Client {
	return &Client{BuildPath: buildPath, ExePath: exePath}
}

func (c *Client) Query(ctx context.Context, sourceFile string, line int, mode Mode) ([]int, error) {
	cmd := exec.CommandContext(ctx, c.ExePath,
		"-p", c.BuildPath,
		"--source", sourceFile,
		"--line", strconv.Itoa(line),
		"--mode", strconv.Itoa(int(mode)),
	)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("domclient: querying %s:%d (%s): %w", sourceFile, line, mode, err)
	}
	fields := strings.Fields(stdout.String())
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("domclient: parsing oracle output %q: %w", f, err)
		}
		out = append(out, n)
	}
	return out, nil
}
