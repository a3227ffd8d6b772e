package main

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
)

// run executes cmd with args, capturing stdout.
func run(t *testing.T, cmd subcommands.Command, args ...string) (string, subcommands.ExitStatus) {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	defer func() { stdout = prev }()

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	status := cmd.Execute(context.Background(), fs)
	return buf.String(), status
}

func useSQLite(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "optctl.db"))
	t.Setenv("REDIS_URL", "")
	t.Setenv("LOG_LEVEL", "ERROR")
}

func TestCars(t *testing.T) {
	out, status := run(t, &carsCmd{}, "-brand", "ferrari", "-sort", "price-asc")
	if status != subcommands.ExitSuccess {
		t.Fatalf("exit %v", status)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two Ferraris, got %q", out)
	}
	if !strings.Contains(lines[1], "Ferrari 458 Italia") || !strings.Contains(lines[2], "Ferrari SF90") {
		t.Errorf("unexpected order:\n%s", out)
	}
}

func TestQuote(t *testing.T) {
	out, status := run(t, &quoteCmd{}, "-car", "1", "-type", "call", "-expiry", "3", "-target", "5", "-qty", "2")
	if status != subcommands.ExitSuccess {
		t.Fatalf("exit %v", status)
	}
	if !strings.Contains(out, "5% above entry") || !strings.Contains(out, "$187,425") {
		t.Errorf("unexpected quote output:\n%s", out)
	}

	if _, status := run(t, &quoteCmd{}, "-car", "1", "-expiry", "4"); status != subcommands.ExitFailure {
		t.Errorf("expected failure for unsupported expiry, got %v", status)
	}
	if _, status := run(t, &quoteCmd{}); status != subcommands.ExitFailure {
		t.Errorf("expected failure without -car, got %v", status)
	}
}

func TestOpenClosePortfolio(t *testing.T) {
	useSQLite(t)

	out, status := run(t, &openCmd{}, "-car", "5", "-type", "PUT", "-expiry", "1", "-target", "2")
	if status != subcommands.ExitSuccess {
		t.Fatalf("open exit %v: %s", status, out)
	}
	id := strings.Fields(out)[0]

	out, status = run(t, &portfolioCmd{})
	if status != subcommands.ExitSuccess {
		t.Fatalf("portfolio exit %v", status)
	}
	if !strings.Contains(out, id) || !strings.Contains(out, "2% below entry") {
		t.Errorf("opened position missing from portfolio:\n%s", out)
	}

	if _, status := run(t, &closeCmd{}, id); status != subcommands.ExitSuccess {
		t.Fatalf("close exit %v", status)
	}
	if _, status := run(t, &closeCmd{}, id); status != subcommands.ExitFailure {
		t.Errorf("closing twice should fail, got %v", status)
	}
	if _, status := run(t, &closeCmd{}); status != subcommands.ExitUsageError {
		t.Errorf("expected usage error without an id, got %v", status)
	}

	if _, status := run(t, &resetCmd{}); status != subcommands.ExitSuccess {
		t.Fatalf("reset exit %v", status)
	}
	out, _ = run(t, &portfolioCmd{}, "-json")
	if strings.Contains(out, id) || !strings.Contains(out, `"t1"`) {
		t.Errorf("reset should restore the demo positions:\n%s", out)
	}
}
