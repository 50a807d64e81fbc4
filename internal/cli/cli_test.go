package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/archlens/archlens/pkg/config"
	"github.com/archlens/archlens/pkg/history"
	"github.com/archlens/archlens/pkg/metrics"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()

	want := []string{"evaluate", "compare", "snapshot", "regress", "refine", "serve", "completion"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestNewStoreBackends(t *testing.T) {
	ctx := context.Background()

	mem, err := newStore(ctx, config.StoreConfig{Backend: "memory"})
	if err != nil {
		t.Fatalf("memory backend error: %v", err)
	}
	mem.Close()

	file, err := newStore(ctx, config.StoreConfig{Backend: "file", Path: t.TempDir()})
	if err != nil {
		t.Fatalf("file backend error: %v", err)
	}
	file.Close()

	if _, err := newStore(ctx, config.StoreConfig{Backend: "etcd"}); err == nil {
		t.Error("unknown backend did not error")
	}
}

func TestTierStyles(t *testing.T) {
	// Every tier must render without panicking and carry the tier text.
	for _, tier := range []metrics.QualityTier{
		metrics.TierExcellent, metrics.TierGood, metrics.TierAcceptable,
		metrics.TierPoor, metrics.TierUnacceptable,
	} {
		if got := renderTier(tier); got == "" {
			t.Errorf("renderTier(%s) empty", tier)
		}
	}
	for _, sev := range []history.Severity{
		history.SeverityNone, history.SeverityMinor,
		history.SeverityModerate, history.SeveritySevere,
	} {
		if got := renderSeverity(sev); got == "" {
			t.Errorf("renderSeverity(%s) empty", sev)
		}
	}
}

func TestProgressSpinnerLifecycle(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(newLogger(&buf, log.InfoLevel))

	p.spin(context.Background(), "working")
	p.done("finished compare")
	if !strings.Contains(buf.String(), "finished compare") {
		t.Errorf("done output = %q, want completion message", buf.String())
	}

	// Stopping again without a running spinner must be a no-op.
	p.done("second call")

	p2 := newProgress(newLogger(io.Discard, log.InfoLevel))
	p2.spin(context.Background(), "failing")
	p2.fail("gave up")
}

func TestFormatScore(t *testing.T) {
	if got := formatScore(0.75); got != "0.7500" {
		t.Errorf("formatScore(0.75) = %q, want 0.7500", got)
	}
}
