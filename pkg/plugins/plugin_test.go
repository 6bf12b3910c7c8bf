package plugins

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNodePlugin_AppliesOnPackageJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name":"demo","version":"1.0.0","scripts":{"build":"tsc"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	p := NewNodePlugin(100*time.Millisecond, 45)
	if !p.Applies(dir, "") {
		t.Fatal("expected node plugin to apply")
	}
	payload, err := p.Collect(context.Background(), dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload == "" {
		t.Fatal("expected non-empty payload")
	}
}

func TestNodePlugin_AppliesOnCommandPrefix(t *testing.T) {
	dir := t.TempDir()
	p := NewNodePlugin(100*time.Millisecond, 45)
	if !p.Applies(dir, "npm install left-pad") {
		t.Fatal("expected activation on npm prefix")
	}
	if p.Applies(dir, "ls -la") {
		t.Fatal("expected no activation for unrelated command")
	}
}

func TestRegistry_ApplicableFiltersByActivation(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(
		NewMockPlugin("always", time.Second, 50, WithApplies(true)),
		NewMockPlugin("never", time.Second, 50, WithApplies(false)),
	)
	applicable := r.Applicable(dir, "")
	if len(applicable) != 1 || applicable[0].Name() != "always" {
		t.Fatalf("expected only 'always' plugin, got %v", applicable)
	}
}

func TestMockPlugin_TimeoutAbsorption(t *testing.T) {
	p := NewMockPlugin("slow", 50*time.Millisecond, 45, WithCollectFunc(func(ctx context.Context, cwd string) (string, error) {
		select {
		case <-time.After(200 * time.Millisecond):
			return "should not appear", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout())
	defer cancel()

	payload, err := p.Collect(ctx, "/tmp")
	if err == nil {
		t.Fatalf("expected timeout error, got payload %q", payload)
	}
}

func TestHasAncestorFile_WalksUpToRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte("[package]\nname=\"x\""), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "src", "bin")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if !hasAncestorFile(nested, "Cargo.toml") {
		t.Fatal("expected ancestor lookup to find Cargo.toml")
	}
}
