package render

import (
	"strings"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.Width != 80 {
		t.Errorf("width: got %d", opts.Width)
	}
	if opts.Style != StyleDark {
		t.Errorf("style: got %q", opts.Style)
	}
	if !opts.EnableEmoji || !opts.PreserveNewLines {
		t.Error("emoji and newline preservation should default on")
	}
}

func TestOptionChaining(t *testing.T) {
	opts := DefaultOptions().WithWidth(120).WithStyle(StyleNotty).WithEmoji(false)

	if opts.Width != 120 || opts.Style != StyleNotty || opts.EnableEmoji {
		t.Errorf("unexpected options: %+v", opts)
	}

	// The base options must stay untouched
	if DefaultOptions().Width != 80 {
		t.Error("chaining mutated the defaults")
	}
}

func TestCacheKeyDistinguishesOptions(t *testing.T) {
	a := cacheKey(DefaultOptions())
	b := cacheKey(DefaultOptions().WithWidth(100))
	c := cacheKey(DefaultOptions().WithStyle(StyleLight))

	if a == b || a == c || b == c {
		t.Errorf("cache keys collide: %q %q %q", a, b, c)
	}
}

func TestMarkdownRenders(t *testing.T) {
	ClearCache()

	out, err := Markdown("# Title\n\nSome *text*.", DefaultOptions().WithStyle(StyleNotty))
	if err != nil {
		t.Fatalf("Markdown failed: %v", err)
	}
	if !strings.Contains(out, "Title") {
		t.Errorf("rendered output missing heading: %q", out)
	}

	if CacheSize() != 1 {
		t.Errorf("expected one pooled configuration, got %d", CacheSize())
	}
}

func TestCodeBlockRenders(t *testing.T) {
	out, err := CodeBlock("print(1)", DefaultOptions().WithStyle(StyleNotty))
	if err != nil {
		t.Fatalf("CodeBlock failed: %v", err)
	}
	if !strings.Contains(out, "print(1)") {
		t.Errorf("rendered output missing code: %q", out)
	}
}

func TestIsBuiltinStyle(t *testing.T) {
	for _, style := range StyleNames() {
		if !IsBuiltinStyle(style) {
			t.Errorf("%q should be builtin", style)
		}
	}
	if IsBuiltinStyle("/tmp/custom.json") {
		t.Error("paths are not builtin styles")
	}
}

func TestTUIThemes(t *testing.T) {
	if _, ok := GetTUIThemeByName("tokyonight"); !ok {
		t.Error("tokyonight theme missing")
	}
	if _, ok := GetTUIThemeByName("nope"); ok {
		t.Error("unknown theme resolved")
	}

	if !SetTUITheme("catppuccin") {
		t.Error("SetTUITheme rejected a known theme")
	}
	if GetTUITheme().Name != "catppuccin" {
		t.Errorf("active theme: got %q", GetTUITheme().Name)
	}
	if SetTUITheme("nope") {
		t.Error("SetTUITheme accepted an unknown theme")
	}

	// Restore the default for other tests
	SetTUITheme("tokyonight")
}
