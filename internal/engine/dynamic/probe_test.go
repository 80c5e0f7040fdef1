package dynamic

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestProbeJSPicksStrategy(t *testing.T) {
	x := probeJS("//h1")
	if !strings.HasSuffix(x, `("//h1", true)`) {
		t.Fatalf("expected XPath probe, got %s", x)
	}
	c := probeJS("div.title")
	if !strings.HasSuffix(c, `("div.title", false)`) {
		t.Fatalf("expected CSS probe, got %s", c)
	}
}

func TestProbeJSQuotesSelector(t *testing.T) {
	js := probeJS(`//a[@title="x"]`)
	if !strings.Contains(js, `"//a[@title=\"x\"]"`) {
		t.Fatalf("selector not safely quoted: %s", js)
	}
}

func TestProbeElementTrimsText(t *testing.T) {
	el := probe{Found: true, Text: "  hi \n", HTML: "<b>hi</b>"}.element("b")
	if el.Text != "hi" || el.HTML != "<b>hi</b>" || el.Selector != "b" {
		t.Fatalf("unexpected element %+v", el)
	}
}

func TestFindChromeExplicitPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bit check differs on windows")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "chrome")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if got := FindChrome(bin); got != bin {
		t.Fatalf("FindChrome(%q) = %q", bin, got)
	}
}

func TestIsExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bit check differs on windows")
	}
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain")
	if err := os.WriteFile(plain, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if isExecutable(plain) {
		t.Fatal("non-executable file reported executable")
	}
	if isExecutable(dir) {
		t.Fatal("directory reported executable")
	}
	if isExecutable(filepath.Join(dir, "missing")) {
		t.Fatal("missing file reported executable")
	}
}
