package main

import (
	"path/filepath"
	"testing"
)

func TestResolveScriptRelative(t *testing.T) {
	got, err := resolveScript("entry_remove.py")
	if err != nil {
		t.Fatalf("resolveScript() err=%v", err)
	}
	if !filepath.IsAbs(got) {
		t.Fatalf("resolved script %q is not absolute", got)
	}
	if filepath.Base(got) != "entry_remove.py" {
		t.Fatalf("resolved script %q lost its name", got)
	}
}

func TestResolveScriptAbsoluteUnchanged(t *testing.T) {
	got, err := resolveScript("/opt/tools/entry_remove.py")
	if err != nil {
		t.Fatalf("resolveScript() err=%v", err)
	}
	if got != "/opt/tools/entry_remove.py" {
		t.Fatalf("resolved script=%q", got)
	}
}

func TestOverlay(t *testing.T) {
	dst := "from-file"
	overlay(&dst, "")
	if dst != "from-file" {
		t.Fatalf("empty flag overwrote file value: %q", dst)
	}
	overlay(&dst, "  from-flag ")
	if dst != "from-flag" {
		t.Fatalf("overlay=%q", dst)
	}
}
