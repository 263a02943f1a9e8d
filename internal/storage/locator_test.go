package storage

import (
	"path/filepath"
	"testing"
)

func TestParseLocatorRoundTrip(t *testing.T) {
	cases := []string{
		"s3://ccdi-manifests/incoming/manifest.xlsx",
		"s3://bucket/deep/nested/key.tsv",
		"/data/manifest.xlsx",
		"relative/entries.tsv",
	}
	for _, raw := range cases {
		loc, err := ParseLocator(raw)
		if err != nil {
			t.Fatalf("ParseLocator(%q) err=%v", raw, err)
		}
		if got := loc.String(); got != raw {
			t.Fatalf("round trip %q -> %q", raw, got)
		}
	}
}

func TestParseLocatorRejects(t *testing.T) {
	for _, raw := range []string{"", "s3://bucket-only", "s3:///key", "gs://bucket/key"} {
		if _, err := ParseLocator(raw); err == nil {
			t.Fatalf("ParseLocator(%q) expected error", raw)
		}
	}
}

func TestForKey(t *testing.T) {
	loc, err := ForKey("ccdi-manifests", "incoming/manifest.xlsx")
	if err != nil {
		t.Fatalf("ForKey() err=%v", err)
	}
	if loc.String() != "s3://ccdi-manifests/incoming/manifest.xlsx" {
		t.Fatalf("ForKey()=%q", loc.String())
	}

	// Full URI keys keep their own bucket.
	loc, err = ForKey("other", "s3://ccdi-manifests/incoming/manifest.xlsx")
	if err != nil {
		t.Fatalf("ForKey() err=%v", err)
	}
	if loc.Bucket != "ccdi-manifests" {
		t.Fatalf("Bucket=%q", loc.Bucket)
	}

	if _, err := ForKey("", "incoming/manifest.xlsx"); err == nil {
		t.Fatalf("ForKey() expected error without bucket")
	}
}

func TestChild(t *testing.T) {
	remote := Locator{Bucket: "b", Key: "out/2024"}
	if got := remote.Child("manifest_EntRemove.xlsx").String(); got != "s3://b/out/2024/manifest_EntRemove.xlsx" {
		t.Fatalf("Child()=%q", got)
	}
	local := Locator{Path: filepath.Join("out", "2024")}
	if got := local.Child("manifest_EntRemove.xlsx").Path; got != filepath.Join("out", "2024", "manifest_EntRemove.xlsx") {
		t.Fatalf("Child()=%q", got)
	}
}
