// pkg/btree/options_test.go
package btree

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.PageSize != 1<<20 {
		t.Errorf("default page size: got %d, want %d", opts.PageSize, 1<<20)
	}
	if opts.HighWatermarkRatio != 0.90 || opts.LowWatermarkRatio != 0.25 {
		t.Errorf("default watermarks: got %v / %v", opts.HighWatermarkRatio, opts.LowWatermarkRatio)
	}
	if err := opts.validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	config := "page_size: 4096\nhigh_watermark_ratio: 0.8\n"
	if err := os.WriteFile(path, []byte(config), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	opts, err := LoadOptions(path)
	if err != nil {
		t.Fatalf("LoadOptions failed: %v", err)
	}
	if opts.PageSize != 4096 {
		t.Errorf("page size: got %d, want 4096", opts.PageSize)
	}
	if opts.HighWatermarkRatio != 0.8 {
		t.Errorf("high watermark: got %v, want 0.8", opts.HighWatermarkRatio)
	}
	// unset fields keep their defaults
	if opts.LowWatermarkRatio != 0.25 {
		t.Errorf("low watermark: got %v, want default 0.25", opts.LowWatermarkRatio)
	}
}

func TestLoadOptionsRejectsBadWatermarks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	config := "low_watermark_ratio: 0.95\n" // above the high watermark
	if err := os.WriteFile(path, []byte(config), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadOptions(path); err == nil {
		t.Error("expected validation error for inverted watermarks")
	}
}

func TestLoadOptionsMissingFile(t *testing.T) {
	if _, err := LoadOptions(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
