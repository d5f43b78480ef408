// pkg/btree/options.go
package btree

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"acorn/pkg/pager"
)

// Options configures a tree at open time. The page size is fixed at file
// creation; re-opening with a different page size is undefined behaviour.
type Options struct {
	// PageSize is the page size in bytes (default 1 MiB).
	PageSize int `yaml:"page_size"`

	// HighWatermarkRatio is the fraction of the page size above which a
	// node is split (default 0.90).
	HighWatermarkRatio float64 `yaml:"high_watermark_ratio"`

	// LowWatermarkRatio is the fraction of the page size below which a
	// node is redistributed or merged (default 0.25).
	LowWatermarkRatio float64 `yaml:"low_watermark_ratio"`
}

// DefaultOptions returns the recognised defaults.
func DefaultOptions() Options {
	return Options{
		PageSize:           pager.DefaultPageSize,
		HighWatermarkRatio: 0.90,
		LowWatermarkRatio:  0.25,
	}
}

// LoadOptions reads options from a YAML file. Fields absent from the file
// keep their defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("load options: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("load options: %w", err)
	}
	if err := opts.validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func (o Options) validate() error {
	if o.PageSize < leafHeaderSize+leafItemOverhead+2 {
		return fmt.Errorf("page size %d too small", o.PageSize)
	}
	if o.LowWatermarkRatio <= 0 || o.HighWatermarkRatio > 1 ||
		o.LowWatermarkRatio >= o.HighWatermarkRatio {
		return fmt.Errorf("watermark ratios out of range: low %v, high %v",
			o.LowWatermarkRatio, o.HighWatermarkRatio)
	}
	return nil
}

// highThreshold is the serialised size strictly above which a node splits.
func (o Options) highThreshold() int {
	return int(o.HighWatermarkRatio * float64(o.PageSize))
}

// lowThreshold is the serialised size strictly below which a node
// redistributes or merges.
func (o Options) lowThreshold() int {
	return int(o.LowWatermarkRatio * float64(o.PageSize))
}
