package ptar

import "io"

// extractConfig holds configuration for archive extraction.
type extractConfig struct {
	workers        int
	blockingFactor int
	verbose        io.Writer
}

// ExtractOption configures archive extraction.
type ExtractOption func(*extractConfig)

// ExtractWithWorkers sets the number of parallel extract workers.
// Values below 1 keep DefaultWorkers.
func ExtractWithWorkers(n int) ExtractOption {
	return func(cfg *extractConfig) {
		if n >= 1 {
			cfg.workers = n
		}
	}
}

// ExtractWithBlockingFactor sets the read/write chunk size to b * 4096
// bytes. Values below 1 keep DefaultBlockingFactor.
func ExtractWithBlockingFactor(b int) ExtractOption {
	return func(cfg *extractConfig) {
		if b >= 1 {
			cfg.blockingFactor = b
		}
	}
}

// ExtractWithVerbose writes one line per processed entry to w. Lines from
// different workers may interleave; only the set of names is meaningful.
func ExtractWithVerbose(w io.Writer) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.verbose = w
	}
}
