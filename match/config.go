package match

import (
	"fmt"
	"math"
)

// Config holds the tuning parameters of the cross-page matcher
type Config struct {
	// Lookahead is how many following pages are searched for members of a
	// group before it stops growing.
	// Default: 5
	Lookahead int

	// AcceptThreshold is the minimum score a candidate needs to join a
	// group. A score equal to the threshold is accepted.
	// Default: 0.8
	AcceptThreshold float64

	// MaxOffset is the largest per-axis distance, in points, between two
	// anchors that can still belong to the same recurring element.
	// Default: 20 points
	MaxOffset float64

	// MaxFontSizeRatio is the largest relative font size difference,
	// as a fraction of the larger size, between corresponding draws.
	// Default: 0.1 (10%)
	MaxFontSizeRatio float64
}

// DefaultConfig returns the default matcher configuration
func DefaultConfig() Config {
	return Config{
		Lookahead:        5,
		AcceptThreshold:  0.8,
		MaxOffset:        20.0, // points
		MaxFontSizeRatio: 0.1,
	}
}

// Validate reports the first unusable setting, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.Lookahead < 1:
		return fmt.Errorf("%w: lookahead must be at least 1, got %d", ErrInvalidConfig, c.Lookahead)
	case math.IsNaN(c.AcceptThreshold) || c.AcceptThreshold <= 0 || c.AcceptThreshold > 1:
		return fmt.Errorf("%w: accept threshold must be in (0, 1], got %v", ErrInvalidConfig, c.AcceptThreshold)
	case math.IsNaN(c.MaxOffset) || math.IsInf(c.MaxOffset, 0) || c.MaxOffset <= 0:
		return fmt.Errorf("%w: max offset must be positive, got %v", ErrInvalidConfig, c.MaxOffset)
	case math.IsNaN(c.MaxFontSizeRatio) || c.MaxFontSizeRatio < 0 || c.MaxFontSizeRatio >= 1:
		return fmt.Errorf("%w: max font size ratio must be in [0, 1), got %v", ErrInvalidConfig, c.MaxFontSizeRatio)
	}
	return nil
}
