// Package main provides the trialkit CLI entry point.
// trialkit extracts reach trials from manipulandum behavior recordings and
// measures light-evoked current amplitudes from patch-clamp traces.
package main

import (
	"trialkit/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Fatal("Command failed", "error", err)
	}
}
