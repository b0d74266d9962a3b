package main

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

var (
	success = color.New(color.FgGreen, color.Bold).SprintFunc()
	notice  = color.New(color.FgCyan).SprintFunc()
	failure = color.New(color.FgRed, color.Bold).SprintFunc()
)

func disableColor() { color.NoColor = true }

// -------------------------
// Misc helpers
// -------------------------

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// writeFile writes src to out, creating parent directories.
func writeFile(out string, src []byte) error {
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}
	if err := os.WriteFile(out, src, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", out)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
