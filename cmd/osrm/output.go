package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
	dim     = color.New(color.Faint)
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func mark(ok bool) string {
	if ok {
		return success.Sprint("✓")
	}
	return failure.Sprint("✗")
}
