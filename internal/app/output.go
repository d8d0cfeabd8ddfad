package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hyperifyio/filmstats/internal/analysis"
)

// writeResult writes r as a four-element JSON array with 4-space indent.
func writeResult(path string, r analysis.Result) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(r.Array()); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// appendSideLog appends one tagged, timestamped failure line to path.
func appendSideLog(path string, at time.Time, description string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	line := fmt.Sprintf("\n[%s] [ANALYSIS ERROR] %s", at.UTC().Format(time.RFC3339), description)
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
