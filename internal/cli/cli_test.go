package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"keysync/internal/config"
	"keysync/internal/extract"
	"keysync/internal/reconcile"
	"keysync/internal/runner"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitOK},
		{"invalid config", fmt.Errorf("%w: bad locale", config.ErrInvalidConfig), exitInvalidConfig},
		{"file error", errors.Join(&extract.FileError{Path: "a.ts", Err: extract.ErrSyntax}), exitFailure},
		{"out of date", fmt.Errorf("%w: 2 catalog(s) would change", runner.ErrOutOfDate), exitFailure},
		{"incomplete", ErrIncomplete, exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestReport(t *testing.T) {
	rep := &runner.Report{
		Results: []*reconcile.Result{
			{Path: "locales/en/translation.json", Updated: true, Added: 2},
			{Path: "locales/de/translation.json", Updated: true, Added: 2, Removed: 1},
			{Path: "locales/fr/translation.json"},
		},
		Patches: map[string][]byte{"locales/de/translation.json": []byte(`{"old":null}`)},
	}

	var buf bytes.Buffer
	report(&buf, rep, true)
	assert.Equal(t, `would update locales/de/translation.json (+2 -1)
  {"old":null}
would update locales/en/translation.json (+2 -0)
`, buf.String())

	buf.Reset()
	report(&buf, rep, false)
	assert.Equal(t, `updated locales/de/translation.json (+2 -1)
updated locales/en/translation.json (+2 -0)
`, buf.String())

	buf.Reset()
	report(&buf, nil, false)
	assert.Empty(t, buf.String())
}
