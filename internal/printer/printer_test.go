package printer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrinter(t *testing.T) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	return New(out, errOut), out, errOut
}

func TestSuccess(t *testing.T) {
	p, out, _ := newTestPrinter(t)

	p.Success("Wrote %d pages\n", 3)
	p.Success("✓ already marked\n")

	assert.Equal(t, "✓ Wrote 3 pages\n✓ already marked\n", out.String())
}

func TestWarningAndStep(t *testing.T) {
	p, out, _ := newTestPrinter(t)

	p.Warning("slow agent\n")
	p.Step("Running pipeline\n")

	assert.Equal(t, "⚠️  slow agent\n→ Running pipeline\n", out.String())
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		p, _, errOut := newTestPrinter(t)
		err := p.Error("Test Error", "This is a test error", nil)
		require.Error(t, err)
		assert.Equal(t, "Test Error", err.Error())
		assert.Equal(t, "Test Error\n\nThis is a test error\n", errOut.String())
	})

	t.Run("single suggestion is printed bare", func(t *testing.T) {
		p, _, errOut := newTestPrinter(t)
		_ = p.Error("Test Error", "Explanation", []string{"Try this fix"})
		assert.True(t, strings.HasSuffix(errOut.String(), "\nTry this fix\n"))
		assert.NotContains(t, errOut.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		p, _, errOut := newTestPrinter(t)
		_ = p.Error("Test Error", "Explanation", []string{"First", "Second"})
		assert.Contains(t, errOut.String(), "Either:\n  1. First\n  2. Second\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	p, out, errOut := newTestPrinter(t)

	err := p.ErrorWithContext("Pipeline failed", "", map[string]string{
		"state":  "ERROR",
		"reason": "data_parser: boom",
	}, nil)

	require.EqualError(t, err, "Pipeline failed")
	assert.Empty(t, out.String())
	assert.Equal(t, "Pipeline failed\n\n\n  reason: data_parser: boom\n  state: ERROR\n", errOut.String())
}
