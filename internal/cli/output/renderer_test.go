package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode OutputMode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestMode(t *testing.T) {
	tests := []struct {
		input string
		want  OutputMode
	}{
		{"", ModeAuto},
		{"auto", ModeAuto},
		{"text", ModeText},
		{"TEXT", ModeText},
		{"markdown", ModeMarkdown},
		{"md", ModeMarkdown},
		{"json", ModeJSON},
		{"yaml", ModeAuto},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Mode(tt.input))
		})
	}

	assert.True(t, ValidMode("json"))
	assert.False(t, ValidMode("yaml"))
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  OutputMode
		isTTY bool
		want  OutputMode
	}{
		{"auto tty", ModeAuto, true, ModeText},
		{"auto piped", ModeAuto, false, ModeMarkdown},
		{"explicit text piped", ModeText, false, ModeText},
		{"explicit json tty", ModeJSON, true, ModeJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newTestRenderer(tt.mode, tt.isTTY)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestRendererNoANSIWhenPiped(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText, false)

	r.Header(1, "Recipe")
	r.Success("compiled")
	r.Warning("slow")
	r.Muted("n/a")
	r.StatusLine("State", "editing")
	r.Error("boom")

	combined := out.String() + errOut.String()
	assert.NotContains(t, combined, "\x1b[")
	assert.Contains(t, out.String(), "✓ compiled")
	assert.Contains(t, out.String(), "State: editing")
	assert.Contains(t, errOut.String(), "boom")
}

func TestRendererJSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.JSON(map[string]int{"count": 2}))
	assert.Equal(t, "{\n  \"count\": 2\n}\n", out.String())
}

func TestRendererTable(t *testing.T) {
	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeMarkdown, false)
		r.Table([]string{"ID", "Name"}, [][]string{{"r1", "Forecast"}})
		assert.Contains(t, out.String(), "| r1 | Forecast |")
	})

	t.Run("text", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText, false)
		r.Table([]string{"ID", "Name"}, [][]string{{"r1", "Forecast"}})
		assert.Contains(t, out.String(), "Forecast")
		assert.Contains(t, out.String(), "│")
	})
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Plan", FormatHeader(2, "Plan"))
	assert.Equal(t, "# Plan", FormatHeader(0, "Plan"))
	assert.Equal(t, "```python\nprint(1)\n```", FormatCodeBlock("python", "print(1)\n"))
	assert.Equal(t, "- **Cost:** 1.50", FormatKeyValue("Cost", "1.50"))
	assert.Equal(t, "- a\n- b", FormatList([]string{"a", "b"}))

	fence := FormatCodeBlock("js", "x()")
	assert.Equal(t, 0, strings.Count(fence, "```")%2)
}

func TestTitle(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"editing", "Editing"},
		{"compile_failed", "Compile Failed"},
		{"dataSource", "Data Source"},
		{"aiModel", "Ai Model"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Title(tt.input), tt.input)
	}
}
