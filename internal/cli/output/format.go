package output

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FormatHeader returns a markdown header.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatCodeBlock returns a fenced markdown code block.
func FormatCodeBlock(lang, code string) string {
	return "```" + lang + "\n" + strings.TrimRight(code, "\n") + "\n```"
}

// FormatKeyValue returns a markdown list item "- **key:** value".
func FormatKeyValue(key string, value any) string {
	return fmt.Sprintf("- **%s:** %v", key, value)
}

// FormatList returns a markdown bullet list.
func FormatList(items []string) string {
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- " + item)
	}
	return sb.String()
}

// Title converts identifiers such as "compile_failed" or "dataSource" to "Compile Failed" / "Data Source".
func Title(s string) string {
	var sb strings.Builder
	for i, r := range s {
		switch {
		case r == '_' || r == '-':
			sb.WriteRune(' ')
		case i > 0 && r >= 'A' && r <= 'Z':
			sb.WriteRune(' ')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return cases.Title(language.English).String(sb.String())
}
