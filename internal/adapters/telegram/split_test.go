package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitMessageRespectsLimit(t *testing.T) {
	var builder strings.Builder
	builder.WriteString(strings.Repeat("a", 3000))
	builder.WriteString("\n\n")
	builder.WriteString(strings.Repeat("b", 2000))
	builder.WriteString("\n")
	builder.WriteString(strings.Repeat("c", 500))

	parts := SplitMessage(builder.String(), MessageLimit)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}

	for i, part := range parts {
		if length := utf8.RuneCountInString(part); length > MessageLimit {
			t.Fatalf("part %d exceeds limit: %d", i, length)
		}
	}

	if parts[0] != strings.Repeat("a", 3000)+"\n" {
		t.Fatalf("unexpected content in first part")
	}

	if parts[1][0] != 'b' {
		t.Fatalf("unexpected prefix for second part: %q", parts[1][0])
	}

	if !strings.HasSuffix(parts[1], strings.Repeat("c", 500)) {
		t.Fatalf("second part should contain trailing block of 'c'")
	}
}

func TestSplitMessageKeepsLinesWhole(t *testing.T) {
	line := strings.Repeat("x", 49)
	// 201 строка по 50 символов с разделителем, чуть больше 10 000 символов.
	lines := make([]string, 201)
	for i := range lines {
		lines[i] = line
	}
	text := strings.Join(lines, "\n")
	if len(text) < 10000 {
		t.Fatalf("test text too short: %d", len(text))
	}

	parts := SplitMessage(text, MessageLimit)
	if len(parts) < 3 {
		t.Fatalf("expected at least 3 parts, got %d", len(parts))
	}

	var rejoined []string
	for i, part := range parts {
		if length := utf8.RuneCountInString(part); length > MessageLimit {
			t.Fatalf("part %d exceeds limit: %d", i, length)
		}
		for _, l := range strings.Split(part, "\n") {
			if l != line {
				t.Fatalf("part %d contains a broken line %q", i, l)
			}
			rejoined = append(rejoined, l)
		}
	}

	if strings.Join(rejoined, "\n") != text {
		t.Fatalf("rejoined parts differ from the original text")
	}
}

func TestSplitMessageCountsRunes(t *testing.T) {
	line := strings.Repeat("浏", 30)
	text := strings.Repeat(line+"\n", 9) + line
	parts := SplitMessage(text, 100)
	if len(parts) != 4 {
		t.Fatalf("expected 4 parts, got %d", len(parts))
	}
	for i, part := range parts {
		if n := utf8.RuneCountInString(part); n > 100 {
			t.Fatalf("part %d has %d runes", i, n)
		}
	}
}

func TestSplitMessageHardSplitsOverlongLine(t *testing.T) {
	text := "head\n" + strings.Repeat("z", 250) + "\ntail"
	parts := SplitMessage(text, 100)
	want := []string{"head", strings.Repeat("z", 100), strings.Repeat("z", 100), strings.Repeat("z", 50) + "\ntail"}
	if len(parts) != len(want) {
		t.Fatalf("expected %d parts, got %d: %q", len(want), len(parts), parts)
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Fatalf("part %d: got %q want %q", i, parts[i], want[i])
		}
	}
}

func TestSplitMessageShortText(t *testing.T) {
	text := "hello world"
	parts := SplitMessage(text, MessageLimit)
	if len(parts) != 1 {
		t.Fatalf("expected single part, got %d", len(parts))
	}
	if parts[0] != text {
		t.Fatalf("unexpected text: %q", parts[0])
	}
}

func TestSplitMessageEmpty(t *testing.T) {
	parts := SplitMessage("   \n  ", MessageLimit)
	if len(parts) != 0 {
		t.Fatalf("expected no parts for empty input, got %d", len(parts))
	}
}
