package telegram

import (
	"strings"
	"unicode/utf8"
)

// MessageLimit: бюджет символов на одно сообщение, с запасом до лимита Telegram в 4096.
const MessageLimit = 4000

// SplitMessage собирает целые строки в части не длиннее limit рун.
// Склейка частей через "\n" даёт исходный текст. Строка режется,
// только если сама длиннее limit.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MessageLimit
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var (
		parts []string
		chunk []string
		size  int
	)
	flush := func() {
		if len(chunk) == 0 {
			return
		}
		if joined := strings.Join(chunk, "\n"); joined != "" {
			parts = append(parts, joined)
		}
		chunk = chunk[:0]
		size = 0
	}

	for _, line := range strings.Split(text, "\n") {
		broken := false
		for utf8.RuneCountInString(line) > limit {
			flush()
			runes := []rune(line)
			parts = append(parts, string(runes[:limit]))
			line = string(runes[limit:])
			broken = true
		}
		if broken && line == "" {
			continue
		}

		n := utf8.RuneCountInString(line)
		cost := n
		if len(chunk) > 0 {
			cost = size + 1 + n
		}
		if cost > limit {
			flush()
			cost = n
		}
		chunk = append(chunk, line)
		size = cost
	}
	flush()

	return parts
}
