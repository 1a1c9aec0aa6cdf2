// Package replies выдаёт случайные тексты ответов для тем.
package replies

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"sync"

	"linuxdo-keepalive/internal/domain"
)

// builtin используется, если файл ответов не задан.
var builtin = []string{
	"感谢分享，学习了！",
	"很有帮助，收藏一下。",
	"谢谢佬友的分享。",
	"前排围观，支持一下。",
	"学到了，感谢楼主。",
	"好文，已阅。",
	"支持，期待后续更新。",
	"非常实用，感谢整理。",
}

// Corpus: потокобезопасный набор ответов.
type Corpus struct {
	mu       sync.Mutex
	messages []string
	rnd      *rand.Rand
}

var _ domain.ReplyProvider = (*Corpus)(nil)

// Builtin возвращает встроенный корпус.
func Builtin(rnd *rand.Rand) *Corpus {
	return New(builtin, rnd)
}

// New создаёт корпус из messages. Пустые строки отбрасываются.
func New(messages []string, rnd *rand.Rand) *Corpus {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	clean := make([]string, 0, len(messages))
	for _, m := range messages {
		if m = strings.TrimSpace(m); m != "" {
			clean = append(clean, m)
		}
	}
	return &Corpus{messages: clean, rnd: rnd}
}

// Load читает корпус из файла: одна реплика на строку.
// Пустой path означает встроенный корпус.
func Load(path string, rnd *rand.Rand) (*Corpus, error) {
	if path == "" {
		return Builtin(rnd), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("открытие файла ответов: %w", err)
	}
	defer f.Close()

	lines, err := readLines(f)
	if err != nil {
		return nil, fmt.Errorf("чтение файла ответов %s: %w", path, err)
	}
	c := New(lines, rnd)
	if c.Len() == 0 {
		return nil, fmt.Errorf("%w: файл ответов %s пуст", domain.ErrConfigInvalid, path)
	}
	return c, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// Len возвращает число реплик.
func (c *Corpus) Len() int { return len(c.messages) }

// RandomReply возвращает случайную реплику или пустую строку для пустого корпуса.
func (c *Corpus) RandomReply() string {
	if len(c.messages) == 0 {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages[c.rnd.IntN(len(c.messages))]
}
