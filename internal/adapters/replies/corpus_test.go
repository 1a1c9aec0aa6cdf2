package replies

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linuxdo-keepalive/internal/domain"
)

func TestLoadSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.txt")
	require.NoError(t, os.WriteFile(path, []byte("  первый  \n\n\t\nвторой\r\n"), 0o600))

	c, err := Load(path, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	assert.Equal(t, []string{"первый", "второй"}, c.messages)

	seen := map[string]bool{}
	for range 100 {
		seen[c.RandomReply()] = true
	}
	assert.Equal(t, map[string]bool{"первый": true, "второй": true}, seen)
}

func TestLoadEmptyFileIsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.txt")
	require.NoError(t, os.WriteFile(path, []byte("\n \n"), 0o600))

	_, err := Load(path, nil)
	assert.ErrorIs(t, err, domain.ErrConfigInvalid)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadWithoutPathUsesBuiltin(t *testing.T) {
	c, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, len(builtin), c.Len())
	assert.Contains(t, builtin, c.RandomReply())
}

func TestEmptyCorpusReturnsEmptyString(t *testing.T) {
	assert.Empty(t, New(nil, nil).RandomReply())
}
