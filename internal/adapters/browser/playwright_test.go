package browser

import (
	"errors"
	"fmt"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linuxdo-keepalive/internal/domain"
)

func TestParseEngine(t *testing.T) {
	e, err := ParseEngine("")
	require.NoError(t, err)
	assert.Equal(t, EngineFirefox, e)

	e, err = ParseEngine(" Chromium ")
	require.NoError(t, err)
	assert.Equal(t, EngineChromium, e)

	_, err = ParseEngine("netscape")
	assert.ErrorIs(t, err, domain.ErrConfigInvalid)
}

func TestClassifyMapsTimeouts(t *testing.T) {
	timeout := fmt.Errorf("page.goto: %w", playwright.ErrTimeout)
	err := classify(timeout, domain.ErrNavigationTimeout, "переход")
	assert.ErrorIs(t, err, domain.ErrNavigationTimeout)
	assert.ErrorIs(t, err, playwright.ErrTimeout)

	other := classify(errors.New("net::ERR_ABORTED"), domain.ErrNavigationTimeout, "переход")
	assert.NotErrorIs(t, other, domain.ErrNavigationTimeout)
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "linux.do", hostOf("https://linux.do/t/topic/1"))
	assert.Equal(t, "connect.linux.do", hostOf("https://connect.linux.do"))
	assert.Equal(t, "linux.do", hostOf("https://user@linux.do:8443/latest?page=2"))
	assert.Empty(t, hostOf("://bad"))
}

func TestNewLauncherDefaults(t *testing.T) {
	l := NewLauncher(Options{}, zerolog.Nop())
	assert.Equal(t, EngineFirefox, l.opts.Engine)
	assert.Positive(t, l.opts.NavTimeout)
}
