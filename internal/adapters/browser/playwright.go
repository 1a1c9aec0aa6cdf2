// Package browser реализует доменные интерфейсы браузера поверх playwright-go.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"linuxdo-keepalive/internal/domain"
	"linuxdo-keepalive/internal/infra/metrics"
)

// Engine: движок браузера.
type Engine string

const (
	EngineFirefox  Engine = "firefox"
	EngineChromium Engine = "chromium"
	EngineWebKit   Engine = "webkit"
)

// ParseEngine разбирает BROWSER. Пустая строка означает Firefox.
func ParseEngine(raw string) (Engine, error) {
	switch e := Engine(strings.ToLower(strings.TrimSpace(raw))); e {
	case "":
		return EngineFirefox, nil
	case EngineFirefox, EngineChromium, EngineWebKit:
		return e, nil
	default:
		return "", fmt.Errorf("%w: BROWSER=%q", domain.ErrConfigInvalid, raw)
	}
}

// Options настраивает запуск.
type Options struct {
	Engine        Engine
	Headless      bool
	Install       bool
	ActionTimeout time.Duration
	NavTimeout    time.Duration
}

// Launcher запускает драйвер Playwright и браузер.
type Launcher struct {
	opts Options
	log  zerolog.Logger
}

var _ domain.Launcher = (*Launcher)(nil)

// NewLauncher создаёт запускатель.
func NewLauncher(opts Options, logger zerolog.Logger) *Launcher {
	if opts.Engine == "" {
		opts.Engine = EngineFirefox
	}
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 30 * time.Second
	}
	return &Launcher{opts: opts, log: logger.With().Str("component", "browser").Logger()}
}

// Launch поднимает драйвер, браузер и общий контекст.
func (l *Launcher) Launch(ctx context.Context) (domain.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	runOpts := &playwright.RunOptions{
		Browsers: []string{string(l.opts.Engine)},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if l.opts.Install {
		l.log.Info().Str("engine", string(l.opts.Engine)).Msg("browser: установка драйвера Playwright")
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("установка playwright: %w", err)
		}
	}

	l.log.Info().Msg("browser: запуск Playwright")
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("запуск playwright: %w", err)
	}

	var bt playwright.BrowserType
	switch l.opts.Engine {
	case EngineChromium:
		bt = pw.Chromium
	case EngineWebKit:
		bt = pw.WebKit
	default:
		bt = pw.Firefox
	}

	l.log.Info().Str("engine", string(l.opts.Engine)).Bool("headless", l.opts.Headless).Msg("browser: запуск браузера")
	b, err := bt.Launch(playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(l.opts.Headless)})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("запуск браузера: %w", err)
	}
	bctx, err := b.NewContext()
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("создание контекста: %w", err)
	}
	bctx.SetDefaultTimeout(ms(l.opts.NavTimeout))
	bctx.SetDefaultNavigationTimeout(ms(l.opts.NavTimeout))

	return &Browser{pw: pw, browser: b, context: bctx, log: l.log}, nil
}

// Browser владеет драйвером, браузером и контекстом.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	log     zerolog.Logger
}

// NewPage открывает вкладку в общем контексте.
func (b *Browser) NewPage() (domain.Page, error) {
	p, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("новая вкладка: %w", err)
	}
	return &Page{page: p}, nil
}

// Close закрывает контекст, браузер и драйвер в обратном порядке.
func (b *Browser) Close() error {
	var errs []error
	if err := b.context.Close(); err != nil {
		errs = append(errs, fmt.Errorf("закрытие контекста: %w", err))
	}
	if err := b.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("закрытие браузера: %w", err))
	}
	if err := b.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("остановка playwright: %w", err))
	}
	b.log.Info().Msg("browser: ресурсы освобождены")
	return errors.Join(errs...)
}

// Page оборачивает playwright.Page.
type Page struct {
	page playwright.Page
}

func (p *Page) Goto(ctx context.Context, target string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	_, err := p.page.Goto(target, playwright.PageGotoOptions{Timeout: playwright.Float(ms(timeout))})
	metrics.ObserveNetworkRequest("browser", "goto", hostOf(target), start, err)
	if err != nil {
		return classify(err, domain.ErrNavigationTimeout, "переход на "+target)
	}
	return nil
}

func (p *Page) Query(selector string) (domain.Element, error) {
	h, err := p.page.QuerySelector(selector)
	return wrapHandle(h, err, selector)
}

func (p *Page) QueryAll(selector string) ([]domain.Element, error) {
	hs, err := p.page.QuerySelectorAll(selector)
	return wrapHandles(hs, err, selector)
}

func (p *Page) WaitFor(selector string, timeout time.Duration) (domain.Element, error) {
	h, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{Timeout: playwright.Float(ms(timeout))})
	if err != nil {
		return nil, classify(err, domain.ErrElementNotFound, selector)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrElementNotFound, selector)
	}
	return &Element{handle: h}, nil
}

func (p *Page) Click(selector string) error {
	if err := p.page.Click(selector); err != nil {
		return classify(err, domain.ErrElementNotFound, selector)
	}
	return nil
}

func (p *Page) Fill(selector, value string) error {
	if err := p.page.Fill(selector, value); err != nil {
		return classify(err, domain.ErrElementNotFound, selector)
	}
	return nil
}

func (p *Page) Wheel(dx, dy float64) error {
	return p.page.Mouse().Wheel(dx, dy)
}

func (p *Page) URL() string { return p.page.URL() }

func (p *Page) Close() error { return p.page.Close() }

// Element оборачивает playwright.ElementHandle.
type Element struct {
	handle playwright.ElementHandle
}

func (e *Element) Query(selector string) (domain.Element, error) {
	h, err := e.handle.QuerySelector(selector)
	return wrapHandle(h, err, selector)
}

func (e *Element) QueryAll(selector string) ([]domain.Element, error) {
	hs, err := e.handle.QuerySelectorAll(selector)
	return wrapHandles(hs, err, selector)
}

func (e *Element) Text() (string, error) { return e.handle.TextContent() }

func (e *Element) Attribute(name string) (string, error) { return e.handle.GetAttribute(name) }

// Closest находит ближайшего предка через element.closest.
func (e *Element) Closest(selector string) (domain.Element, error) {
	js, err := e.handle.EvaluateHandle("(el, sel) => el.closest(sel)", selector)
	if err != nil {
		return nil, fmt.Errorf("closest %s: %w", selector, err)
	}
	h := js.AsElement()
	if h == nil {
		_ = js.Dispose()
		return nil, nil
	}
	return &Element{handle: h}, nil
}

func (e *Element) Click() error {
	if err := e.handle.Click(); err != nil {
		return classify(err, domain.ErrElementNotFound, "click")
	}
	return nil
}

func (e *Element) Fill(value string) error {
	if err := e.handle.Fill(value); err != nil {
		return classify(err, domain.ErrElementNotFound, "fill")
	}
	return nil
}

func wrapHandle(h playwright.ElementHandle, err error, selector string) (domain.Element, error) {
	if err != nil {
		return nil, fmt.Errorf("поиск %s: %w", selector, err)
	}
	if h == nil {
		return nil, nil
	}
	return &Element{handle: h}, nil
}

func wrapHandles(hs []playwright.ElementHandle, err error, selector string) ([]domain.Element, error) {
	if err != nil {
		return nil, fmt.Errorf("поиск %s: %w", selector, err)
	}
	out := make([]domain.Element, 0, len(hs))
	for _, h := range hs {
		out = append(out, &Element{handle: h})
	}
	return out, nil
}

// classify переводит таймаут Playwright в доменную ошибку.
func classify(err, onTimeout error, what string) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %s: %w", onTimeout, what, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func ms(d time.Duration) float64 { return float64(d.Milliseconds()) }

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
