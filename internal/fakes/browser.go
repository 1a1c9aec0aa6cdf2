// Package fakes содержит сценарные заглушки браузера и часов для тестов.
package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"linuxdo-keepalive/internal/domain"
)

// Clock: часы, которые двигаются только при Sleep.
type Clock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

// NewClock создаёт часы с заданным началом.
func NewClock(start time.Time) *Clock { return &Clock{now: start} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	return nil
}

// Slept возвращает все запрошенные паузы.
func (c *Clock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

// Element: сценарный DOM-элемент.
type Element struct {
	TextValue string
	Attrs     map[string]string
	Children  map[string][]*Element
	Ancestors map[string]*Element
	ClickErr  error
	OnClick   func()

	mu     sync.Mutex
	clicks int
	filled []string
}

var _ domain.Element = (*Element)(nil)

func (e *Element) Query(selector string) (domain.Element, error) {
	if kids := e.Children[selector]; len(kids) > 0 {
		return kids[0], nil
	}
	return nil, nil
}

func (e *Element) QueryAll(selector string) ([]domain.Element, error) {
	return toDomain(e.Children[selector]), nil
}

func (e *Element) Text() (string, error) { return e.TextValue, nil }

func (e *Element) Attribute(name string) (string, error) { return e.Attrs[name], nil }

func (e *Element) Closest(selector string) (domain.Element, error) {
	if a, ok := e.Ancestors[selector]; ok {
		return a, nil
	}
	return nil, nil
}

func (e *Element) Click() error {
	e.mu.Lock()
	e.clicks++
	e.mu.Unlock()
	if e.ClickErr != nil {
		return e.ClickErr
	}
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *Element) Fill(value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filled = append(e.filled, value)
	return nil
}

// Clicks возвращает число кликов.
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Filled возвращает введённые значения.
func (e *Element) Filled() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.filled...)
}

func toDomain(els []*Element) []domain.Element {
	out := make([]domain.Element, 0, len(els))
	for _, el := range els {
		out = append(out, el)
	}
	return out
}

// Site: сценарий сайта: элементы по адресу и селектору, ошибки навигации, журнал событий.
type Site struct {
	mu          sync.Mutex
	elements    map[string]map[string][]*Element
	gotoErr     map[string]error
	queryErr    map[string]error
	wheelErr    error
	launchErr   error
	newPageErr  error
	panicOnGoto map[string]any

	navigations []string
	events      []string
	openPages   int
	wheels      int
}

// NewSite создаёт пустой сайт.
func NewSite() *Site {
	return &Site{
		elements:    make(map[string]map[string][]*Element),
		gotoErr:     make(map[string]error),
		queryErr:    make(map[string]error),
		panicOnGoto: make(map[string]any),
	}
}

// Add размещает элементы на странице url по селектору.
func (s *Site) Add(url, selector string, els ...*Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.elements[url] == nil {
		s.elements[url] = make(map[string][]*Element)
	}
	s.elements[url][selector] = append(s.elements[url][selector], els...)
}

// Remove убирает элементы селектора со страницы.
func (s *Site) Remove(url, selector string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.elements[url], selector)
}

// FailGoto заставляет переход на url вернуть err.
func (s *Site) FailGoto(url string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gotoErr[url] = err
}

// PanicOnGoto заставляет переход на url паниковать.
func (s *Site) PanicOnGoto(url string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panicOnGoto[url] = v
}

// FailQuery заставляет QueryAll по селектору вернуть err.
func (s *Site) FailQuery(selector string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryErr[selector] = err
}

// FailWheel заставляет прокрутку возвращать err.
func (s *Site) FailWheel(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wheelErr = err
}

// FailLaunch заставляет запуск браузера вернуть err.
func (s *Site) FailLaunch(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.launchErr = err
}

// FailNewPage заставляет открытие вкладки вернуть err.
func (s *Site) FailNewPage(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newPageErr = err
}

// Navigations возвращает все адреса, на которые пытались перейти.
func (s *Site) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigations...)
}

// Events возвращает журнал открытий и закрытий.
func (s *Site) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// OpenPages возвращает число незакрытых вкладок.
func (s *Site) OpenPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openPages
}

// Wheels возвращает число прокруток.
func (s *Site) Wheels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wheels
}

func (s *Site) record(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *Site) lookup(url, selector string) ([]*Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.queryErr[selector]; err != nil {
		return nil, err
	}
	return append([]*Element(nil), s.elements[url][selector]...), nil
}

// Launch реализует domain.Launcher.
func (s *Site) Launch(ctx context.Context) (domain.Browser, error) {
	s.mu.Lock()
	err := s.launchErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.record("browser.launch")
	return &Browser{site: s}, nil
}

// Browser реализует domain.Browser.
type Browser struct {
	site *Site
}

func (b *Browser) NewPage() (domain.Page, error) {
	b.site.mu.Lock()
	err := b.site.newPageErr
	if err == nil {
		b.site.openPages++
	}
	b.site.mu.Unlock()
	if err != nil {
		return nil, err
	}
	b.site.record("page.open")
	return &Page{site: b.site, url: "about:blank"}, nil
}

func (b *Browser) Close() error {
	b.site.record("browser.close")
	return nil
}

// Page реализует domain.Page.
type Page struct {
	site   *Site
	url    string
	closed bool
}

func (p *Page) Goto(ctx context.Context, url string, timeout time.Duration) error {
	p.site.mu.Lock()
	p.site.navigations = append(p.site.navigations, url)
	err := p.site.gotoErr[url]
	pv, panics := p.site.panicOnGoto[url]
	p.site.mu.Unlock()
	if panics {
		panic(pv)
	}
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.url = url
	return nil
}

func (p *Page) Query(selector string) (domain.Element, error) {
	els, err := p.site.lookup(p.url, selector)
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}

func (p *Page) QueryAll(selector string) ([]domain.Element, error) {
	els, err := p.site.lookup(p.url, selector)
	if err != nil {
		return nil, err
	}
	return toDomain(els), nil
}

func (p *Page) WaitFor(selector string, timeout time.Duration) (domain.Element, error) {
	el, err := p.Query(selector)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrElementNotFound, selector)
	}
	return el, nil
}

func (p *Page) Click(selector string) error {
	el, err := p.WaitFor(selector, 0)
	if err != nil {
		return err
	}
	return el.Click()
}

func (p *Page) Fill(selector, value string) error {
	el, err := p.WaitFor(selector, 0)
	if err != nil {
		return err
	}
	return el.Fill(value)
}

func (p *Page) Wheel(dx, dy float64) error {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	p.site.wheels++
	return p.site.wheelErr
}

func (p *Page) URL() string { return p.url }

func (p *Page) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.site.mu.Lock()
	p.site.openPages--
	p.site.mu.Unlock()
	p.site.record("page.close:" + p.url)
	return nil
}

// Replies: детерминированный источник ответов.
type Replies struct {
	mu    sync.Mutex
	texts []string
	next  int
	calls int
}

// NewReplies создаёт источник, выдающий texts по кругу.
func NewReplies(texts ...string) *Replies { return &Replies{texts: texts} }

func (r *Replies) RandomReply() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if len(r.texts) == 0 {
		return ""
	}
	t := r.texts[r.next%len(r.texts)]
	r.next++
	return t
}

// Calls возвращает число запросов ответа.
func (r *Replies) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Notifier запоминает отправленные уведомления.
type Notifier struct {
	mu   sync.Mutex
	sent []Message
}

// Message: одно уведомление.
type Message struct {
	Content string
	Summary string
}

func (n *Notifier) Send(content, summary string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Message{Content: content, Summary: summary})
}

// Sent возвращает уведомления в порядке отправки.
func (n *Notifier) Sent() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.sent...)
}
