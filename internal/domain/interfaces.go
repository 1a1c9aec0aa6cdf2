package domain

import (
	"context"
	"time"
)

// Launcher запускает браузер. Реализация владеет процессом драйвера.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser: общий контекст браузера, в котором открываются вкладки.
// Close освобождает контекст, браузер и процесс драйвера в обратном порядке.
type Browser interface {
	NewPage() (Page, error)
	Close() error
}

// Locator ищет элементы внутри страницы или элемента.
type Locator interface {
	// Query возвращает nil без ошибки, если элемента нет.
	Query(selector string) (Element, error)
	QueryAll(selector string) ([]Element, error)
}

// Page: одна вкладка браузера.
type Page interface {
	Locator
	// Goto возвращает ErrNavigationTimeout, если переход не уложился в timeout.
	Goto(ctx context.Context, url string, timeout time.Duration) error
	// WaitFor возвращает ErrElementNotFound, если элемент не появился за timeout.
	WaitFor(selector string, timeout time.Duration) (Element, error)
	Click(selector string) error
	Fill(selector, value string) error
	Wheel(dx, dy float64) error
	URL() string
	Close() error
}

// Element: найденный DOM-элемент.
type Element interface {
	Locator
	Text() (string, error)
	Attribute(name string) (string, error)
	// Closest возвращает ближайшего предка по селектору или nil.
	Closest(selector string) (Element, error)
	Click() error
	Fill(value string) error
}

// Notifier доставляет уведомления. Send никогда не возвращает ошибку вызывающему.
type Notifier interface {
	Send(content, summary string)
}

// ReplyProvider отдаёт случайный текст ответа.
type ReplyProvider interface {
	RandomReply() string
}

// RunRecorder сохраняет итоги прогона. Ошибки только логируются.
type RunRecorder interface {
	RecordRun(ctx context.Context, run RunRecord) error
}

// RunLock не даёт запустить два прогона одного аккаунта одновременно.
type RunLock interface {
	// Acquire возвращает false без ошибки, если блокировка уже занята.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RunHistory отдаёт последний сохранённый прогон.
type RunHistory interface {
	// Last возвращает ErrNoRuns, если прогонов не было.
	Last(ctx context.Context) (RunRecord, error)
}
