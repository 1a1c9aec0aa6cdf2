package domain

import "errors"

var (
	// ErrConfigMissing возвращается, если не заданы обязательные параметры.
	ErrConfigMissing = errors.New("не заданы обязательные параметры конфигурации")
	// ErrConfigInvalid возвращается для значений вне допустимого диапазона.
	ErrConfigInvalid = errors.New("некорректное значение конфигурации")
	// ErrNavigationTimeout: переход по адресу не уложился в таймаут.
	ErrNavigationTimeout = errors.New("таймаут навигации")
	// ErrElementNotFound: элемент не появился за отведённое время.
	ErrElementNotFound = errors.New("элемент не найден")
	// ErrLoginFailed: после отправки формы не появился индикатор входа.
	ErrLoginFailed = errors.New("вход не выполнен")
	// ErrRunLocked: прогон для этого аккаунта уже выполняется.
	ErrRunLocked = errors.New("прогон уже выполняется")
	// ErrNoRuns: история прогонов пуста.
	ErrNoRuns = errors.New("прогонов ещё не было")
)
