package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/ini.v1"

	"linuxdo-keepalive/internal/domain"
)

// DefaultConfigFile: путь к INI-файлу по умолчанию.
const DefaultConfigFile = "config/config.ini"

// AppConfig описывает конфигурацию прогона и окружающих сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"prod"`

	Credentials struct {
		Username string `envconfig:"LINUXDO_USERNAME" validate:"required"`
		Password string `envconfig:"LINUXDO_PASSWORD" validate:"required"`
	} `envconfig:""`

	Settings struct {
		LikeProbability    float64 `envconfig:"LIKE_PROBABILITY" default:"0.02" validate:"gte=0,lte=1"`
		ReplyProbability   float64 `envconfig:"REPLY_PROBABILITY" default:"0" validate:"gte=0,lte=1"`
		CollectProbability float64 `envconfig:"COLLECT_PROBABILITY" default:"0.02" validate:"gte=0,lte=1"`
		MaxTopics          int     `envconfig:"MAX_TOPICS" default:"10" validate:"min=1"`
		TopicCapMode       string  `envconfig:"TOPIC_CAP_MODE" default:"listing" validate:"oneof=listing visits"`
		Seed               uint64  `envconfig:"RANDOM_SEED" default:"0"`
	} `envconfig:""`

	URLs struct {
		Home    string `envconfig:"HOME_URL" default:"https://linux.do/" validate:"required,url"`
		Connect string `envconfig:"CONNECT_URL" default:"https://connect.linux.do/" validate:"omitempty,url"`
	} `envconfig:""`

	Telegram struct {
		Enabled bool   `envconfig:"USE_TELEGRAM" default:"false"`
		Token   string `envconfig:"TELEGRAM_BOT_TOKEN" validate:"required_if=Enabled true"`
		ChatID  string `envconfig:"TELEGRAM_CHAT_ID" validate:"required_if=Enabled true"`
		Mode    string `envconfig:"NOTIFY_MODE" validate:"omitempty,oneof=sync detached"`
	} `envconfig:""`

	Browser struct {
		Engine        string        `envconfig:"BROWSER" default:"firefox" validate:"oneof=firefox chromium webkit"`
		Headless      bool          `envconfig:"HEADLESS" default:"true"`
		Install       bool          `envconfig:"PLAYWRIGHT_INSTALL" default:"false"`
		NavTimeout    time.Duration `envconfig:"NAV_TIMEOUT" default:"30s" validate:"gt=0"`
		ActionTimeout time.Duration `envconfig:"ACTION_TIMEOUT" default:"2s" validate:"gt=0"`
	} `envconfig:""`

	Log struct {
		File   string `envconfig:"LOG_FILE"`
		Format string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json console"`
	} `envconfig:""`

	RepliesFile string `envconfig:"REPLIES_FILE"`

	MetricsAddr    string `envconfig:"METRICS_ADDR"`
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL" validate:"omitempty,url"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Queue struct {
		URL      string `envconfig:"AMQP_URL"`
		Exchange string `envconfig:"AMQP_EXCHANGE" default:"keepalive"`
	} `envconfig:""`

	Scheduler struct {
		Interval time.Duration `envconfig:"RUN_INTERVAL" default:"24h" validate:"gt=0"`
		HTTPAddr string        `envconfig:"HTTP_ADDR" default:":8080"`
		LockTTL  time.Duration `envconfig:"RUN_LOCK_TTL" default:"1h" validate:"gt=0"`
	} `envconfig:""`
}

// iniBinding связывает ключ INI-файла с переменной окружения.
type iniBinding struct {
	section, key, env string
}

var iniBindings = []iniBinding{
	{"credentials", "username", "LINUXDO_USERNAME"},
	{"credentials", "password", "LINUXDO_PASSWORD"},
	{"settings", "like_probability", "LIKE_PROBABILITY"},
	{"settings", "reply_probability", "REPLY_PROBABILITY"},
	{"settings", "collect_probability", "COLLECT_PROBABILITY"},
	{"settings", "max_topics", "MAX_TOPICS"},
	{"settings", "topic_cap_mode", "TOPIC_CAP_MODE"},
	{"urls", "home_url", "HOME_URL"},
	{"urls", "connect_url", "CONNECT_URL"},
	{"telegram", "enabled", "USE_TELEGRAM"},
	{"telegram", "bot_token", "TELEGRAM_BOT_TOKEN"},
	{"telegram", "chat_id", "TELEGRAM_CHAT_ID"},
}

// legacyAliases: короткие имена переменных, которые принимаются как запасные.
var legacyAliases = map[string]string{
	"LINUXDO_USERNAME": "USERNAME",
	"LINUXDO_PASSWORD": "PASSWORD",
}

// Load собирает конфиг: INI-файл, затем .env, затем окружение.
// Переменные окружения имеют приоритет над файлами. В GitHub Actions INI не читается.
// Значения из файлов видны envconfig только на время разбора и в окружении не остаются.
func Load() (AppConfig, error) {
	overlay := map[string]string{}
	if os.Getenv("GITHUB_ACTIONS") == "" {
		path := os.Getenv("CONFIG_FILE")
		if path == "" {
			path = DefaultConfigFile
		}
		if err := readINI(path, overlay); err != nil {
			return AppConfig{}, err
		}
	}
	dotenv, err := godotenv.Read()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("чтение .env: %w", err)
	}
	for k, v := range dotenv {
		overlay[k] = v
	}
	for env, alias := range legacyAliases {
		if _, ok := os.LookupEnv(env); ok {
			continue
		}
		if v, ok := os.LookupEnv(alias); ok {
			overlay[env] = v
		} else if v, ok := overlay[alias]; ok {
			if _, set := overlay[env]; !set {
				overlay[env] = v
			}
		}
	}

	restore, err := applyOverlay(overlay)
	defer restore()
	if err != nil {
		return AppConfig{}, err
	}
	return process()
}

// readINI переносит значения файла в overlay.
func readINI(path string, overlay map[string]string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("%w: файл %s: %v", domain.ErrConfigInvalid, path, err)
	}
	for _, b := range iniBindings {
		sec := f.Section(b.section)
		if sec.HasKey(b.key) {
			overlay[b.env] = sec.Key(b.key).String()
		}
	}
	return nil
}

// applyOverlay выставляет незаданные переменные и возвращает функцию, которая их снимает.
func applyOverlay(overlay map[string]string) (func(), error) {
	var added []string
	restore := func() {
		for _, k := range added {
			_ = os.Unsetenv(k)
		}
	}
	for k, v := range overlay {
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return restore, fmt.Errorf("установка %s: %w", k, err)
		}
		added = append(added, k)
	}
	return restore, nil
}

func process() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}
	if err := validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func validate(cfg AppConfig) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("envconfig")
	})
	err := v.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}
	var missing, invalid []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "required_if":
			missing = append(missing, fe.Field())
		default:
			invalid = append(invalid, fmt.Sprintf("%s=%v (%s)", fe.Field(), fe.Value(), fe.Tag()))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfigMissing, strings.Join(missing, ", "))
	}
	return fmt.Errorf("%w: %s", domain.ErrConfigInvalid, strings.Join(invalid, ", "))
}
