// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env"`
	SiteName                string `yaml:"site_name"`
	LoginPageURL            string `yaml:"login_page_url"`
	TestMode                bool   `yaml:"test_mode"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	RabbitConnectionString  string `yaml:"rabbit_connection_string"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	Tokens                  `yaml:"tokens"`
	Stripe                  `yaml:"stripe"`
	Webhook                 `yaml:"webhook"`
	Admin                   `yaml:"admin"`
	SMTP                    `yaml:"smtp"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// Tokens структура для настройки логин-токенов и куки узнавания
type Tokens struct {
	Salt           string        `yaml:"salt"`
	LoginTokenTTL  time.Duration `yaml:"login_token_ttl" env-default:"1h"`
	RecognitionTTL time.Duration `yaml:"recognition_ttl" env-default:"8760h"`
}

// Stripe структура с ключами и таймаутом обращения к Stripe
type Stripe struct {
	LiveSecretKey string        `yaml:"live_secret_key"`
	TestSecretKey string        `yaml:"test_secret_key"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout" env-default:"10s"`
}

// Webhook структура с секретом для проверки подписи входящих уведомлений
type Webhook struct {
	WebhookSecret string `yaml:"webhook_secret"`
}

// Admin структура с учётными данными административного API
type Admin struct {
	AdminUsername     string        `yaml:"admin_username"`
	AdminPasswordHash string        `yaml:"admin_password_hash"`
	JWTSecretKey      string        `yaml:"jwt_secret_key"`
	AdminTokenTTL     time.Duration `yaml:"admin_token_ttl" env-default:"24h"`
}

// SMTP структура для настройки отправки почты
type SMTP struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort string `yaml:"smtp_port"`
	SMTPUser string `yaml:"smtp_user"`
	SMTPPass string `yaml:"smtp_pass"`
}

// Mode возвращает текущий режим хранения записей: live либо test.
// Режим вычисляется в момент вызова, а не в момент исходного события.
func (c *Config) Mode() string {
	if c.TestMode {
		return "test"
	}
	return "live"
}

// StripeSecretKey возвращает секретный ключ Stripe для текущего режима.
func (c *Config) StripeSecretKey() string {
	if c.TestMode {
		return c.TestSecretKey
	}
	return c.LiveSecretKey
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"SiteName: %s\n"+
			"LoginPageURL: %s\n"+
			"TestMode: %t\n"+
			"StorageConnectionString: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Tokens:\n"+
			"  LoginTokenTTL: %s\n"+
			"  RecognitionTTL: %s\n",
		c.Env,
		c.SiteName,
		c.LoginPageURL,
		c.TestMode,
		c.StorageConnectionString,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.LoginTokenTTL,
		c.RecognitionTTL,
	)
}
