package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	StorageConfig struct {
		Engine     string // sqlite3 | postgres | memory
		Path       string // sqlite3 only
		Host       string
		Port       string
		Name       string
		User       string
		Password   string
		AdminUser  string
		AdminPass  string
		DisableTLS bool
	}

	PeriodConfig struct {
		Timezone string
		Interval time.Duration
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		RollbarToken     string
		SendgridApiKey   string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		NotifyEmails     []mail.Address
		Server           ServerConfig
		Storage          StorageConfig
		Period           PeriodConfig
	}
)

// Address returns the "host:port" of the postgres server.
func (sc StorageConfig) Address() string {
	return sc.Host + ":" + sc.Port
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "develop")
	conf.SetDefault("appName", "Secundaria")
	conf.SetDefault("secretKey", "t8#z!k2q9m4w7x1c6v3b5n0p$l@j&h*g-f+d=s")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "Secundaria <noreply@localhost>")
	conf.SetDefault("notifyEmails", "")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")

	conf.SetDefault("server.host", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 12*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)

	conf.SetDefault("storage.engine", "sqlite3")
	conf.SetDefault("storage.path", "secundaria.db")
	conf.SetDefault("storage.host", "localhost")
	conf.SetDefault("storage.port", "5432")
	conf.SetDefault("storage.name", "secundaria")
	conf.SetDefault("storage.user", "secundaria")
	conf.SetDefault("storage.password", "")
	conf.SetDefault("storage.adminUser", "")
	conf.SetDefault("storage.adminPassword", "")
	conf.SetDefault("storage.disableTLS", true)

	conf.SetDefault("period.timezone", "America/Mexico_City")
	conf.SetDefault("period.interval", 10*time.Second)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:              env,
		Build:            conf.GetString("build"),
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		FrontendBaseURL:  conf.GetString("frontendBaseURL"),
		DefaultFromEmail: parseAddress(conf.GetString("defaultFromEmail")),
		NotifyEmails:     parseAddressList(conf.GetString("notifyEmails")),
		Server: ServerConfig{
			Host:                      conf.GetString("server.host"),
			DebugHost:                 conf.GetString("server.debugHost"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Storage: StorageConfig{
			Engine:     conf.GetString("storage.engine"),
			Path:       conf.GetString("storage.path"),
			Host:       conf.GetString("storage.host"),
			Port:       conf.GetString("storage.port"),
			Name:       conf.GetString("storage.name"),
			User:       conf.GetString("storage.user"),
			Password:   conf.GetString("storage.password"),
			AdminUser:  conf.GetString("storage.adminUser"),
			AdminPass:  conf.GetString("storage.adminPassword"),
			DisableTLS: conf.GetBool("storage.disableTLS"),
		},
		Period: PeriodConfig{
			Timezone: conf.GetString("period.timezone"),
			Interval: conf.GetDuration("period.interval"),
		},
	}
}

func parseAddress(s string) mail.Address {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return mail.Address{Address: s}
	}
	return *addr
}

func parseAddressList(s string) []mail.Address {
	if CleanString(s) == "" {
		return nil
	}
	list, err := mail.ParseAddressList(s)
	if err != nil {
		log.Printf("config.notifyEmails: %v", err)
		return nil
	}
	addrs := make([]mail.Address, 0, len(list))
	for _, a := range list {
		addrs = append(addrs, *a)
	}
	return addrs
}
