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

// Config holds application-wide settings. Values come from defaults,
// an optional dotenv file (config/.env.<env>) and environment variables,
// in increasing order of precedence.
type Config struct {
	Env      string
	Debug    bool
	TestMode bool
	AppName  string
	Build    string

	DefaultFromEmail   string
	SendgridApiKey     string
	RollbarToken       string
	DatabaseURL        string
	StorageBaseURL     string
	StudentEmailDomain string
	SessionTTL         time.Duration
}

func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Shule")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("storageBaseURL", "https://storage.shule.app/")
	conf.SetDefault("studentEmailDomain", "student.school.com")
	conf.SetDefault("sessionTTL", 24*time.Hour)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

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
		Env:                env,
		Debug:              conf.GetBool("debug"),
		TestMode:           conf.GetBool("testMode"),
		AppName:            conf.GetString("appName"),
		Build:              conf.GetString("build"),
		DefaultFromEmail:   conf.GetString("defaultFromEmail"),
		SendgridApiKey:     conf.GetString("sendgridApiKey"),
		RollbarToken:       conf.GetString("rollbarToken"),
		DatabaseURL:        conf.GetString("databaseUrl"),
		StorageBaseURL:     conf.GetString("storageBaseURL"),
		StudentEmailDomain: conf.GetString("studentEmailDomain"),
		SessionTTL:         conf.GetDuration("sessionTTL"),
	}
}

// FromEmailAddress returns the default sender for outgoing mail.
func (c *Config) FromEmailAddress() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
}
