// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

var validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.domain", "host_domain")
	v.BindEnv("host.client_url", "host_client_url")

	v.BindEnv("jwt.secret", "jwt_secret")
	v.BindEnv("jwt.expiry_days", "jwt_expiry_days")

	v.BindEnv("storage.path", "storage_path")

	v.BindEnv("upload.max_size", "upload_max_size")
	v.BindEnv("upload.max_files", "upload_max_files")

	v.BindEnv("smtp.host", "smtp_host")
	v.BindEnv("smtp.port", "smtp_port")
	v.BindEnv("smtp.user", "smtp_user")
	v.BindEnv("smtp.password", "smtp_password")
	v.BindEnv("smtp.sender", "smtp_sender")

	v.BindEnv("ratelimit.rps", "ratelimit_rps")
	v.BindEnv("ratelimit.burst", "ratelimit_burst")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.client_url", "http://localhost:5173")

	v.SetDefault("jwt.expiry_days", 7)

	v.SetDefault("storage.path", "./uploads")

	v.SetDefault("upload.max_size", 50)
	v.SetDefault("upload.max_files", 5)

	v.SetDefault("smtp.port", 587)

	v.SetDefault("ratelimit.rps", 20)
	v.SetDefault("ratelimit.burst", 40)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			zap.L().Warn("No config.toml file found, running on defaults and environment variables")
		} else {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	if v.GetInt("jwt.expiry_days") <= 0 {
		return errors.New("jwt.expiry_days must be bigger than 0")
	}

	if v.GetString("storage.path") == "" {
		return errors.New("storage.path can't be empty")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if v.GetInt("upload.max_files") <= 0 {
		return errors.New("upload.max_files must be bigger than 0")
	}

	if v.GetString("smtp.host") == "" {
		zap.L().Warn("No smtp.host configured, the share-by-email endpoint will be unavailable")
	}

	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
	return nil
}
