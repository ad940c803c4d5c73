package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"bidvault/internal/domain"
	"bidvault/internal/syncengine"
)

const (
	envPrefix      = "BIDVAULT"
	dotEnvFile     = ".env"
	configFileName = "config.yaml"

	// SecretsFile seals identity secrets inside the state document.
	SecretsFile = "file"
	// SecretsKeyring keeps identity secrets in the OS keyring.
	SecretsKeyring = "keyring"
)

// ErrInvalidConfig is returned for settings outside their allowed values.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds runtime wiring options for building the app.
type Config struct {
	Home       string // state directory, e.g. $HOME/.bidvault
	RelayURL   string // relay base URL, e.g. http://127.0.0.1:8080
	APIKey     string // sent as X-API-Key when set
	Passphrase string // seals identity secrets at rest
	Classroom  string // stamped on captured observations when set

	SecretsBackend string // "file" or "keyring"
	Log            LogConfig
	Sync           syncengine.Config
	Envelope       EnvelopeConfig
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string // any logrus level name
	Format string // "text" or "json"
}

// EnvelopeConfig selects how new observations are sealed.
type EnvelopeConfig struct {
	Scheme  domain.EnvelopeScheme
	Viewers []domain.IdentityID
}

// DefaultHome returns $HOME/.bidvault.
func DefaultHome() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".bidvault"), nil
}

// LoadConfig reads the configuration for home. Environment variables win
// over config.yaml, which wins over the defaults. A .env file in home only
// fills variables that are not already set.
func LoadConfig(home string) (Config, error) {
	if home == "" {
		var err error
		if home, err = DefaultHome(); err != nil {
			return Config{}, err
		}
	}

	dotEnvPath := filepath.Join(home, dotEnvFile)
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return Config{}, fmt.Errorf("config.godotenv(%s): %w", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config.os.Stat(%s): %w", dotEnvPath, err)
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := filepath.Join(home, configFileName)
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config.ReadInConfig(%s): %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config.os.Stat(%s): %w", configPath, err)
	}

	cfg := Config{
		Home:           home,
		RelayURL:       strings.TrimRight(v.GetString("relay_url"), "/"),
		APIKey:         v.GetString("api_key"),
		Passphrase:     v.GetString("passphrase"),
		Classroom:      v.GetString("classroom"),
		SecretsBackend: strings.ToLower(v.GetString("secrets.backend")),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Sync: syncengine.Config{
			Debounce: v.GetDuration("sync.debounce"),
			Periodic: v.GetDuration("sync.periodic"),
			Backoff: syncengine.Backoff{
				Base:   v.GetDuration("sync.backoff_base"),
				Cap:    v.GetDuration("sync.backoff_cap"),
				Jitter: v.GetFloat64("sync.backoff_jitter"),
			},
			MaxRetries:     v.GetInt("sync.max_retries"),
			RequestTimeout: v.GetDuration("sync.request_timeout"),
		},
		Envelope: EnvelopeConfig{
			Scheme:  domain.EnvelopeScheme(strings.ToLower(v.GetString("envelope.scheme"))),
			Viewers: splitIDs(v.GetStringSlice("envelope.viewers")),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := syncengine.DefaultConfig()
	v.SetDefault("relay_url", "http://127.0.0.1:8080")
	v.SetDefault("api_key", "")
	v.SetDefault("passphrase", "")
	v.SetDefault("classroom", "")
	v.SetDefault("secrets.backend", SecretsFile)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("sync.debounce", def.Debounce)
	v.SetDefault("sync.periodic", def.Periodic)
	v.SetDefault("sync.backoff_base", def.Backoff.Base)
	v.SetDefault("sync.backoff_cap", def.Backoff.Cap)
	v.SetDefault("sync.backoff_jitter", def.Backoff.Jitter)
	v.SetDefault("sync.max_retries", def.MaxRetries)
	v.SetDefault("sync.request_timeout", def.RequestTimeout)
	v.SetDefault("envelope.scheme", string(domain.SchemeStudentKey))
	v.SetDefault("envelope.viewers", []string{})
}

// splitIDs accepts both list values and comma separated strings.
func splitIDs(raw []string) []domain.IdentityID {
	var out []domain.IdentityID
	for _, item := range raw {
		for _, id := range strings.Split(item, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, domain.IdentityID(id))
			}
		}
	}
	return out
}

// Validate checks enumerated settings and timing bounds.
func (c Config) Validate() error {
	var errs []error
	switch c.SecretsBackend {
	case SecretsFile, SecretsKeyring:
	default:
		errs = append(errs, fmt.Errorf("secrets.backend %q: want %s or %s", c.SecretsBackend, SecretsFile, SecretsKeyring))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}
	switch c.Envelope.Scheme {
	case domain.SchemeStudentKey:
	case domain.SchemeRecipients:
		if len(c.Envelope.Viewers) == 0 {
			errs = append(errs, errors.New("envelope.viewers: required for the recipients scheme"))
		}
	default:
		errs = append(errs, fmt.Errorf("envelope.scheme %q: want %s or %s",
			c.Envelope.Scheme, domain.SchemeStudentKey, domain.SchemeRecipients))
	}
	for name, d := range map[string]time.Duration{
		"sync.debounce":     c.Sync.Debounce,
		"sync.backoff_base": c.Sync.Backoff.Base,
		"sync.backoff_cap":  c.Sync.Backoff.Cap,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.Sync.Backoff.Jitter < 0 || c.Sync.Backoff.Jitter >= 1 {
		errs = append(errs, fmt.Errorf("sync.backoff_jitter must be in [0, 1), got %v", c.Sync.Backoff.Jitter))
	}
	if c.Sync.MaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("sync.max_retries must be positive, got %d", c.Sync.MaxRetries))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
