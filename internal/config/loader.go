package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	derrors "github.com/randalmurphal/dossier/internal/errors"
	"github.com/randalmurphal/dossier/internal/util"
)

// Load reads configuration with the default search path: file when set,
// otherwise ./.dossier/dossier.yaml then ~/.dossier/dossier.yaml.
// Environment variables (DOSSIER_*) override the file; built-in defaults
// fill the rest. The result is validated.
func Load(file string) (*Config, error) {
	return LoadWith(viper.New(), file)
}

// LoadWith loads into v, letting callers bind flags before reading.
func LoadWith(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(DossierDir)
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, DossierDir))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every scalar key so env overrides apply even
// without a config file.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.dsn", d.Database.DSN)

	v.SetDefault("workflow.default_sla_hours", d.Workflow.DefaultSLAHours)
	v.SetDefault("workflow.auto_validate", d.Workflow.AutoValidate)
	v.SetDefault("workflow.reset_escalation_on_advance", d.Workflow.ResetEscalationOnAdvance)

	v.SetDefault("escalation.enabled", d.Escalation.Enabled)
	v.SetDefault("escalation.interval", d.Escalation.Interval)
	v.SetDefault("escalation.reescalate_after", d.Escalation.ReescalateAfter)
	v.SetDefault("escalation.max_level", d.Escalation.MaxLevel)
	v.SetDefault("escalation.reassign_at_level", d.Escalation.ReassignAtLevel)

	v.SetDefault("queue.cache_ttl", d.Queue.CacheTTL)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.output", d.Tracing.Output)
}

// Init writes the default configuration to path. An existing file is only
// replaced when force is set.
func Init(path string, force bool) error {
	data, err := Default().YAML()
	if err != nil {
		return err
	}
	if err := util.WriteFileAtomic(path, data, 0o644, force); err != nil {
		if errors.Is(err, util.ErrFileExists) {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DefaultPath is where Init writes when no path is given.
func DefaultPath() string {
	return filepath.Join(DossierDir, ConfigFileName+".yaml")
}

func invalid(field, format string, args ...any) error {
	return derrors.ErrConfigInvalid(field, fmt.Sprintf(format, args...))
}
