package config

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// EnvPrefix prefixes canonical environment variables, e.g. VSGQL_SERVER_PORT.
const EnvPrefix = "VSGQL"

var defineFlagsOnce sync.Once

// envAliases maps config keys to the deployment's unprefixed variable names.
// The prefixed canonical name always wins over an alias.
var envAliases = map[string][]string{
	"server.host":                 {"HOST"},
	"server.port":                 {"PORT"},
	"server.cors_allowed_origins": {"ALLOWED_ORIGINS"},
	"database.host":               {"DB_HOST", "PGHOST", "dbhost"},
	"database.port":               {"DB_PORT", "PGPORT", "dbport"},
	"database.database":           {"DB_NAME", "PGDATABASE", "database"},
	"database.user":               {"DB_USER", "PGUSER", "dbuser"},
	"database.password":           {"DB_PASSWORD", "PGPASSWORD", "dbpassword"},
	"database.tls.ca_file":        {"PGSSLROOTCERT"},
	"observability.environment":   {"NODE_ENV"},
}

// Load loads configuration from multiple sources with the following precedence:
// 1. Explicit overrides (v.Set) – used only for secrets read from files or a prompt
// 2. Command line flags
// 3. Environment variables
// 4. Config file
// 5. Default values
func Load() (*Config, error) {
	defineFlags()
	if !pflag.Parsed() {
		pflag.Parse()
	}

	v := newViper()

	cfgPath, _ := pflag.CommandLine.GetString("config")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName("versostat-graphql")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/versostat-graphql/")
		v.AddConfigPath("$HOME/.versostat-graphql")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if cfgPath != "" {
			return nil, errors.Wrapf(err, "failed to read config file %q", cfgPath)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	bindChangedFlagsToViper(v)
	return load(v)
}

// newViper returns a viper instance with defaults and environment bindings.
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, aliases := range envAliases {
		names := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
	return v
}

// secretSource fills key from a file, or from an interactive prompt, when
// key itself is empty.
type secretSource struct {
	key      string
	fileKey  string
	label    string
	promptOK string
}

var secretSources = []secretSource{
	{key: "database.dsn", fileKey: "database.dsn_file", label: "database DSN"},
	{key: "database.password", fileKey: "database.password_file", label: "database password", promptOK: "database.password_prompt"},
}

// load resolves secrets and decodes v into a Config.
func load(v *viper.Viper) (*Config, error) {
	if err := validateSingleStdinFileSource(v); err != nil {
		return nil, err
	}
	for _, src := range secretSources {
		if err := src.resolve(v); err != nil {
			return nil, err
		}
	}

	hooks := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		stringToStringSliceHookFunc(","),
	)
	var cfg Config
	if err := v.UnmarshalExact(&cfg, viper.DecodeHook(hooks)); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	cfg.applyEnvironmentDefaults()
	return &cfg, nil
}

func (s secretSource) resolve(v *viper.Viper) error {
	if v.GetString(s.key) != "" {
		return nil
	}
	if path := v.GetString(s.fileKey); path != "" {
		secret, err := readSecretFile(path)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s file", s.label)
		}
		v.Set(s.key, secret)
		return nil
	}
	if s.promptOK != "" && v.GetBool(s.promptOK) {
		secret, err := promptPassword()
		if err != nil {
			return errors.Wrap(err, "failed to read password")
		}
		v.Set(s.key, secret)
	}
	return nil
}

// applyEnvironmentDefaults picks database TLS settings from the deployment
// environment when none are configured: verified TLS against the default CA
// bundle in production, plaintext elsewhere.
func (c *Config) applyEnvironmentDefaults() {
	tls := &c.Database.TLS
	if tls.Mode != "" {
		return
	}
	if !c.Observability.IsProduction() {
		tls.Mode = TLSModeDisable
		return
	}
	tls.Mode = TLSModeVerifyFull
	if tls.resolveCAFile() == "" {
		tls.CAFile = DefaultCABundle
	}
}

// bindChangedFlagsToViper binds only flags set on the command line, so an
// unset flag's zero value never shadows env, file or default values.
func bindChangedFlagsToViper(v *viper.Viper) {
	pflag.CommandLine.Visit(func(f *pflag.Flag) {
		if f.Name != "config" && f.Name != "version" {
			_ = v.BindPFlag(f.Name, f)
		}
	})
}

// defineFlags defines all command line flags using canonical snake_case keys.
func defineFlags() {
	defineFlagsOnce.Do(func() {
		pflag.String("database.dsn", "", "Postgres URL or key=value connection string")
		pflag.String("database.dsn_file", "", "Path to file containing database DSN (use @- for stdin)")
		pflag.String("database.host", "", "Database host")
		pflag.Int("database.port", 0, "Database port")
		pflag.String("database.user", "", "Database user")
		pflag.String("database.password", "", "Database password")
		pflag.String("database.password_file", "", "Path to file containing database password (use @- for stdin)")
		pflag.Bool("database.password_prompt", false, "Prompt for database password securely")
		pflag.String("database.database", "", "Database name")
		pflag.String("database.schema", "", "Schema holding the statistics views")

		pflag.String("database.tls.mode", "", "TLS mode (disable, require, verify-ca, verify-full)")
		pflag.String("database.tls.ca_file", "", "Path to CA bundle for server verification")
		pflag.String("database.tls.ca_file_env", "", "Env var containing CA bundle path")
		pflag.String("database.tls.cert_file", "", "Path to client certificate")
		pflag.String("database.tls.key_file", "", "Path to client private key")

		pflag.Int("database.pool.max_open", 0, "Maximum open database connections")
		pflag.Int("database.pool.max_idle", 0, "Maximum idle connections in pool")
		pflag.Duration("database.pool.max_lifetime", 0, "Connection max lifetime (e.g. 5m, 30s)")
		pflag.Duration("database.pool.max_idle_time", 0, "Close connections idle longer than this")
		pflag.Duration("database.pool.acquire_timeout", 0, "Max wait for a pooled connection per query")
		pflag.Duration("database.connection_timeout", 0, "Max time to wait for database on startup (0 = fail immediately)")
		pflag.Duration("database.connection_retry_interval", 0, "Initial interval between connection retries")

		pflag.String("server.host", "", "HTTP listen host")
		pflag.Int("server.port", 0, "HTTP server port")
		pflag.Int("server.graphql_max_depth", 0, "Maximum GraphQL selection depth (0 = unlimited)")
		pflag.Int("server.graphql_max_fields", 0, "Maximum GraphQL selected fields (0 = unlimited)")
		pflag.Bool("server.graphiql_enabled", false, "Enable GraphiQL UI for /graphql")
		pflag.Bool("server.rate_limit_enabled", false, "Enable global rate limiting for all HTTP endpoints")
		pflag.Float64("server.rate_limit_rps", 0, "Global rate limit requests per second")
		pflag.Int("server.rate_limit_burst", 0, "Global rate limit burst size")
		pflag.Bool("server.cors_enabled", false, "Enable CORS (Cross-Origin Resource Sharing)")
		pflag.StringSlice("server.cors_allowed_origins", nil, "Allowed CORS origins (comma-separated or repeated)")
		pflag.StringSlice("server.cors_allowed_methods", nil, "Allowed CORS methods (comma-separated or repeated)")
		pflag.StringSlice("server.cors_allowed_headers", nil, "Allowed CORS headers (comma-separated or repeated)")
		pflag.StringSlice("server.cors_expose_headers", nil, "CORS headers to expose to browser (comma-separated or repeated)")
		pflag.Bool("server.cors_allow_credentials", false, "Allow credentials in CORS requests")
		pflag.Int("server.cors_max_age", 0, "CORS preflight cache duration (seconds)")
		pflag.Duration("server.read_timeout", 0, "HTTP server read timeout")
		pflag.Duration("server.write_timeout", 0, "HTTP server write timeout")
		pflag.Duration("server.idle_timeout", 0, "HTTP server idle timeout")
		pflag.Duration("server.shutdown_timeout", 0, "HTTP server graceful shutdown timeout")
		pflag.Duration("server.health_check_timeout", 0, "Readiness check timeout")

		pflag.String("observability.service_name", "", "Service name for observability")
		pflag.String("observability.service_version", "", "Service version for observability")
		pflag.String("observability.environment", "", "Environment name (development, staging, production)")
		pflag.Bool("observability.metrics_enabled", false, "Enable metrics collection")
		pflag.Bool("observability.tracing_enabled", false, "Enable distributed tracing")
		pflag.Float64("observability.trace_sample_ratio", 0, "Trace sampling ratio from 0.0 to 1.0")
		pflag.Bool("observability.sqlcommenter_enabled", false, "Inject trace context into SQL queries")

		pflag.String("observability.logging.level", "", "Log level (debug, info, warn, error)")
		pflag.String("observability.logging.format", "", "Log format (json, text)")
		pflag.Bool("observability.logging.exports_enabled", false, "Enable OTLP log export")

		pflag.String("observability.otlp.endpoint", "", "OTLP endpoint for all signals (e.g., localhost:4317)")
		pflag.String("observability.otlp.protocol", "", "OTLP protocol for all signals (grpc, http/protobuf)")
		pflag.Bool("observability.otlp.insecure", false, "Use insecure connection (no TLS)")
		pflag.String("observability.otlp.tls_cert_file", "", "Path to TLS certificate file for server verification")
		pflag.String("observability.otlp.tls_client_cert_file", "", "Path to client certificate file for mTLS")
		pflag.String("observability.otlp.tls_client_key_file", "", "Path to client key file for mTLS")
		pflag.Duration("observability.otlp.timeout", 0, "OTLP export timeout")
		pflag.String("observability.otlp.compression", "", "OTLP compression (none, gzip)")
		pflag.Bool("observability.otlp.retry_enabled", false, "Enable retry on transient errors")

		pflag.String("observability.traces.endpoint", "", "OTLP endpoint for traces only")
		pflag.String("observability.traces.protocol", "", "OTLP protocol for traces (grpc, http/protobuf)")
		pflag.Bool("observability.traces.insecure", false, "Use insecure connection for traces")
		pflag.Duration("observability.traces.timeout", 0, "Timeout for trace exports")

		pflag.String("observability.logs.endpoint", "", "OTLP endpoint for logs only")
		pflag.String("observability.logs.protocol", "", "OTLP protocol for logs (grpc, http/protobuf)")
		pflag.Bool("observability.logs.insecure", false, "Use insecure connection for logs")
		pflag.Duration("observability.logs.timeout", 0, "Timeout for log exports")

		pflag.StringP("config", "c", "", "Config file path")
	})
}

// setDefaults sets default values (lowest precedence).
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.dsn_file", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.password_file", "")
	v.SetDefault("database.password_prompt", false)
	v.SetDefault("database.database", "postgres")
	v.SetDefault("database.schema", "test_schema_2025")

	v.SetDefault("database.tls.mode", "")
	v.SetDefault("database.tls.ca_file", "")
	v.SetDefault("database.tls.ca_file_env", "")
	v.SetDefault("database.tls.cert_file", "")
	v.SetDefault("database.tls.key_file", "")

	v.SetDefault("database.pool.max_open", 20)
	v.SetDefault("database.pool.max_idle", 5)
	v.SetDefault("database.pool.max_lifetime", 30*time.Minute)
	v.SetDefault("database.pool.max_idle_time", 15*time.Second)
	v.SetDefault("database.pool.acquire_timeout", 10*time.Second)
	v.SetDefault("database.connection_timeout", 60*time.Second)
	v.SetDefault("database.connection_retry_interval", 2*time.Second)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.graphql_max_depth", 10)
	v.SetDefault("server.graphql_max_fields", 500)
	v.SetDefault("server.graphiql_enabled", false)
	v.SetDefault("server.rate_limit_enabled", false)
	v.SetDefault("server.rate_limit_rps", 0.0)
	v.SetDefault("server.rate_limit_burst", 0)
	v.SetDefault("server.cors_enabled", true)
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Content-Type", "Authorization"})
	v.SetDefault("server.cors_expose_headers", []string{})
	v.SetDefault("server.cors_allow_credentials", true)
	v.SetDefault("server.cors_max_age", 86400)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.health_check_timeout", 2*time.Second)

	v.SetDefault("observability.service_name", "versostat-graphql")
	v.SetDefault("observability.service_version", "")
	v.SetDefault("observability.environment", "development")
	v.SetDefault("observability.metrics_enabled", true)
	v.SetDefault("observability.tracing_enabled", false)
	v.SetDefault("observability.trace_sample_ratio", 1.0)
	v.SetDefault("observability.sqlcommenter_enabled", false)

	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.logging.exports_enabled", false)

	v.SetDefault("observability.otlp.endpoint", "localhost:4317")
	v.SetDefault("observability.otlp.protocol", "grpc")
	v.SetDefault("observability.otlp.insecure", false)
	v.SetDefault("observability.otlp.tls_cert_file", "")
	v.SetDefault("observability.otlp.tls_client_cert_file", "")
	v.SetDefault("observability.otlp.tls_client_key_file", "")
	v.SetDefault("observability.otlp.timeout", 10*time.Second)
	v.SetDefault("observability.otlp.compression", "gzip")
	v.SetDefault("observability.otlp.retry_enabled", true)
}

// promptPassword reads a password from the terminal without echo.
func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Enter database password: ")
	defer fmt.Fprintln(os.Stderr)
	pwd, err := term.ReadPassword(int(syscall.Stdin))
	return string(pwd), err
}

// readSecretFile returns the trimmed contents of path; "@-" reads stdin.
func readSecretFile(path string) (string, error) {
	r := io.Reader(os.Stdin)
	if path != "@-" {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	return strings.TrimSpace(string(data)), err
}

// validateSingleStdinFileSource rejects configs where more than one secret
// would be read from stdin.
func validateSingleStdinFileSource(v *viper.Viper) error {
	var fromStdin []string
	for _, src := range secretSources {
		if strings.TrimSpace(v.GetString(src.fileKey)) == "@-" {
			fromStdin = append(fromStdin, src.fileKey)
		}
	}
	if len(fromStdin) > 1 {
		return errors.Newf("multiple stdin-backed file settings use @- (%s); only one @- source is allowed",
			strings.Join(fromStdin, ", "))
	}
	return nil
}

// stringToStringSliceHookFunc splits comma-separated env values such as
// ALLOWED_ORIGINS, dropping blanks.
func stringToStringSliceHookFunc(sep string) mapstructure.DecodeHookFunc {
	return func(from, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]string(nil)) {
			return data, nil
		}
		out := []string{}
		for _, part := range strings.Split(data.(string), sep) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
}
