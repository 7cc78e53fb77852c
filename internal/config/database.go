package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// DefaultCABundle is the CA bundle used for verified TLS when none is configured.
const DefaultCABundle = "/etc/ssl/certs/rds-global-bundle.pem"

// TLS modes accepted by database.tls.mode. They are passed to lib/pq as sslmode.
const (
	TLSModeDisable    = "disable"
	TLSModeRequire    = "require"
	TLSModeVerifyCA   = "verify-ca"
	TLSModeVerifyFull = "verify-full"
)

// DSN returns a lib/pq key=value connection string. A configured dsn is used
// as the base (postgres:// URLs are converted with pq.ParseURL) and TLS
// settings are appended unless the dsn already sets sslmode.
func (d *DatabaseConfig) DSN() (string, error) {
	if base := strings.TrimSpace(d.ConnectionString); base != "" {
		if isPostgresURL(base) {
			converted, err := pq.ParseURL(base)
			if err != nil {
				return "", fmt.Errorf("database.dsn is invalid: %w", err)
			}
			base = converted
		}
		if strings.Contains(base, "sslmode=") {
			return base, nil
		}
		params := d.tlsParams()
		if !strings.Contains(base, "connect_timeout=") {
			params = append(params, d.timeoutParams()...)
		}
		return joinParams(base, params), nil
	}

	params := []param{
		{"host", d.Host},
		{"port", strconv.Itoa(d.Port)},
		{"user", d.User},
	}
	if d.Password != "" {
		params = append(params, param{"password", d.Password})
	}
	if d.Database != "" {
		params = append(params, param{"dbname", d.Database})
	}
	params = append(params, d.tlsParams()...)
	params = append(params, d.timeoutParams()...)
	return joinParams("", params), nil
}

// Target describes the connection for logs without credentials.
func (d *DatabaseConfig) Target() string {
	if d.ConnectionString != "" {
		return "dsn"
	}
	return fmt.Sprintf("%s:%d/%s", d.Host, d.Port, d.Database)
}

type param struct {
	key   string
	value string
}

func (d *DatabaseConfig) tlsParams() []param {
	if d.TLS.Mode == "" {
		return nil
	}
	params := []param{{"sslmode", d.TLS.Mode}}
	if d.TLS.Mode == TLSModeDisable {
		return params
	}
	if ca := d.TLS.resolveCAFile(); ca != "" {
		params = append(params, param{"sslrootcert", ca})
	}
	if d.TLS.CertFile != "" && d.TLS.KeyFile != "" {
		params = append(params, param{"sslcert", d.TLS.CertFile}, param{"sslkey", d.TLS.KeyFile})
	}
	return params
}

// timeoutParams bounds connection establishment by the pool acquire timeout.
// lib/pq takes whole seconds.
func (d *DatabaseConfig) timeoutParams() []param {
	if d.Pool.AcquireTimeout <= 0 {
		return nil
	}
	secs := int(math.Ceil(d.Pool.AcquireTimeout.Seconds()))
	return []param{{"connect_timeout", strconv.Itoa(secs)}}
}

func joinParams(base string, params []param) string {
	var b strings.Builder
	b.WriteString(base)
	for _, p := range params {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(quoteParam(p.value))
	}
	return b.String()
}

// quoteParam quotes a value for a lib/pq key=value string.
func quoteParam(value string) string {
	if value != "" && !strings.ContainsAny(value, ` '\`) {
		return value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return "'" + escaped + "'"
}

func isPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// resolveCAFile returns the effective CA file path, checking env var indirection.
func (t *DatabaseTLSConfig) resolveCAFile() string {
	if t.CAFileEnv != "" {
		if path := os.Getenv(t.CAFileEnv); path != "" {
			return path
		}
	}
	return t.CAFile
}

// requiresCA reports whether the mode verifies the server certificate.
func (t *DatabaseTLSConfig) requiresCA() bool {
	return t.Mode == TLSModeVerifyCA || t.Mode == TLSModeVerifyFull
}
