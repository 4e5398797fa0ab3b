package store

import (
	"net"
	"net/url"
	"strconv"

	"github.com/jcleary/barharvest/internal/config"
)

// BuildConnString assembles the PostgreSQL connection URL. Credentials go
// through net/url escaping, so passwords may carry any character.
func BuildConnString(cfg config.PostgresConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}
