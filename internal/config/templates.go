package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Trade Journal Configuration

[server]
host = "127.0.0.1"
port = 8080
read_timeout = "15s"
write_timeout = "30s"
shutdown_timeout = "10s"
# Browser origins allowed to call the API
cors_origins = ["http://localhost:3000"]
# Login/register requests per second per client, and burst size
rate_limit = 5.0
rate_burst = 10

[database]
# SQLite database file (defaults to journal.db in this directory)
# path = ""

[auth]
# Signing secret for access tokens, at least 32 characters.
# Prefer the JOURNAL_JWT_SECRET environment variable.
jwt_secret = ""
token_ttl = "24h"
bcrypt_cost = 12

[billing]
# Subscription expiry sweep, cron format with seconds
sweep_schedule = "0 0 * * * *"

[logging]
# debug, info, warn, error
level = "info"
json = false
file = true
max_size = 100
max_backups = 7
max_age = 30

[audit]
enabled = true
max_size = 50
max_backups = 30
max_age = 365
compress = true

[security]
# Reject notes and names that look like injection attempts
strict_validation = true
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, FileName)
	// The file may later hold the signing secret
	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
