package app

import (
	"fmt"
	"os"

	"pairchat/pkg/config"
)

// validateConfig performs quick, fail-fast validation of the effective
// configuration before starting long-running services. Keep checks light
// and focused so callers can surface user-friendly errors.
func validateConfig(eff config.EffectiveConfigResult) error {
	if eff.DBPath == "" {
		return fmt.Errorf("database path is empty: set --db flag, PAIRCHAT_DB_PATH env, or storage.db_path in config")
	}

	cert := eff.Config.Server.TLS.CertFile
	key := eff.Config.Server.TLS.KeyFile
	if (cert != "" && key == "") || (cert == "" && key != "") {
		return fmt.Errorf("incomplete TLS configuration: both server.tls.cert_file and server.tls.key_file must be set")
	}
	if cert != "" {
		if _, err := os.Stat(cert); err != nil {
			return fmt.Errorf("tls cert file not accessible: %w", err)
		}
		if _, err := os.Stat(key); err != nil {
			return fmt.Errorf("tls key file not accessible: %w", err)
		}
	}

	if t := eff.Config.Presence.OnlineTimeout.Duration(); t < 0 {
		return fmt.Errorf("presence.online_timeout must not be negative")
	}
	if sr := eff.Config.Telemetry.SampleRate; sr < 0 || sr > 1 {
		return fmt.Errorf("telemetry.sample_rate must be within [0,1]")
	}

	return nil
}
