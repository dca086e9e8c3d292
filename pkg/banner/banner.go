package banner

import (
	"fmt"
	"time"

	"pairchat/pkg/config"
)

const banner = `
██████╗  █████╗ ██╗██████╗  ██████╗██╗  ██╗ █████╗ ████████╗
██╔══██╗██╔══██╗██║██╔══██╗██╔════╝██║  ██║██╔══██╗╚══██╔══╝
██████╔╝███████║██║██████╔╝██║     ███████║███████║   ██║
██╔═══╝ ██╔══██║██║██╔══██╗██║     ██╔══██║██╔══██║   ██║
██║     ██║  ██║██║██║  ██║╚██████╗██║  ██║██║  ██║   ██║
╚═╝     ╚═╝  ╚═╝╚═╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝
`

// PrintWithEff prints the startup banner using an EffectiveConfigResult so
// runtime context (addr, db path, config source, key material) shows up in
// one place.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Storage.DBPath
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config: %s\n", src)

	fmt.Println("\n== Examples ===================================================")
	fmt.Println("curl -X POST 'http://<host>:<port>/v1/users/sync' -d '{\"external_key\": \"clerk|abc\", \"name\": \"Ada\"}'")
	fmt.Println("curl -X POST 'http://<host>:<port>/v1/conversations' -d '{\"user_a\": \"<id>\", \"user_b\": \"<id>\"}'")
	fmt.Println("curl 'http://<host>:<port>/v1/sidebar'")

	fmt.Println("\n== Production? =================================================")
	be := 0
	fe := 0
	ak := 0
	if eff.Config != nil {
		be = len(eff.Config.Security.APIKeys.Backend)
		fe = len(eff.Config.Security.APIKeys.Frontend)
		ak = len(eff.Config.Security.APIKeys.Admin)
	}
	if be > 0 {
		fmt.Printf("- Backend API keys: OK (%d)\n", be)
	} else {
		fmt.Println("- Backend API keys: MISSING (required for backend services)")
	}
	if fe > 0 {
		fmt.Printf("- Frontend API keys: OK (%d)\n", fe)
	} else {
		fmt.Println("- Frontend API keys: MISSING (required for client access)")
	}
	if ak > 0 {
		fmt.Printf("- Admin API keys: OK (%d)\n", ak)
	} else {
		fmt.Println("- Admin API keys: MISSING (required for admin tooling)")
	}

	tlsOK := eff.Config != nil && eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != ""
	if tlsOK {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}

	if eff.DBPath != "" {
		fmt.Printf("- DB Path: %s\n", eff.DBPath)
	} else {
		fmt.Println("- DB Path: not set (use --db or PAIRCHAT_DB_PATH)")
	}

	timeout := 60 * time.Second
	if eff.Config != nil && eff.Config.Presence.OnlineTimeout.Duration() > 0 {
		timeout = eff.Config.Presence.OnlineTimeout.Duration()
	}
	fmt.Printf("- Presence timeout: %s\n", timeout)

	if eff.Config != nil && eff.Config.Maintenance.Enabled {
		if eff.Config.Maintenance.Cron != "" {
			fmt.Printf("- Maintenance: enabled (cron=%s)\n", eff.Config.Maintenance.Cron)
		} else {
			fmt.Println("- Maintenance: enabled")
		}
	} else {
		fmt.Println("- Maintenance: disabled")
	}

	fmt.Println("\n== Logs: =================================================")
}
