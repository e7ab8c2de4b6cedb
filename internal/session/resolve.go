package session

import "github.com/matheus3301/mailsync/internal/config"

const DefaultSessionName = "main"

// Resolve determines the active session name using precedence:
// 1. flagOverride (--session flag)
// 2. config.toml default_session
// 3. "main"
func Resolve(flagOverride string) string {
	cfg, err := config.LoadOrDefault(ConfigPath())
	if err != nil {
		cfg = nil
	}
	return ResolveFrom(flagOverride, cfg)
}

// ResolveFrom is Resolve against an already loaded config. cfg may be nil.
func ResolveFrom(flagOverride string, cfg *config.Config) string {
	if flagOverride != "" {
		return flagOverride
	}
	if cfg != nil && cfg.DefaultSession != "" {
		return cfg.DefaultSession
	}
	return DefaultSessionName
}
