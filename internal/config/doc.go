// Package config provides loading and environment overlay for ledger
// runtime configuration. It exposes a Default() baseline, file loading
// by extension (JSON, TOML, YAML) and a LEDGER_* environment overlay.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/ledger.toml"); err == nil {
//	    cfg = fileCfg
//	}
//	if err := config.FromEnv(&cfg); err != nil {
//	    return err
//	}
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
package config
