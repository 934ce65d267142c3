package envir

import (
	"os"
	"strings"
)

func GetValueOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// AutoRefreshEnabled reports whether the local-install auto-rebuild hint is
// active. Only 0/false/no disable it; unset means enabled.
func AutoRefreshEnabled() bool {
	switch strings.ToLower(os.Getenv(NxAutoRefresh)) {
	case "0", "false", "no":
		return false
	}
	return true
}

func IsDebugEnabled() bool {
	v, ok := os.LookupEnv(NxDebug)
	return ok && v != "0" && v != "false"
}

func NoColorRequested() bool {
	_, ok := os.LookupEnv(NoColor)
	return ok
}
