package rpc

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const endpointEnvPrefix = "RPC_URL_"

// LoadRegistryFromEnv builds a registry from DefaultEndpoints overridden by
// every RPC_URL_<chainID> variable found in environ (usually os.Environ()).
func LoadRegistryFromEnv(environ []string) *Registry {
	registry := NewRegistry(DefaultEndpoints)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, endpointEnvPrefix) {
			continue
		}
		chainID, err := strconv.ParseUint(strings.TrimPrefix(name, endpointEnvPrefix), 10, 64)
		if err != nil {
			log.Warn().Str("name", name).Msg("ignoring rpc endpoint variable with invalid chain id")
			continue
		}
		registry.Set(chainID, value)
	}
	return registry
}

// LoadRegistry is LoadRegistryFromEnv for the process environment.
func LoadRegistry() *Registry {
	return LoadRegistryFromEnv(os.Environ())
}
