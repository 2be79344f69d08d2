package rv64core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidateRejectsBadMemory(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c Config) Config
	}{
		{"zero mem size", func(c Config) Config { c.MemSize = 0; return c }},
		{"unaligned mem size", func(c Config) Config { c.MemSize = 7; return c }},
		{"system start inside primary region", func(c Config) Config {
			c.SystemStart = c.MemSize - 8
			return c
		}},
		{"system start overlapping playground", func(c Config) Config {
			c.SystemStart = PlaygroundBase
			return c
		}},
		{"zero max mem", func(c Config) Config { c.MaxMem = 0; return c }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.mutate(DefaultConfig())
			require.Error(t, cfg.Validate())
		})
	}
}
