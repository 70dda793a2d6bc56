package env_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustedworkshop/smokerig/internal/utils/env"
)

func TestParseSpecs(t *testing.T) {
	t.Setenv("FROM_HOST", "host-value")

	tests := map[string]struct {
		specs  []string
		expEnv map[string]string
		expErr bool
	}{
		"KEY=VALUE should parse": {
			specs:  []string{"FOO=bar"},
			expEnv: map[string]string{"FOO": "bar"},
		},
		"An empty value should be kept": {
			specs:  []string{"FOO="},
			expEnv: map[string]string{"FOO": ""},
		},
		"A value with an equals sign should keep everything after the first one": {
			specs:  []string{"DSN=host=db;port=5432"},
			expEnv: map[string]string{"DSN": "host=db;port=5432"},
		},
		"KEY should inherit from host": {
			specs:  []string{"FROM_HOST"},
			expEnv: map[string]string{"FROM_HOST": "host-value"},
		},
		"Later entries should override earlier ones": {
			specs:  []string{"FOO=one", "FOO=two"},
			expEnv: map[string]string{"FOO": "two"},
		},
		"Missing inherited var should fail": {
			specs:  []string{"DOES_NOT_EXIST"},
			expErr: true,
		},
		"Invalid key should fail": {
			specs:  []string{"1INVALID=value"},
			expErr: true,
		},
		"An empty spec should fail": {
			specs:  []string{""},
			expErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := env.ParseSpecs(tc.specs)

			if tc.expErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expEnv, got)
		})
	}
}

func TestMergeMaps(t *testing.T) {
	tests := map[string]struct {
		base     map[string]string
		override map[string]string
		expEnv   map[string]string
	}{
		"Override should win on collisions": {
			base:     map[string]string{"FOO": "base", "KEEP": "yes"},
			override: map[string]string{"FOO": "override"},
			expEnv:   map[string]string{"FOO": "override", "KEEP": "yes"},
		},
		"A nil base should take the override": {
			override: map[string]string{"FOO": "bar"},
			expEnv:   map[string]string{"FOO": "bar"},
		},
		"A nil override should keep the base": {
			base:   map[string]string{"FOO": "bar"},
			expEnv: map[string]string{"FOO": "bar"},
		},
		"Two nil maps should merge to an empty map": {
			expEnv: map[string]string{},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := env.MergeMaps(tc.base, tc.override)
			assert.Equal(t, tc.expEnv, got)
		})
	}
}

func TestSlice(t *testing.T) {
	tests := map[string]struct {
		env      map[string]string
		expSlice []string
	}{
		"Pairs should come out sorted by key": {
			env:      map[string]string{"B": "2", "A": "1", "C": "3"},
			expSlice: []string{"A=1", "B=2", "C=3"},
		},
		"An empty map should render as nil": {
			env: map[string]string{},
		},
		"A nil map should render as nil": {},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := env.Slice(tc.env)
			assert.Equal(t, tc.expSlice, got)
		})
	}
}
