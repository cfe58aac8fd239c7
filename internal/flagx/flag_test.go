package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-a", "localhost"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "flag with equals",
			args:         []string{"-config=alt.json", "-a", "localhost"},
			allowedFlags: []string{"-config"},
			want:         []string{"-config=alt.json"},
		},
		{
			name:         "value looking like a flag is not consumed",
			args:         []string{"-s", "-t", "5"},
			allowedFlags: []string{"-s", "-t"},
			want:         []string{"-s", "-t", "5"},
		},
		{
			name:         "stops at double dash",
			args:         []string{"-a", ":8080", "--", "-d", "dsn"},
			allowedFlags: []string{"-a", "-d"},
			want:         []string{"-a", ":8080"},
		},
		{
			name:         "double dash flags match single dash names",
			args:         []string{"--limit=7", "--access-secret", "v", "--other", "x"},
			allowedFlags: []string{"-limit", "-access-secret"},
			want:         []string{"--limit=7", "--access-secret", "v"},
		},
		{
			name:         "nothing allowed",
			args:         []string{"-x", "1"},
			allowedFlags: nil,
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "a.json", ConfigPath([]string{"-a", ":8080", "-c", "a.json"}))
	assert.Equal(t, "b.json", ConfigPath([]string{"-config=b.json"}))
	assert.Equal(t, "c.json", ConfigPath([]string{"--config", "c.json"}))
	assert.Equal(t, "", ConfigPath([]string{"-a", ":8080"}))
}
