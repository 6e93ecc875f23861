package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	serverFlags := []string{"-a", "-t", "-j"}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "separate values",
			args: []string{"-a", ":8080", "-t", "15"},
			want: []string{"-a", ":8080", "-t", "15"},
		},
		{
			name: "equals form",
			args: []string{"-a=:9090", "-x=1"},
			want: []string{"-a=:9090"},
		},
		{
			name: "unknown flags and positionals dropped",
			args: []string{"-x", "1", "positional", "-j", "5"},
			want: []string{"-j", "5"},
		},
		{
			name: "flag at end without value",
			args: []string{"-a"},
			want: []string{"-a"},
		},
		{
			name: "next flag is not a value",
			args: []string{"-a", "-t", "15"},
			want: []string{"-a", "-t", "15"},
		},
		{
			name: "negative number is a value",
			args: []string{"-t", "-1"},
			want: []string{"-t", "-1"},
		},
		{
			name: "double dash ends parsing",
			args: []string{"-a", ":1", "--", "-t", "3"},
			want: []string{"-a", ":1"},
		},
		{
			name: "double dash is never a value",
			args: []string{"-a", "--", "-t", "3"},
			want: []string{"-a"},
		},
		{
			name: "repeated flag kept in order",
			args: []string{"-j", "1", "-j", "2"},
			want: []string{"-j", "1", "-j", "2"},
		},
		{
			name: "empty",
			args: nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, serverFlags))
		})
	}
}

func TestConfigPath(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "short", args: []string{"-c", "/etc/gophshare/server.json"}, want: "/etc/gophshare/server.json"},
		{name: "long with equals", args: []string{"-config=client.json", "-a", "http://x"}, want: "client.json"},
		{name: "absent", args: []string{"-a", ":8080"}, want: ""},
		{name: "last wins", args: []string{"-c", "1.json", "-config", "2.json"}, want: "2.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigPath(tt.args))
		})
	}
}
