package clientcli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sagarc03/rookery/clientcli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_WithDefaults(t *testing.T) {
	cfg := (&clientcli.Config{}).WithDefaults()
	assert.Equal(t, clientcli.DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, clientcli.DefaultBasePath, cfg.BasePath)

	custom := &clientcli.Config{Endpoint: "http://geo:8080", BasePath: "/geoserver/rest/resource"}
	assert.Equal(t, custom, custom.WithDefaults())
}

func TestConfig_CollectionURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  clientcli.Config
		want string
	}{
		{"defaults", clientcli.Config{}, "http://localhost:5708/resource"},
		{"trailing slashes", clientcli.Config{Endpoint: "http://h/", BasePath: "/rest/resource/"}, "http://h/rest/resource"},
		{"root mount", clientcli.Config{Endpoint: "http://h", BasePath: "/"}, "http://h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.CollectionURL())
		})
	}
}

func TestConfigFile_Profiles(t *testing.T) {
	cf := &clientcli.ConfigFile{}

	_, err := cf.GetProfile("")
	assert.ErrorIs(t, err, clientcli.ErrNoProfiles)

	require.NoError(t, cf.AddProfile(clientcli.Profile{Name: "local", Endpoint: "http://localhost:5708"}))
	require.NoError(t, cf.AddProfile(clientcli.Profile{Name: "prod", Endpoint: "https://geo.example.com"}))
	assert.ErrorIs(t, cf.AddProfile(clientcli.Profile{Name: "prod"}), clientcli.ErrProfileExists)

	p, err := cf.GetProfile("")
	require.NoError(t, err)
	assert.Equal(t, "local", p.Name, "first profile without a default")

	require.NoError(t, cf.SetDefault("prod"))
	p, err = cf.GetDefaultProfile()
	require.NoError(t, err)
	assert.Equal(t, "prod", p.Name)
	assert.ErrorIs(t, cf.SetDefault("ghost"), clientcli.ErrProfileNotFound)

	require.NoError(t, cf.UpdateProfile(clientcli.Profile{Name: "prod", Endpoint: "https://new", BasePath: "/rest/resource"}))
	p, err = cf.GetProfile("prod")
	require.NoError(t, err)
	assert.Equal(t, "/rest/resource", p.BasePath)
	assert.ErrorIs(t, cf.UpdateProfile(clientcli.Profile{Name: "ghost"}), clientcli.ErrProfileNotFound)

	assert.Equal(t, []string{"local", "prod"}, cf.ProfileNames())

	require.NoError(t, cf.RemoveProfile("local"))
	assert.ErrorIs(t, cf.RemoveProfile("local"), clientcli.ErrProfileNotFound)
	_, err = cf.GetProfile("local")
	assert.ErrorIs(t, err, clientcli.ErrProfileNotFound)
}

func TestConfigFile_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cli.yaml")

	cf := &clientcli.ConfigFile{Profiles: []clientcli.Profile{
		{Name: "local", Endpoint: "http://localhost:5708", Default: true},
		{Name: "geo", Endpoint: "http://geo:8080", BasePath: "/geoserver/rest/resource"},
	}}
	require.NoError(t, cf.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := clientcli.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, cf, loaded)

	_, err = clientcli.LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("profiles: [unclosed"), 0o600))
	_, err = clientcli.LoadConfigFile(bad)
	assert.ErrorContains(t, err, "parse config file")
}

func TestConfigFromProfile(t *testing.T) {
	assert.Equal(t, &clientcli.Config{}, clientcli.ConfigFromProfile(nil))
	assert.Equal(t,
		&clientcli.Config{Endpoint: "http://e", BasePath: "/b"},
		clientcli.ConfigFromProfile(&clientcli.Profile{Name: "x", Endpoint: "http://e", BasePath: "/b"}),
	)
}

func TestMergeConfig(t *testing.T) {
	merged := clientcli.MergeConfig(
		&clientcli.Config{Endpoint: "http://file", BasePath: "/file"},
		nil,
		&clientcli.Config{Endpoint: "http://env"},
		&clientcli.Config{BasePath: ""},
	)
	assert.Equal(t, &clientcli.Config{Endpoint: "http://env", BasePath: "/file"}, merged)
	assert.Equal(t, &clientcli.Config{}, clientcli.MergeConfig())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ROOKERY_ENDPOINT", "http://test.example.com")
	t.Setenv("ROOKERY_BASE_PATH", "/rest/resource")
	t.Setenv("ROOKERY_PROFILE", "prod")
	t.Setenv("ROOKERY_CLI_CONFIG", "/tmp/cli.yaml")

	cfg := clientcli.ConfigFromEnv()
	assert.Equal(t, "http://test.example.com", cfg.Endpoint)
	assert.Equal(t, "/rest/resource", cfg.BasePath)
	assert.Equal(t, "prod", clientcli.ProfileFromEnv())
	assert.Equal(t, "/tmp/cli.yaml", clientcli.ConfigPathFromEnv())
}
