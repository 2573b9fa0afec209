package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileService_IsFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	fs := NewFileService()

	exists, err := fs.IsFileExists(path)
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = fs.IsFileExists(filepath.Join(dir, "missing.txt"))
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestFileService_ReadFileRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, []byte("pem-bytes"), 0600))

	data, err := NewFileService().ReadFileRaw(path)
	assert.NoError(t, err)
	assert.Equal(t, []byte("pem-bytes"), data)

	_, err = NewFileService().ReadFileRaw(path + ".missing")
	assert.Error(t, err)
}

func TestFileService_ReadYamlFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "mqtt:\n  broker_url: tcp://localhost:1883\n  client_id: agent\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	var out struct {
		MQTT struct {
			BrokerURL string `yaml:"broker_url"`
			ClientID  string `yaml:"client_id"`
		} `yaml:"mqtt"`
	}

	err := NewFileService().ReadYamlFile(path, &out)
	assert.NoError(t, err)
	assert.Equal(t, "tcp://localhost:1883", out.MQTT.BrokerURL)
	assert.Equal(t, "agent", out.MQTT.ClientID)
}
