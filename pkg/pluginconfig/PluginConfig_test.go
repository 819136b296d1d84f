package pluginconfig_test

import (
	"io/ioutil"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wostzone/accessmanager-go/pkg/pluginconfig"
)

const testConfigYaml = `
logLevel: debug
storageFolder: /var/lib/homeassistant
mqttAddress: mqtt.local
mqttPassword: changeme
httpAddress: 127.0.0.1
adminUsers:
  - alice
`

func TestCreateDefaultPluginConfig(t *testing.T) {
	config := pluginconfig.CreateDefaultPluginConfig("/tmp/apphome")
	assert.Equal(t, "/tmp/apphome", config.Home)
	assert.Equal(t, "/tmp/apphome", config.StorageFolder)
	assert.Equal(t, "warning", config.Loglevel)
	assert.Equal(t, pluginconfig.DefaultMqttPort, config.MqttPort)
	assert.Equal(t, pluginconfig.DefaultHTTPPort, config.HTTPPort)
}

func TestLoadConfig(t *testing.T) {
	folder, err := ioutil.TempDir("", "accessmanager-config-")
	require.NoError(t, err)
	defer os.RemoveAll(folder)
	configFile := path.Join(folder, pluginconfig.ConfigName)
	require.NoError(t, ioutil.WriteFile(configFile, []byte(testConfigYaml), 0600))

	config := pluginconfig.CreateDefaultPluginConfig(folder)
	err = pluginconfig.LoadConfig(configFile, config)
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Loglevel)
	assert.Equal(t, "/var/lib/homeassistant", config.StorageFolder)
	assert.Equal(t, "mqtt.local", config.MqttAddress)
	assert.Equal(t, pluginconfig.DefaultMqttPort, config.MqttPort, "Defaults survive a partial file")
	assert.Equal(t, []string{"alice"}, config.AdminUsers)
}

func TestLoadConfigMissingFile(t *testing.T) {
	config := pluginconfig.CreateDefaultPluginConfig("/tmp/apphome")
	err := pluginconfig.LoadConfig("/tmp/doesnotexist/accessmanager.yaml", config)
	assert.Error(t, err)
}

func TestLoadConfigBadYaml(t *testing.T) {
	folder, err := ioutil.TempDir("", "accessmanager-config-")
	require.NoError(t, err)
	defer os.RemoveAll(folder)
	configFile := path.Join(folder, pluginconfig.ConfigName)
	require.NoError(t, ioutil.WriteFile(configFile, []byte("logLevel: [unclosed"), 0600))

	config := pluginconfig.CreateDefaultPluginConfig(folder)
	err = pluginconfig.LoadConfig(configFile, config)
	assert.Error(t, err)
}

func TestSetLogging(t *testing.T) {
	folder, err := ioutil.TempDir("", "accessmanager-logging-")
	require.NoError(t, err)
	defer os.RemoveAll(folder)

	logFile := path.Join(folder, "accessmanager.log")
	err = pluginconfig.SetLogging("info", logFile)
	assert.NoError(t, err)
	assert.FileExists(t, logFile)
}

func TestSetLoggingBadFile(t *testing.T) {
	err := pluginconfig.SetLogging("debug", "/nofolder/cantcreate.log")
	assert.Error(t, err)
}
