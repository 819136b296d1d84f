// Package pluginconfig with the access manager plugin configuration
package pluginconfig

import (
	"io/ioutil"
	"os"
	"path"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// PluginID is the instance name of this plugin, used for the configuration
// filename and the command topics
const PluginID = "accessmanager"

// ConfigName is the configuration file name, located in {home}/config
const ConfigName = PluginID + ".yaml"

// Default ports of the command bindings
const (
	DefaultMqttPort = 8883
	DefaultHTTPPort = 9883
)

// PluginConfig with the access manager configuration parameters
type PluginConfig struct {
	// logging
	Loglevel string `yaml:"logLevel"` // debug, info, warning, error. Default is warning
	LogFile  string `yaml:"logFile"`  // plugin logging to file

	// Folders
	Home          string `yaml:"home"`          // application home directory. Default is parent of executable.
	StorageFolder string `yaml:"storageFolder"` // platform folder containing .storage. Default is {home}

	// message bus command binding
	MqttAddress  string `yaml:"mqttAddress,omitempty"`  // hostname or ip of the message bus. Empty disables the binding
	MqttPort     int    `yaml:"mqttPort,omitempty"`     // message bus TLS port
	MqttUser     string `yaml:"mqttUser,omitempty"`     // login name on the message bus. Default is the plugin ID
	MqttPassword string `yaml:"mqttPassword,omitempty"` // password on the message bus
	MqttTimeout  int    `yaml:"mqttTimeout,omitempty"`  // connection timeout in seconds. 0 for indefinite
	CaCertFile   string `yaml:"caCertFile,omitempty"`   // CA certificate for verifying the message bus

	// HTTP command binding
	HTTPAddress   string   `yaml:"httpAddress,omitempty"`   // listening address. Empty disables the binding
	HTTPPort      int      `yaml:"httpPort,omitempty"`      // listening port
	AdminUsers    []string `yaml:"adminUsers,omitempty"`    // login names accepted as administrators
	AdminPassword string   `yaml:"adminPassword,omitempty"` // shared secret for the admin endpoint login

	// companion helper that swaps the pending auth record into place
	CompanionScript string `yaml:"companionScript,omitempty"`
}

// CreateDefaultPluginConfig with default values.
// homeFolder is the application home; "" uses the parent of the binary, a
// relative path is resolved against the binary folder.
func CreateDefaultPluginConfig(homeFolder string) *PluginConfig {
	appBin, _ := os.Executable()
	binFolder := path.Dir(appBin)
	if homeFolder == "" {
		homeFolder = path.Dir(binFolder)
	} else if !path.IsAbs(homeFolder) {
		homeFolder = path.Join(binFolder, homeFolder)
	}
	config := &PluginConfig{
		Home:          homeFolder,
		StorageFolder: homeFolder,
		Loglevel:      "warning",
		LogFile:       path.Join(homeFolder, "logs/"+PluginID+".log"),
		MqttPort:      DefaultMqttPort,
		MqttTimeout:   20,
		HTTPPort:      DefaultHTTPPort,
	}
	return config
}

// LoadConfig loads the configuration from a yaml file into the given config.
// Returns nil if successful.
func LoadConfig(configFile string, config *PluginConfig) error {
	rawConfig, err := ioutil.ReadFile(configFile)
	if err != nil {
		logrus.Infof("LoadConfig: unable to load config file: %s", err)
		return err
	}
	logrus.Infof("LoadConfig: loaded config file '%s'", configFile)
	err = yaml.Unmarshal(rawConfig, config)
	if err != nil {
		logrus.Errorf("LoadConfig: error parsing config file '%s': %s", configFile, err)
		return err
	}
	return nil
}

// LoadCommandlineConfig loads the plugin configuration using the common
// commandline conventions:
//  - "-c"  specifies an alternative configuration file
//  - "--home" sets the home folder as the base of ./config and ./logs
//
// homeFolder overrides the default home folder. Leave empty to use the
// parent of the application binary. Intended for testing.
// A missing configuration file is not an error; defaults apply.
func LoadCommandlineConfig(homeFolder string) (*PluginConfig, error) {
	args := os.Args[1:]
	if homeFolder == "" {
		for index, arg := range args {
			if arg == "--home" || arg == "-home" {
				homeFolder = args[index+1]
				if !path.IsAbs(homeFolder) {
					cwd, _ := os.Getwd()
					homeFolder = path.Join(cwd, homeFolder)
				}
				break
			}
		}
	}
	config := CreateDefaultPluginConfig(homeFolder)
	configFile := path.Join(config.Home, "config", ConfigName)
	for index, arg := range args {
		if arg == "-c" {
			configFile = args[index+1]
			if !path.IsAbs(configFile) {
				configFile = path.Join(config.Home, configFile)
			}
			break
		}
	}
	logrus.Infof("Using %s as plugin config file", configFile)
	_ = LoadConfig(configFile, config)

	if !path.IsAbs(config.StorageFolder) {
		config.StorageFolder = path.Join(config.Home, config.StorageFolder)
	}
	return config, SetLogging(config.Loglevel, config.LogFile)
}
