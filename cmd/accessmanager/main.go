// Access manager plugin: per-group dashboard and view visibility on top of
// the platform authentication store.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/wostzone/accessmanager-go/internal/accessservice"
	"github.com/wostzone/accessmanager-go/internal/httpbinding"
	"github.com/wostzone/accessmanager-go/internal/mqttbinding"
	"github.com/wostzone/accessmanager-go/pkg/authstore"
	"github.com/wostzone/accessmanager-go/pkg/companion"
	"github.com/wostzone/accessmanager-go/pkg/dashboards"
	"github.com/wostzone/accessmanager-go/pkg/docstore"
	"github.com/wostzone/accessmanager-go/pkg/permstore"
	"github.com/wostzone/accessmanager-go/pkg/pluginconfig"
	"github.com/wostzone/accessmanager-go/pkg/registry"
	"github.com/wostzone/accessmanager-go/pkg/visibility"
	"github.com/wostzone/accessmanager-go/pkg/watcher"
)

func main() {
	config, err := pluginconfig.LoadCommandlineConfig("")
	if err != nil {
		logrus.Warningf("main: using default configuration: %s", err)
	}

	store := docstore.NewDocStore(config.StorageFolder)
	authStore := authstore.NewAuthStore(store)
	permStore := permstore.NewPermStore(store)
	catalog := dashboards.NewCatalog(store)
	reg := registry.NewRegistry(store)
	syncer := visibility.NewSyncer(authStore, permStore, catalog, store)
	service := accessservice.NewAccessService(authStore, permStore, catalog, reg, syncer)

	// the helper that swaps the pending auth record runs outside this process
	companion.EnsureRunning(config.CompanionScript)

	// bring the dashboards in line with the current assignments
	if updated, syncErr := syncer.SyncAll(); syncErr != nil {
		logrus.Errorf("main: initial sync failed: %s", syncErr)
	} else {
		logrus.Infof("main: initial sync updated %d dashboard(s)", updated)
	}

	// an external swap of the auth record changes entitlements everywhere
	authWatcher, err := watcher.WatchFile(store.FilePath(authstore.AuthPath), func() error {
		_, watchErr := syncer.SyncAll()
		return watchErr
	})
	if err == nil {
		defer authWatcher.Close()
	}

	var mqttBinding *mqttbinding.MqttBinding
	if config.MqttAddress != "" {
		mqttUser := config.MqttUser
		if mqttUser == "" {
			mqttUser = pluginconfig.PluginID
		}
		hostPort := fmt.Sprintf("%s:%d", config.MqttAddress, config.MqttPort)
		mqttBinding = mqttbinding.NewMqttBinding(pluginconfig.PluginID, hostPort,
			config.CaCertFile, config.MqttTimeout, service)
		if err = mqttBinding.Start(mqttUser, config.MqttPassword); err != nil {
			logrus.Errorf("main: message bus binding not started: %s", err)
			mqttBinding = nil
		}
	}

	var httpBinding *httpbinding.HttpBinding
	if config.HTTPAddress != "" {
		httpBinding = httpbinding.NewHttpBinding(config.HTTPAddress, config.HTTPPort,
			makeVerifier(config), makeAdminCheck(config), service)
		if err = httpBinding.Start(); err != nil {
			logrus.Errorf("main: HTTP binding not started: %s", err)
			httpBinding = nil
		}
	}

	if mqttBinding == nil && httpBinding == nil {
		logrus.Warningf("main: no command binding configured, only the file watcher is active")
	}
	logrus.Warningf("main: access manager running. Storage folder is %s", config.StorageFolder)

	// run until interrupted
	exitChannel := make(chan os.Signal, 1)
	signal.Notify(exitChannel, syscall.SIGINT, syscall.SIGTERM)
	<-exitChannel

	logrus.Warningf("main: access manager stopping")
	if mqttBinding != nil {
		mqttBinding.Stop()
	}
	if httpBinding != nil {
		httpBinding.Stop()
	}
}

// makeVerifier checks the admin endpoint login against the configured
// shared secret. Platform credential verification is not this plugin's job.
func makeVerifier(config *pluginconfig.PluginConfig) func(username, password string) bool {
	return func(username, password string) bool {
		if config.AdminPassword == "" {
			return false
		}
		return password == config.AdminPassword && isListed(config.AdminUsers, username)
	}
}

// makeAdminCheck tells whether an authenticated user is an administrator
func makeAdminCheck(config *pluginconfig.PluginConfig) func(userID string) bool {
	return func(userID string) bool {
		return isListed(config.AdminUsers, userID)
	}
}

func isListed(list []string, item string) bool {
	for _, entry := range list {
		if entry == item {
			return true
		}
	}
	return false
}
