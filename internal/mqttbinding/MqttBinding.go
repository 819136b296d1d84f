// Package mqttbinding with the message bus command channel of the access
// manager.
// Commands arrive as JSON envelopes on the plugin request topic and the
// response, carrying the echoed correlation id, is published on the response
// topic. The hub broker restricts the request topic to administrators, so a
// decoded request is handled as an administrator command.
package mqttbinding

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/wostzone/accessmanager-go/internal/accessservice"
	"github.com/wostzone/accessmanager-go/pkg/accessapi"
)

// Command topics on the hub message bus
const (
	// TopicRequest carries inbound command envelopes
	TopicRequest = "plugins/accessmanager/request"
	// TopicResponse carries the command responses
	TopicResponse = "plugins/accessmanager/response"
)

// qos 1 so commands survive a short broker reconnect
const commandQos = 1

// MqttBinding connects the command service to the hub message bus
type MqttBinding struct {
	clientID      string
	hostPort      string
	timeout       int // connection timeout in seconds, 0 is indefinite
	tlsCACertFile string
	service       *accessservice.AccessService

	pahoClient pahomqtt.Client
	mutex      *sync.Mutex
}

// Start connects to the message bus and subscribes to the request topic.
// If no connection is possible this keeps retrying with increasing backoff
// until the timeout expires, as the bus may still be starting up.
func (binding *MqttBinding) Start(userName string, password string) error {
	brokerURL := fmt.Sprintf("tls://%s/", binding.hostPort)
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(binding.clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetCleanSession(true)
	opts.SetOnConnectHandler(func(client pahomqtt.Client) {
		logrus.Infof("MqttBinding.onConnect: connected to %s as %s", brokerURL, binding.clientID)
		// paho drops subscriptions on disconnect, resubscribe on every connect
		client.Subscribe(TopicRequest, commandQos, binding.onRequest)
	})
	opts.SetConnectionLostHandler(func(client pahomqtt.Client, err error) {
		logrus.Warningf("MqttBinding.onConnectionLost: disconnected from %s: %s", brokerURL, err)
	})

	var rootCA *x509.CertPool
	if binding.tlsCACertFile != "" {
		rootCA = x509.NewCertPool()
		caCertPEM, err := ioutil.ReadFile(binding.tlsCACertFile)
		if err != nil {
			logrus.Errorf("MqttBinding.Start: unable to read CA certificate: %s. Ignored.", err)
		}
		rootCA.AppendCertsFromPEM(caCertPEM)
	}
	opts.SetTLSConfig(&tls.Config{
		InsecureSkipVerify: rootCA == nil,
		RootCAs:            rootCA,
	})
	opts.Username = userName
	opts.Password = password

	binding.pahoClient = pahomqtt.NewClient(opts)

	retryDelaySec := 1
	retryDuration := 0
	var err error
	for binding.timeout == 0 || retryDuration < binding.timeout {
		token := binding.pahoClient.Connect()
		token.Wait()
		err = token.Error()
		if err == nil {
			return nil
		}
		logrus.Errorf("MqttBinding.Start: connecting to %s failed: %s. Retrying in %d seconds.",
			brokerURL, err, retryDelaySec)
		time.Sleep(time.Duration(retryDelaySec) * time.Second)
		retryDuration += retryDelaySec
		if retryDelaySec < 120 {
			retryDelaySec++
		}
	}
	return err
}

// Stop disconnects from the message bus
func (binding *MqttBinding) Stop() {
	binding.mutex.Lock()
	defer binding.mutex.Unlock()
	if binding.pahoClient != nil {
		logrus.Warningf("MqttBinding.Stop: disconnecting client %s", binding.clientID)
		binding.pahoClient.Disconnect(1000)
		binding.pahoClient = nil
	}
}

// onRequest decodes a command envelope, dispatches it and publishes the
// response with the echoed correlation id
func (binding *MqttBinding) onRequest(client pahomqtt.Client, message pahomqtt.Message) {
	request := &accessapi.CommandRequest{}
	err := json.Unmarshal(message.Payload(), request)

	var response *accessapi.CommandResponse
	if err != nil {
		logrus.Warningf("MqttBinding.onRequest: message on '%s' is not a command envelope: %s", message.Topic(), err)
		response = &accessapi.CommandResponse{
			ID:    request.ID,
			Type:  "result",
			Error: accessapi.NewCommandError(accessapi.ErrorCodeInvalidRequest, "request is not valid JSON"),
		}
	} else {
		response = binding.service.HandleCommand(request, true)
	}

	payload, _ := json.Marshal(response)
	token := client.Publish(TopicResponse, commandQos, false, payload)
	token.Wait()
	if token.Error() != nil {
		logrus.Errorf("MqttBinding.onRequest: unable to publish response for command %d: %s", request.ID, token.Error())
	}
}

// NewMqttBinding creates the message bus binding for the command service
//  clientID to connect as, typically the plugin instance name
//  hostPort address and TLS port of the message bus
//  caCertFile broker CA certificate, "" to skip server verification
//  timeoutSec connection retry limit in seconds, 0 to retry indefinitely
func NewMqttBinding(clientID string, hostPort string, caCertFile string, timeoutSec int,
	service *accessservice.AccessService) *MqttBinding {

	return &MqttBinding{
		clientID:      clientID,
		hostPort:      hostPort,
		tlsCACertFile: caCertFile,
		timeout:       timeoutSec,
		service:       service,
		mutex:         &sync.Mutex{},
	}
}
