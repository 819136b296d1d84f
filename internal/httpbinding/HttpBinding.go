// Package httpbinding with the HTTP command endpoint of the access manager.
// Commands are posted as JSON envelopes; the caller logs in first and sends
// the access token as a bearer token. Only administrators reach the command
// service. TLS termination is left to the hub's reverse proxy.
package httpbinding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/wostzone/accessmanager-go/internal/accessservice"
	"github.com/wostzone/accessmanager-go/pkg/accessapi"
)

// Endpoint paths
const (
	LoginPath   = "/auth/login"
	CommandPath = "/api/command"
)

// HttpBinding serves the command endpoint
type HttpBinding struct {
	address    string
	port       int
	service    *accessservice.AccessService
	jwtAuth    *JWTAuthenticator
	isAdmin    func(userID string) bool
	httpServer *http.Server
	router     *mux.Router
}

// Start the command endpoint in the background
func (binding *HttpBinding) Start() error {
	logrus.Infof("HttpBinding.Start: listening on %s:%d", binding.address, binding.port)
	binding.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", binding.address, binding.port),
		Handler: binding.router,
	}
	var err error
	go func() {
		err2 := binding.httpServer.ListenAndServe()
		if err2 != nil && err2 != http.ErrServerClosed {
			err = fmt.Errorf("HttpBinding.Start: ListenAndServe: %s", err2)
			logrus.Error(err)
		}
	}()
	// make sure the server is listening before continuing
	time.Sleep(time.Millisecond * 100)
	return err
}

// Stop the command endpoint and close its connections
func (binding *HttpBinding) Stop() {
	logrus.Infof("HttpBinding.Stop: stopping command endpoint")
	if binding.httpServer != nil {
		binding.httpServer.Shutdown(context.Background())
	}
}

// handleCommand authenticates the request, dispatches the command envelope
// and writes the response with the echoed correlation id
func (binding *HttpBinding) handleCommand(resp http.ResponseWriter, req *http.Request) {
	userID, match := binding.jwtAuth.AuthenticateRequest(req)
	if !match {
		resp.WriteHeader(http.StatusUnauthorized)
		return
	}

	request := &accessapi.CommandRequest{}
	err := json.NewDecoder(req.Body).Decode(request)
	if err != nil {
		logrus.Warningf("HttpBinding.handleCommand: request from %s is not a command envelope: %s",
			req.RemoteAddr, err)
		resp.WriteHeader(http.StatusBadRequest)
		return
	}

	response := binding.service.HandleCommand(request, binding.isAdmin(userID))
	resp.Header().Set("Content-Type", "application/json")
	payload, _ := json.Marshal(response)
	resp.Write(payload)
}

// NewHttpBinding creates the HTTP command endpoint.
//  address and port to listen on
//  verifyUsernamePassword validates login credentials (the platform's job)
//  isAdmin tells whether an authenticated user is an administrator
func NewHttpBinding(address string, port int,
	verifyUsernamePassword func(username, password string) bool,
	isAdmin func(userID string) bool,
	service *accessservice.AccessService) *HttpBinding {

	binding := &HttpBinding{
		address: address,
		port:    port,
		service: service,
		jwtAuth: NewJWTAuthenticator(nil, verifyUsernamePassword),
		isAdmin: isAdmin,
		router:  mux.NewRouter(),
	}
	binding.router.HandleFunc(LoginPath, binding.jwtAuth.HandleJWTLogin).Methods(http.MethodPost)
	binding.router.HandleFunc(CommandPath, binding.handleCommand).Methods(http.MethodPost)
	return binding
}
