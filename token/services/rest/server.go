/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
)

const shutdownTimeout = 10 * time.Second

// Server serves an http.Handler. It is an ifrit.Runner.
type Server struct {
	address string
	handler http.Handler
	addr    net.Addr
	ready   chan struct{}
}

func NewServer(address string, handler http.Handler) *Server {
	return &Server{address: address, handler: handler, ready: make(chan struct{})}
}

// Addr returns the address the server listens on, once ready.
// It returns nil if the server failed to start.
func (s *Server) Addr() net.Addr {
	<-s.ready
	return s.addr
}

func (s *Server) Run(signals <-chan os.Signal, ready chan<- struct{}) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		close(s.ready)
		return errors.Wrapf(err, "failed listening on [%s]", s.address)
	}
	s.addr = listener.Addr()
	close(s.ready)

	server := &http.Server{Handler: s.handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()
	logger.Infof("serving on [%s]", s.addr)
	close(ready)

	select {
	case sig := <-signals:
		logger.Infof("received [%s], shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(ctx)
	case err := <-errCh:
		return errors.Wrapf(err, "server stopped")
	}
}
