// Package grpc hosts the standard gRPC health service operators probe to
// judge hub readiness.
package grpc

import (
	"errors"
	"fmt"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer hosts the gRPC health service on its own listener.
type HealthServer struct {
	listener net.Listener
	server   *gogrpc.Server
	health   *health.Server
	serveErr chan error
	logf     func(string, ...any)
}

// ServeHealth exposes the gRPC health service on addr and reports SERVING
// until Stop runs. The logf callback receives lifecycle lines; nil silences
// them.
func ServeHealth(addr string, logf func(string, ...any)) (*HealthServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen health on %s: %w", addr, err)
	}

	grpcServer := gogrpc.NewServer(gogrpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	h := &HealthServer{
		listener: listener,
		server:   grpcServer,
		health:   healthServer,
		serveErr: make(chan error, 1),
		logf:     logf,
	}
	go func() {
		h.serveErr <- grpcServer.Serve(listener)
	}()
	if logf != nil {
		logf("gRPC health listening on %s", listener.Addr())
	}
	return h, nil
}

// Addr returns the bound listener address.
func (h *HealthServer) Addr() string {
	if h == nil || h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// Stop marks the service NOT_SERVING and drains the server.
func (h *HealthServer) Stop() {
	if h == nil {
		return
	}
	h.health.Shutdown()
	h.server.GracefulStop()
	if err := <-h.serveErr; err != nil && !errors.Is(err, gogrpc.ErrServerStopped) {
		if h.logf != nil {
			h.logf("serve gRPC health: %v", err)
		}
	}
}
