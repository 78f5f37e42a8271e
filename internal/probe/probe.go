// Package probe reports whether the service's dependencies are reachable. It
// backs both the gRPC health service and the HTTP /healthz endpoint.
package probe

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the gRPC health service name for the whole process.
const ServiceName = "learnhub.payments"

// Pinger is any dependency that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Checker pings every registered dependency on each check. Results are not
// cached; a probe is cheap next to the traffic it guards.
type Checker struct {
	healthpb.UnimplementedHealthServer

	deps    map[string]Pinger
	timeout time.Duration
	logger  *slog.Logger
}

// NewChecker returns a Checker over deps, keyed by dependency name. A zero
// timeout defaults to two seconds per dependency.
func NewChecker(deps map[string]Pinger, timeout time.Duration, logger *slog.Logger) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{deps: deps, timeout: timeout, logger: logger}
}

// Report is the result of one probe.
type Report struct {
	Healthy bool
	// Failed maps each unreachable dependency to its error text.
	Failed map[string]string
}

// Run pings every dependency and reports which ones failed.
func (c *Checker) Run(ctx context.Context) Report {
	rep := Report{Healthy: true}
	for _, name := range c.names() {
		pctx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.deps[name].Ping(pctx)
		cancel()
		if err != nil {
			if rep.Failed == nil {
				rep.Failed = make(map[string]string)
			}
			rep.Failed[name] = err.Error()
			rep.Healthy = false
			c.logger.Warn("health check failed", "dependency", name, "error", err)
		}
	}
	return rep
}

// Check implements grpc.health.v1.Health. The empty service and ServiceName
// cover every dependency; a dependency name checks just that one.
func (c *Checker) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	switch svc := req.GetService(); svc {
	case "", ServiceName:
		return response(c.Run(ctx).Healthy), nil
	default:
		dep, ok := c.deps[svc]
		if !ok {
			return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
		}
		pctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return response(dep.Ping(pctx) == nil), nil
	}
}

// Register attaches c to a gRPC server.
func Register(s *grpc.Server, c *Checker) {
	healthpb.RegisterHealthServer(s, c)
}

func (c *Checker) names() []string {
	names := make([]string, 0, len(c.deps))
	for n := range c.deps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func response(ok bool) *healthpb.HealthCheckResponse {
	if ok {
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}
}
