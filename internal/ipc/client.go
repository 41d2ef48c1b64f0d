package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
)

func dial(path string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(
		"unix://"+path,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon %q: %w", path, err)
	}
	return conn, nil
}

// Send makes one request/response call to the daemon with a deadline.
func Send(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	if err := checkSocket(ctx, path, timeout); err != nil {
		return Response{}, err
	}

	in, err := toStruct(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	conn, err := dial(path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := &structpb.Struct{}
	if err := conn.Invoke(callCtx, callMethod, in, out); err != nil {
		return Response{}, fmt.Errorf("call daemon: %w", err)
	}

	var resp Response
	if err := fromStruct(out, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// Probe checks whether a responsive owner is currently listening on path.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	if err := checkSocket(ctx, path, timeout); err != nil {
		if isSocketMissing(err) || isConnectionRefused(err) {
			return false, nil
		}
		return false, fmt.Errorf("probe socket: %w", err)
	}

	conn, err := dial(path)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(probeCtx, &healthpb.HealthCheckRequest{Service: serviceName})
	if err != nil {
		return false, fmt.Errorf("probe socket: %w", err)
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

// checkSocket dials the raw socket so missing and refused sockets surface as OS errors
// rather than as gRPC Unavailable statuses.
func checkSocket(ctx context.Context, path string, timeout time.Duration) error {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return err
	}
	return conn.Close()
}

// isSocketMissing reports absent-socket failures.
func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist)
}

// isConnectionRefused reports no-listener failures.
func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}

// IsUnavailable reports whether err means no daemon is listening.
func IsUnavailable(err error) bool {
	return isSocketMissing(err) || isConnectionRefused(err)
}
