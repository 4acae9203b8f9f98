package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"
)

const dialTimeout = 5 * time.Second

func isIPv6Literal(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && ip.To4() == nil
}

func isIPv4Literal(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && ip.To4() != nil
}

// CheckReachable opens a TCP connection to the backend host. Hostnames are
// tried over IPv6 first, then IPv4.
func (d *Dispatcher) CheckReachable(ctx context.Context) error {
	u, err := d.buildURL("/")
	if err != nil {
		return err
	}

	host, port := u.Hostname(), u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	addr := net.JoinHostPort(host, port)
	log := d.log.With("addr", addr)

	switch {
	case isIPv6Literal(host):
		return d.dial(ctx, log, "tcp6", addr)
	case isIPv4Literal(host):
		return d.dial(ctx, log, "tcp4", addr)
	}

	err6 := d.dial(ctx, log, "tcp6", addr)
	if err6 == nil {
		return nil
	}
	log.Debug("backend via IPv6 failed, trying IPv4", "error", err6)
	if err4 := d.dial(ctx, log, "tcp4", addr); err4 != nil {
		return fmt.Errorf("backend unreachable on IPv6 (%v) and IPv4: %w", err6, err4)
	}
	return nil
}

func (d *Dispatcher) dial(ctx context.Context, log *slog.Logger, network, addr string) error {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return &CustomError{Message: transportMessage(err), Err: err}
	}
	_ = conn.Close()
	log.Info("backend reachable", "network", network)
	return nil
}
