// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package locate

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// GDM (G'Day Mate) is Plex's local discovery protocol: a UDP multicast
// M-SEARCH to 239.0.0.250:32414 answered by each server with an
// HTTP-ish header block.
const (
	gdmMulticastAddr = "239.0.0.250:32414"
	gdmSearchMessage = "M-SEARCH * HTTP/1.1\r\n"
	gdmDefaultPort   = 32400
)

// GDMServer is one server announcement received during discovery.
type GDMServer struct {
	MachineID string
	Name      string
	Address   string
	Port      int
}

// URL returns the direct HTTP access URL for the announced server.
func (s GDMServer) URL() string {
	return fmt.Sprintf("http://%s:%d", s.Address, s.Port)
}

// DiscoverGDM broadcasts one discovery round and collects answers
// until timeout elapses or ctx is cancelled. Duplicate announcements
// from the same machine are collapsed.
func DiscoverGDM(ctx context.Context, timeout time.Duration) ([]GDMServer, error) {
	raddr, err := net.ResolveUDPAddr("udp4", gdmMulticastAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve multicast address: %w", err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero})
	if err != nil {
		return nil, fmt.Errorf("open discovery socket: %w", err)
	}
	defer conn.Close()

	if _, err := conn.WriteToUDP([]byte(gdmSearchMessage), raddr); err != nil {
		return nil, fmt.Errorf("send discovery request: %w", err)
	}

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	seen := make(map[string]bool)
	var servers []GDMServer
	buf := make([]byte, 4096)

	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				break
			}
			return servers, fmt.Errorf("read discovery response: %w", err)
		}

		server, ok := parseGDMResponse(string(buf[:n]), addr.IP.String())
		if !ok || seen[server.MachineID] {
			continue
		}
		seen[server.MachineID] = true
		servers = append(servers, server)

		if ctx.Err() != nil {
			break
		}
	}

	return servers, nil
}

// parseGDMResponse extracts a server announcement from one discovery
// reply. The reply's source address is the server address; the header
// block carries identity, name, and port.
func parseGDMResponse(payload, sourceAddr string) (GDMServer, bool) {
	if !strings.Contains(payload, "200 OK") {
		return GDMServer{}, false
	}

	server := GDMServer{
		Address: sourceAddr,
		Port:    gdmDefaultPort,
	}

	for _, line := range strings.Split(payload, "\r\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "resource-identifier":
			server.MachineID = value
		case "name":
			server.Name = value
		case "port":
			if port, err := strconv.Atoi(value); err == nil && port > 0 {
				server.Port = port
			}
		}
	}

	if server.MachineID == "" {
		return GDMServer{}, false
	}
	return server, true
}
