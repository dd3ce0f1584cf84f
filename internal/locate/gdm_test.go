// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package locate

import "testing"

func TestParseGDMResponse(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    GDMServer
		ok      bool
	}{
		{
			name: "full announcement",
			payload: "HTTP/1.0 200 OK\r\n" +
				"Resource-Identifier: abc123\r\n" +
				"Name: Living Room\r\n" +
				"Port: 32401\r\n" +
				"Content-Type: plex/media-server\r\n",
			want: GDMServer{MachineID: "abc123", Name: "Living Room", Address: "192.168.1.10", Port: 32401},
			ok:   true,
		},
		{
			name: "default port when absent",
			payload: "HTTP/1.0 200 OK\r\n" +
				"Resource-Identifier: abc123\r\n" +
				"Name: Den\r\n",
			want: GDMServer{MachineID: "abc123", Name: "Den", Address: "192.168.1.10", Port: 32400},
			ok:   true,
		},
		{
			name:    "not an OK response",
			payload: "HTTP/1.0 404 Not Found\r\nResource-Identifier: abc\r\n",
			ok:      false,
		},
		{
			name:    "missing identifier",
			payload: "HTTP/1.0 200 OK\r\nName: Den\r\nPort: 32400\r\n",
			ok:      false,
		},
		{
			name: "invalid port ignored",
			payload: "HTTP/1.0 200 OK\r\n" +
				"Resource-Identifier: abc123\r\n" +
				"Port: nonsense\r\n",
			want: GDMServer{MachineID: "abc123", Address: "192.168.1.10", Port: 32400},
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseGDMResponse(tt.payload, "192.168.1.10")
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got != tt.want {
				t.Errorf("parseGDMResponse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestGDMServerURL(t *testing.T) {
	s := GDMServer{Address: "192.168.1.10", Port: 32400}
	if got := s.URL(); got != "http://192.168.1.10:32400" {
		t.Errorf("URL() = %q, want http://192.168.1.10:32400", got)
	}
}
