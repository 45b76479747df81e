// Package radiustest provides a deterministic RADIUS server for tests and
// local development.
package radiustest

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
)

// Mode selects how the server answers.
type Mode string

const (
	// ModeUsers accepts known username/token pairs and rejects the rest.
	ModeUsers Mode = "users"

	// ModeReject rejects every request.
	ModeReject Mode = "reject"

	// ModeChallenge answers every request with an Access-Challenge.
	ModeChallenge Mode = "challenge"

	// ModeDrop never answers, so clients time out.
	ModeDrop Mode = "drop"
)

// ParseMode maps a name to a Mode. An empty name is ModeUsers.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeUsers, nil
	case ModeUsers, ModeReject, ModeChallenge, ModeDrop:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// ParseUsers parses "alice:123456,bob:654321" into a username to token map.
func ParseUsers(s string) (map[string]string, error) {
	users := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		user, token, ok := strings.Cut(pair, ":")
		if !ok || user == "" {
			return nil, fmt.Errorf("invalid user entry %q, want user:token", pair)
		}
		users[user] = token
	}
	return users, nil
}

// Server answers Access-Requests according to its Mode.
type Server struct {
	Mode  Mode
	Users map[string]string

	// Reply is added as Reply-Message to every Access-Accept when set.
	Reply string

	requests atomic.Int64
}

// Requests returns the number of Access-Requests received.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// ServeRADIUS implements radius.Handler.
func (s *Server) ServeRADIUS(w radius.ResponseWriter, r *radius.Request) {
	s.requests.Add(1)

	switch s.Mode {
	case ModeDrop:
		return
	case ModeReject:
		w.Write(r.Response(radius.CodeAccessReject))
		return
	case ModeChallenge:
		w.Write(r.Response(radius.CodeAccessChallenge))
		return
	}

	user := rfc2865.UserName_GetString(r.Packet)
	token := rfc2865.UserPassword_GetString(r.Packet)
	want, ok := s.Users[user]
	if !ok || token != want {
		w.Write(r.Response(radius.CodeAccessReject))
		return
	}

	resp := r.Response(radius.CodeAccessAccept)
	if s.Reply != "" {
		rfc2865.ReplyMessage_AddString(resp, s.Reply)
	}
	w.Write(resp)
}

// Listener is a running Server bound to a UDP socket.
type Listener struct {
	*Server
	pc     net.PacketConn
	packet *radius.PacketServer
}

// Listen starts srv on addr (for example "127.0.0.1:0") with the given
// shared secret.
func Listen(addr, secret string, srv *Server) (*Listener, error) {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}
	l := &Listener{
		Server: srv,
		pc:     pc,
		packet: &radius.PacketServer{
			Handler:      srv,
			SecretSource: radius.StaticSecretSource([]byte(secret)),
		},
	}
	go l.packet.Serve(pc)
	return l, nil
}

// Addr returns the bound host:port.
func (l *Listener) Addr() string {
	return l.pc.LocalAddr().String()
}

// Close stops the server.
func (l *Listener) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return l.packet.Shutdown(ctx)
}

// UnusedAddr returns a loopback UDP address nothing listens on. Requests
// sent there go unanswered (or fail with ICMP port unreachable).
func UnusedAddr() (string, error) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	addr := pc.LocalAddr().String()
	pc.Close()
	return addr, nil
}
