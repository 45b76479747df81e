package radius

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"

	"github.com/Halvra/cas/pkg/failover"
)

const testSecret = "testing123"

// startRADIUS runs an in-process RADIUS server on a loopback UDP port and
// returns its address. It is shut down when the test ends.
func startRADIUS(t *testing.T, handler radius.HandlerFunc) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}

	server := &radius.PacketServer{
		Handler:      handler,
		SecretSource: radius.StaticSecretSource([]byte(testSecret)),
	}
	go server.Serve(pc)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	})

	return pc.LocalAddr().String()
}

// tokenHandler accepts user "alice" with token "123456" and rejects
// everything else.
func tokenHandler(w radius.ResponseWriter, r *radius.Request) {
	user := rfc2865.UserName_GetString(r.Packet)
	pass := rfc2865.UserPassword_GetString(r.Packet)

	if user != "alice" || pass != "123456" {
		w.Write(r.Response(radius.CodeAccessReject))
		return
	}

	resp := r.Response(radius.CodeAccessAccept)
	rfc2865.ReplyMessage_AddString(resp, "welcome alice")
	rfc2865.Class_AddString(resp, "staff")
	rfc2865.SessionTimeout_Set(resp, rfc2865.SessionTimeout(3600))
	rfc2865.FilterID_AddString(resp, "vpn-users")
	rfc2865.FramedIPAddress_Set(resp, net.IPv4(10, 0, 0, 42))
	w.Write(resp)
}

func TestClient_Accept(t *testing.T) {
	addr := startRADIUS(t, tokenHandler)
	c := New(Endpoint{Name: "primary", Address: addr, Secret: testSecret, Timeout: 2 * time.Second})

	out := c.Attempt(context.Background(), "alice", "123456")

	if out.Kind != failover.OutcomeAccepted {
		t.Fatalf("Kind = %s, want accepted (err: %v)", out.Kind, out.Err)
	}

	msgs, _ := out.Attributes[AttrReplyMessage].([]string)
	if len(msgs) != 1 || msgs[0] != "welcome alice" {
		t.Errorf("Reply-Message = %v, want [welcome alice]", out.Attributes[AttrReplyMessage])
	}
	classes, _ := out.Attributes[AttrClass].([]string)
	if len(classes) != 1 || classes[0] != "staff" {
		t.Errorf("Class = %v, want [staff]", out.Attributes[AttrClass])
	}
	if got, _ := out.Attributes[AttrSessionTimeout].(uint32); got != 3600 {
		t.Errorf("Session-Timeout = %v, want 3600", out.Attributes[AttrSessionTimeout])
	}
	filters, _ := out.Attributes[AttrFilterID].([]string)
	if len(filters) != 1 || filters[0] != "vpn-users" {
		t.Errorf("Filter-Id = %v, want [vpn-users]", out.Attributes[AttrFilterID])
	}
	if got := out.Attributes[AttrFramedIPAddress]; got != "10.0.0.42" {
		t.Errorf("Framed-IP-Address = %v, want 10.0.0.42", got)
	}
	if _, ok := out.Attributes[AttrIdleTimeout]; ok {
		t.Error("Idle-Timeout present, want absent")
	}
}

func TestClient_Reject(t *testing.T) {
	addr := startRADIUS(t, tokenHandler)
	c := New(Endpoint{Address: addr, Secret: testSecret, Timeout: 2 * time.Second})

	out := c.Attempt(context.Background(), "alice", "000000")

	if out.Kind != failover.OutcomeRejected {
		t.Errorf("Kind = %s, want rejected (err: %v)", out.Kind, out.Err)
	}
}

func TestClient_PasswordLengths(t *testing.T) {
	got := make(chan string, 1)
	addr := startRADIUS(t, func(w radius.ResponseWriter, r *radius.Request) {
		got <- rfc2865.UserPassword_GetString(r.Packet)
		w.Write(r.Response(radius.CodeAccessAccept))
	})
	c := New(Endpoint{Address: addr, Secret: testSecret, Timeout: 2 * time.Second})

	for _, n := range []int{1, 6, 15, 16, 17, 31, 32, 128} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			token := strings.Repeat("7", n)

			out := c.Attempt(context.Background(), "alice", token)
			if out.Kind != failover.OutcomeAccepted {
				t.Fatalf("Kind = %s, want accepted (err: %v)", out.Kind, out.Err)
			}
			if pw := <-got; pw != token {
				t.Errorf("server decoded %q, want %q", pw, token)
			}
		})
	}
}

func TestClient_ProbeIdentifierIsSendable(t *testing.T) {
	addr := startRADIUS(t, tokenHandler)
	c := New(Endpoint{Address: addr, Secret: testSecret, Timeout: 2 * time.Second})

	out := c.Attempt(context.Background(), failover.ProbeIdentifier, failover.ProbeIdentifier)
	if out.Kind != failover.OutcomeRejected {
		t.Errorf("Kind = %s, want rejected (err: %v)", out.Kind, out.Err)
	}
}

func TestPadPassword(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 16},
		{"1", 16},
		{"123456789012345", 16},
		{"1234567890123456", 16},
		{"12345678901234567", 32},
		{strings.Repeat("x", 128), 128},
	}
	for _, tt := range tests {
		got := padPassword(tt.in)
		if len(got) != tt.want {
			t.Errorf("len(padPassword(%d bytes)) = %d, want %d", len(tt.in), len(got), tt.want)
		}
		if string(got[:len(tt.in)]) != tt.in {
			t.Errorf("padPassword(%q) changed the plaintext prefix", tt.in)
		}
		for _, b := range got[len(tt.in):] {
			if b != 0 {
				t.Errorf("padPassword(%q) padding = %v, want NUL bytes", tt.in, got[len(tt.in):])
				break
			}
		}
	}
}

func TestClient_SecretMismatch_IsProtocolError(t *testing.T) {
	addr := startRADIUS(t, tokenHandler)
	ep := Endpoint{Name: "misconfigured", Address: addr, Secret: "wrong-secret", Timeout: 2 * time.Second}
	c := New(ep)

	start := time.Now()
	out := c.Attempt(context.Background(), "alice", "123456")

	if out.Kind != failover.OutcomeProtocolError {
		t.Fatalf("Kind = %s, want protocol_error (err: %v)", out.Kind, out.Err)
	}
	if elapsed := time.Since(start); elapsed >= ep.Timeout {
		t.Errorf("elapsed = %s, want the bad reply to end the exchange before the timeout", elapsed)
	}

	if !failover.Probe(context.Background(), Servers([]Endpoint{ep})) {
		t.Error("Probe = false, want true for a server that answers")
	}
}

func TestClient_Challenge_IsProtocolError(t *testing.T) {
	addr := startRADIUS(t, func(w radius.ResponseWriter, r *radius.Request) {
		w.Write(r.Response(radius.CodeAccessChallenge))
	})
	c := New(Endpoint{Address: addr, Secret: testSecret, Timeout: 2 * time.Second})

	out := c.Attempt(context.Background(), "alice", "123456")

	if out.Kind != failover.OutcomeProtocolError {
		t.Errorf("Kind = %s, want protocol_error", out.Kind)
	}
	if out.Err == nil {
		t.Error("Err = nil, want cause")
	}
}

func TestClient_NoAnswer_IsUnreachable(t *testing.T) {
	var seen atomic.Int32
	addr := startRADIUS(t, func(w radius.ResponseWriter, r *radius.Request) {
		seen.Add(1)
		// Never answer.
	})
	c := New(Endpoint{Address: addr, Secret: testSecret, Timeout: 100 * time.Millisecond, Retries: 2})

	start := time.Now()
	out := c.Attempt(context.Background(), "alice", "123456")

	if out.Kind != failover.OutcomeUnreachable {
		t.Fatalf("Kind = %s, want unreachable (err: %v)", out.Kind, out.Err)
	}
	if got := seen.Load(); got != 3 {
		t.Errorf("requests seen = %d, want 3 (1 + 2 retries)", got)
	}
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("elapsed = %s, want >= 300ms", elapsed)
	}
}

func TestClient_ClosedPort_IsUnreachable(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	addr := pc.LocalAddr().String()
	pc.Close()

	c := New(Endpoint{Address: addr, Secret: testSecret, Timeout: 200 * time.Millisecond})
	out := c.Attempt(context.Background(), "alice", "123456")

	if out.Kind != failover.OutcomeUnreachable {
		t.Errorf("Kind = %s, want unreachable (err: %v)", out.Kind, out.Err)
	}
}

func TestClient_CancelledContext_IsUnreachable(t *testing.T) {
	addr := startRADIUS(t, func(radius.ResponseWriter, *radius.Request) {})
	c := New(Endpoint{Address: addr, Secret: testSecret, Timeout: 5 * time.Second, Retries: 3})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := c.Attempt(ctx, "alice", "123456")
	if out.Kind != failover.OutcomeUnreachable {
		t.Errorf("Kind = %s, want unreachable (err: %v)", out.Kind, out.Err)
	}
}

func TestClient_SendsNASAttributes(t *testing.T) {
	type seen struct {
		nasID   string
		nasIP   net.IP
		nasPort rfc2865.NASPort
	}
	got := make(chan seen, 1)
	addr := startRADIUS(t, func(w radius.ResponseWriter, r *radius.Request) {
		got <- seen{
			nasID:   rfc2865.NASIdentifier_GetString(r.Packet),
			nasIP:   rfc2865.NASIPAddress_Get(r.Packet),
			nasPort: rfc2865.NASPort_Get(r.Packet),
		}
		w.Write(r.Response(radius.CodeAccessReject))
	})

	c := New(Endpoint{
		Address:       addr,
		Secret:        testSecret,
		Timeout:       2 * time.Second,
		NASIdentifier: "cas",
		NASIPAddress:  net.IPv4(192, 168, 1, 10),
		NASPort:       7,
	})
	c.Attempt(context.Background(), "alice", "123456")

	s := <-got
	if s.nasID != "cas" {
		t.Errorf("NAS-Identifier = %q, want %q", s.nasID, "cas")
	}
	if !s.nasIP.Equal(net.IPv4(192, 168, 1, 10)) {
		t.Errorf("NAS-IP-Address = %v, want 192.168.1.10", s.nasIP)
	}
	if s.nasPort != 7 {
		t.Errorf("NAS-Port = %d, want 7", s.nasPort)
	}
}

func TestClient_FailoverAcrossServers(t *testing.T) {
	down := startRADIUS(t, func(radius.ResponseWriter, *radius.Request) {})
	up := startRADIUS(t, tokenHandler)

	servers := Servers([]Endpoint{
		{Name: "down", Address: down, Secret: testSecret, Timeout: 100 * time.Millisecond},
		{Name: "up", Address: up, Secret: testSecret, Timeout: 2 * time.Second},
	})

	result := failover.Authenticate(context.Background(), "alice", "123456", servers,
		failover.Policy{ContinueOnUnreachable: true})
	if !result.Success() {
		t.Fatalf("Status = %s, want success", result.Status)
	}
	if result.Server != "up" || result.Contacted != 2 {
		t.Errorf("Server/Contacted = %s/%d, want up/2", result.Server, result.Contacted)
	}

	if !failover.Probe(context.Background(), servers) {
		t.Error("Probe = false, want true")
	}
}

func TestEndpoint_StringOmitsSecret(t *testing.T) {
	ep := Endpoint{Name: "primary", Address: "10.0.0.1:1812", Secret: "supersecret"}

	s := ep.String()
	if s == "" {
		t.Fatal("String() is empty")
	}
	if strings.Contains(s, "supersecret") {
		t.Errorf("String() = %q leaks secret", s)
	}

	if got := New(Endpoint{Address: "10.0.0.1:1812"}).Name(); got != "10.0.0.1:1812" {
		t.Errorf("Name() = %q, want address fallback", got)
	}
}
