package radius

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
	"layeh.com/radius"
	"layeh.com/radius/rfc2865"

	"github.com/Halvra/cas/pkg/debug"
	"github.com/Halvra/cas/pkg/failover"
)

// Client sends Access-Requests to a single RADIUS server.
type Client struct {
	endpoint Endpoint
	exchange *radius.Client
	retryGap time.Duration
}

var _ failover.Server = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithRetryInterval sets the pause between a timed-out exchange and its
// resend. Default: 0.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) { c.retryGap = d }
}

// WithExchanger replaces the underlying layeh client, e.g. to change the
// network or packet error limit.
func WithExchanger(rc *radius.Client) Option {
	return func(c *Client) {
		if rc != nil {
			c.exchange = rc
		}
	}
}

// New creates a client for one endpoint.
func New(ep Endpoint, opts ...Option) *Client {
	c := &Client{
		endpoint: ep,
		exchange: &radius.Client{
			Net: "udp",
			// A reply that fails to parse or authenticate ends the exchange
			// so a live but misconfigured server is not reported as silent.
			MaxPacketErrors: 1,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Servers builds one client per endpoint, preserving order.
func Servers(endpoints []Endpoint, opts ...Option) []failover.Server {
	out := make([]failover.Server, 0, len(endpoints))
	for _, ep := range endpoints {
		out = append(out, New(ep, opts...))
	}
	return out
}

// Name returns the endpoint name.
func (c *Client) Name() string {
	return c.endpoint.name()
}

// Endpoint returns the client's endpoint.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// Attempt sends one Access-Request and classifies the answer.
func (c *Client) Attempt(ctx context.Context, identifier, secret string) failover.Outcome {
	packet, err := c.newRequest(identifier, secret)
	if err != nil {
		return failover.ProtocolError(fmt.Errorf("building access request: %w", err))
	}

	tries := 0
	operation := func() (*radius.Packet, error) {
		tries++
		resp, err := c.exchangeOnce(ctx, packet)
		if err == nil {
			return resp, nil
		}
		if isUnreachable(err) && ctx.Err() == nil {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.retryGap)),
		backoff.WithMaxTries(uint(c.endpoint.Retries+1)), // #nosec G115 -- retries validated >= 0
		backoff.WithNotify(func(err error, _ time.Duration) {
			debug.Log("radius", "resending access request", "server", c.Name(), "try", tries, "error", err)
		}),
	)
	if err != nil {
		return classifyError(err)
	}

	debug.Log("radius", "access request answered", "server", c.Name(), "code", resp.Code.String(), "tries", tries)
	return classifyResponse(resp)
}

func (c *Client) newRequest(identifier, secret string) (*radius.Packet, error) {
	packet := radius.New(radius.CodeAccessRequest, []byte(c.endpoint.Secret))
	if err := rfc2865.UserName_SetString(packet, identifier); err != nil {
		return nil, fmt.Errorf("User-Name: %w", err)
	}
	password, err := radius.NewUserPassword(padPassword(secret), packet.Secret, packet.Authenticator[:])
	if err != nil {
		return nil, fmt.Errorf("User-Password: %w", err)
	}
	packet.Add(rfc2865.UserPassword_Type, password)
	if c.endpoint.NASIdentifier != "" {
		if err := rfc2865.NASIdentifier_SetString(packet, c.endpoint.NASIdentifier); err != nil {
			return nil, fmt.Errorf("NAS-Identifier: %w", err)
		}
	}
	if c.endpoint.NASIPAddress != nil {
		if err := rfc2865.NASIPAddress_Set(packet, c.endpoint.NASIPAddress); err != nil {
			return nil, fmt.Errorf("NAS-IP-Address: %w", err)
		}
	}
	if c.endpoint.NASPort != 0 {
		if err := rfc2865.NASPort_Set(packet, rfc2865.NASPort(c.endpoint.NASPort)); err != nil {
			return nil, fmt.Errorf("NAS-Port: %w", err)
		}
	}
	return packet, nil
}

// padPassword NUL-pads a User-Password plaintext to a multiple of 16
// bytes, at least 16 (RFC 2865 section 5.2).
func padPassword(secret string) []byte {
	n := len(secret)
	if n == 0 || n%16 != 0 {
		n += 16 - n%16
	}
	padded := make([]byte, n)
	copy(padded, secret)
	return padded
}

func (c *Client) exchangeOnce(ctx context.Context, packet *radius.Packet) (*radius.Packet, error) {
	ctx, cancel := context.WithTimeout(ctx, c.endpoint.timeout())
	defer cancel()
	return c.exchange.Exchange(ctx, packet, c.endpoint.Address)
}

func classifyResponse(resp *radius.Packet) failover.Outcome {
	switch resp.Code {
	case radius.CodeAccessAccept:
		return failover.Accepted(replyAttributes(resp))
	case radius.CodeAccessReject:
		return failover.Rejected()
	default:
		return failover.ProtocolError(fmt.Errorf("unexpected response code %s", resp.Code))
	}
}

func classifyError(err error) failover.Outcome {
	if isUnreachable(err) {
		return failover.Unreachable(err)
	}
	return failover.ProtocolError(err)
}

// isUnreachable reports whether err means no answer came back: deadline,
// cancellation, timeouts, or socket-level failures.
func isUnreachable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
