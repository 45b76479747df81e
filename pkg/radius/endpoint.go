package radius

import (
	"fmt"
	"net"
	"time"
)

// DefaultTimeout bounds a single exchange when Endpoint.Timeout is unset.
const DefaultTimeout = 5 * time.Second

// Endpoint describes one RADIUS server.
type Endpoint struct {
	// Name identifies the server in logs and metrics. Defaults to Address.
	Name string

	// Address is the server's host:port (UDP).
	Address string

	// Secret is the shared secret. It is never logged.
	Secret string

	// Timeout bounds a single exchange. Each resend gets its own Timeout,
	// so one attempt can take up to Timeout*(Retries+1).
	Timeout time.Duration

	// Retries is the number of additional exchanges sent after a timeout.
	Retries int

	// NASIdentifier, NASIPAddress and NASPort are sent when set.
	NASIdentifier string
	NASIPAddress  net.IP
	NASPort       uint32
}

func (e Endpoint) name() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Address
}

func (e Endpoint) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return DefaultTimeout
}

// String describes the endpoint without the shared secret.
func (e Endpoint) String() string {
	return fmt.Sprintf("%s (%s, timeout=%s, retries=%d)", e.name(), e.Address, e.timeout(), e.Retries)
}
