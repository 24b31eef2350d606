package imap

import (
	"net"
	"time"

	"github.com/emersion/go-imap/client"
)

const (
	// dialTimeout bounds connection establishment.
	dialTimeout = 5 * time.Second
	// commandTimeout bounds how long a single command read may block. A
	// session that times out is presumed unusable and must be discarded.
	commandTimeout = 30 * time.Second
)

// connect dials the IMAP server with a 5-second timeout.
// useTLS: true for production (TLS), false for tests (non-TLS).
func connect(server string, useTLS bool) (*client.Client, error) {
	dialer := &net.Dialer{
		Timeout: dialTimeout,
	}

	var c *client.Client
	var err error
	if useTLS {
		c, err = client.DialWithDialerTLS(dialer, server, nil)
	} else {
		// Non-TLS connection for testing
		c, err = client.DialWithDialer(dialer, server)
	}
	if err != nil {
		return nil, connErr("dial", err)
	}

	c.Timeout = commandTimeout
	return c, nil
}

// login authenticates with the IMAP server.
func login(c *client.Client, username, password string) error {
	if err := c.Login(username, password); err != nil {
		return connErr("login", err)
	}

	return nil
}
