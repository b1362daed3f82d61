// Package peektls wraps a net.Listener so that the first TLS record of
// every accepted connection is read, fingerprinted, and then replayed to
// the real TLS handshake. HTTP handlers behind the listener can pull the
// caller's fingerprint (and its database match, when one is configured)
// out of the request context.
package peektls

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/vistone/wireprint"
)

// context key used for store/retrieve of the peeked hello
type contextKey string

const ClientHelloKey contextKey = "clientHelloInfo"

// HelloInfo is what gets attached to a connection: the canonical
// fingerprint of the ClientHello and, when the listener has a signature
// database, the best match for it. Match is nil when nothing matched or
// no database was configured.
type HelloInfo struct {
	Fingerprint *wireprint.CanonicalFingerprint
	Match       *wireprint.SignatureMatch
}

// HelloConn carries the peeked hello alongside the TLS connection.
type HelloConn struct {
	net.Conn
	Info *HelloInfo
}

func (c *HelloConn) HelloInfo() *HelloInfo {
	return c.Info
}

type peekingListener struct {
	net.Listener
	tlsConfig *tls.Config
	db        *wireprint.SignatureDB
}

// ConnContextHandler is an http.Server ConnContext hook that moves the
// peeked hello from the connection into the request context.
func ConnContextHandler(ctx context.Context, c net.Conn) context.Context {
	if hc, ok := c.(*HelloConn); ok {
		return context.WithValue(ctx, ClientHelloKey, hc.Info)
	}
	return ctx
}

func InfoFromRequest(r *http.Request) HelloInfo {
	return InfoFromContext(r.Context())
}

func InfoFromContext(ctx context.Context) HelloInfo {
	if info, ok := ctx.Value(ClientHelloKey).(*HelloInfo); ok && info != nil {
		return *info
	}
	return HelloInfo{}
}

func (l *peekingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	peeked, err := peekClientHello(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("peekClientHello: %w", err)
	}

	info := inspect(peeked, l.db)

	reader := io.MultiReader(bytes.NewReader(peeked), conn)
	wrapped := &readFirstConn{Conn: conn, Reader: reader}
	tlsConn := tls.Server(wrapped, l.tlsConfig)

	return &HelloConn{
		Conn: tlsConn,
		Info: info,
	}, nil
}

// readFirstConn serves the already-consumed record bytes before handing
// reads back to the underlying connection.
type readFirstConn struct {
	net.Conn
	io.Reader
}

func (c *readFirstConn) Read(b []byte) (int, error) {
	return c.Reader.Read(b)
}

func peekClientHello(conn net.Conn) ([]byte, error) {
	hdr := make([]byte, 5)
	if _, err := io.ReadFull(conn, hdr); err != nil {
		return nil, err
	}

	length := int(hdr[3])<<8 | int(hdr[4])
	body := make([]byte, length)
	if _, err := io.ReadFull(conn, body); err != nil {
		return nil, err
	}

	return append(hdr, body...), nil
}

func inspect(record []byte, db *wireprint.SignatureDB) *HelloInfo {
	hello, err := wireprint.ParseClientHello(record)
	if err != nil {
		return &HelloInfo{}
	}

	info := &HelloInfo{Fingerprint: wireprint.FingerprintFromClientHello(hello)}
	if db != nil {
		if m, ok := db.Match(info.Fingerprint); ok {
			info.Match = &m
		}
	}
	return info
}

// NewListener wraps listener so every accepted connection is
// fingerprinted before the TLS handshake runs. db may be nil to skip
// matching.
func NewListener(listener net.Listener, tlsConfig *tls.Config, db *wireprint.SignatureDB) net.Listener {
	return &peekingListener{Listener: listener, tlsConfig: tlsConfig, db: db}
}
