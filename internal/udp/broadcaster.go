// Package udp sends NMEA sentences to a UDP destination, one sentence per
// datagram, the way chart plotters and navigation apps expect them.
package udp

import (
	"fmt"
	"net"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)
type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

type Broadcaster struct {
	dest string
	conn udpConn
}

func NewBroadcaster(dest string) (*Broadcaster, error) {
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	}
	return newBroadcaster(dest, net.ResolveUDPAddr, dial)
}

func newBroadcaster(dest string, resolve resolveFunc, dial dialFunc) (*Broadcaster, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest %s: %w", dest, err)
	}
	// A nil local address lets the kernel pick the outgoing interface.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp %s: %w", dest, err)
	}
	return &Broadcaster{dest: dest, conn: conn}, nil
}

func (b *Broadcaster) Dest() string { return b.dest }

func (b *Broadcaster) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	_, err := b.conn.Write(payload)
	return err
}

// SendSentences writes each non-empty sentence as its own datagram and stops
// at the first error.
func (b *Broadcaster) SendSentences(sentences ...string) error {
	for _, s := range sentences {
		if err := b.Send([]byte(s)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Broadcaster) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
