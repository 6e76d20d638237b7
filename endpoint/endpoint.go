package endpoint

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Locality says which side of the transfer an endpoint lives on.
type Locality int

const (
	// Local is a path on the filesystem of the invoking process.
	Local Locality = iota

	// Remote is a path on another host, reached over the secure channel.
	Remote
)

// String returns a human-readable locality name.
func (l Locality) String() string {
	switch l {
	case Local:
		return "local"
	case Remote:
		return "remote"
	default:
		return fmt.Sprintf("locality(%d)", int(l))
	}
}

// Direction is the orientation of a transfer relative to the invoking host.
type Direction int

const (
	// Push moves a local source to a remote destination.
	Push Direction = iota

	// Pull moves a remote source to a local destination.
	Pull
)

// String returns a human-readable direction name.
func (d Direction) String() string {
	switch d {
	case Push:
		return "push"
	case Pull:
		return "pull"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Endpoint is one resolved side of a transfer. It is immutable once built:
// the resolver returns fully populated values and nothing mutates them
// afterwards.
type Endpoint struct {
	// Locality distinguishes the local filesystem from a remote host.
	Locality Locality

	// User is the login name on the remote host. Empty for Local endpoints
	// and for Remote endpoints that rely on the invoking user's name.
	User string

	// Host is the remote hostname, IPv4 or IPv6 literal (unbracketed).
	// Empty for Local endpoints.
	Host string

	// Port is the remote channel port. Zero for Local endpoints.
	Port int

	// Path is the file or directory path on the endpoint's side.
	Path string
}

// IsRemote reports whether the endpoint lives on a remote host.
func (e Endpoint) IsRemote() bool {
	return e.Locality == Remote
}

// Addr returns the dialable host:port address of a Remote endpoint, with
// IPv6 literals bracketed.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// String re-renders the endpoint in specifier form, mainly for logs and
// error messages.
func (e Endpoint) String() string {
	if !e.IsRemote() {
		return e.Path
	}
	var b strings.Builder
	if e.User != "" {
		b.WriteString(e.User)
		b.WriteByte('@')
	}
	if strings.Contains(e.Host, ":") {
		b.WriteByte('[')
		b.WriteString(e.Host)
		b.WriteByte(']')
	} else {
		b.WriteString(e.Host)
	}
	b.WriteByte(':')
	b.WriteString(e.Path)
	return b.String()
}

// Resolution is the outcome of resolving a source and destination specifier
// pair into one transfer.
type Resolution struct {
	// Source is where bytes are read from.
	Source Endpoint

	// Destination is where bytes are written to.
	Destination Endpoint

	// Direction is Push when the source is local, Pull when it is remote.
	Direction Direction
}

// Remote returns whichever endpoint of the pair is the remote one.
func (r Resolution) Remote() Endpoint {
	if r.Source.IsRemote() {
		return r.Source
	}
	return r.Destination
}

// Local returns whichever endpoint of the pair is the local one.
func (r Resolution) Local() Endpoint {
	if r.Source.IsRemote() {
		return r.Destination
	}
	return r.Source
}
