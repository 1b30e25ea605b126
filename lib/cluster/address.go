package cluster

import (
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// Address is one resolved replica endpoint. It is immutable: if the
// host cannot be resolved, no Address is produced at all.
type Address struct {
	// ResolvedAddress is the endpoint the host resolved to at
	// construction time. Resolution is eager and happens exactly once.
	ResolvedAddress netip.AddrPort

	Host     string
	Port     uint16
	User     string
	Password string
	// Database is selected when a query names no database of its own.
	Database string
	// ReplicaNum is the 1-based position within the shard's replica
	// list, 0 for single-node shards.
	ReplicaNum int
}

// NewAddress builds an Address from one node entry of a cluster config.
func NewAddress(node NodeConfig, replicaNum int) (Address, error) {
	if node.Host == "" {
		return Address{}, ParseError{Detail: "node is missing a host"}
	}
	if node.Port == 0 {
		return Address{}, ParseError{Detail: "node " + node.Host + " is missing a port"}
	}

	resolved, err := resolve(node.Host, node.Port)
	if err != nil {
		return Address{}, err
	}

	return Address{
		ResolvedAddress: resolved,
		Host:            node.Host,
		Port:            node.Port,
		User:            node.User,
		Password:        node.Password,
		Database:        node.Database,
		ReplicaNum:      replicaNum,
	}, nil
}

// ParseAddress builds an Address from a literal "host:port" string and
// explicit credentials. Used when a topology is assembled from shard
// and replica name matrices instead of configuration.
func ParseAddress(hostPort, user, password string, replicaNum int) (Address, error) {
	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		return Address{}, ParseError{Detail: "malformed address " + strconv.Quote(hostPort)}
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return Address{}, ParseError{Detail: "malformed port in address " + strconv.Quote(hostPort)}
	}

	return NewAddress(NodeConfig{
		Host:     host,
		Port:     uint16(port),
		User:     user,
		Password: password,
	}, replicaNum)
}

func resolve(host string, port uint16) (netip.AddrPort, error) {
	// IP literals skip the resolver
	if ip, err := netip.ParseAddr(host); err == nil {
		return netip.AddrPortFrom(ip, port), nil
	}

	addrs, err := net.LookupHost(host)
	if err != nil {
		return netip.AddrPort{}, ResolveError{
			Host: host,
			Port: port,
			Err:  err,
		}
	}

	ip, err := netip.ParseAddr(addrs[0])
	if err != nil {
		return netip.AddrPort{}, ResolveError{
			Host: host,
			Port: port,
			Err:  err,
		}
	}

	return netip.AddrPortFrom(ip.Unmap(), port), nil
}

func (T Address) String() string {
	return net.JoinHostPort(T.Host, strconv.Itoa(int(T.Port)))
}

// DirName renders the spool directory name used for asynchronous
// writes to this replica: user[:password]@host:port[#database], with
// every component escaped for the filesystem.
func (T Address) DirName() string {
	var b strings.Builder
	b.WriteString(escapeDirName(T.User))
	if T.Password != "" {
		b.WriteByte(':')
		b.WriteString(escapeDirName(T.Password))
	}
	b.WriteByte('@')
	b.WriteString(escapeDirName(T.Host))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(int(T.Port)))
	if T.Database != "" {
		b.WriteByte('#')
		b.WriteString(escapeDirName(T.Database))
	}
	return b.String()
}

const hexDigits = "0123456789ABCDEF"

func escapeDirName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z',
			c >= 'A' && c <= 'Z',
			c >= '0' && c <= '9',
			c == '-', c == '_', c == '.':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0xf])
		}
	}
	return b.String()
}
