package common

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// --------------------------------------------------------------------------
// Endpoint Set
// --------------------------------------------------------------------------

// EndpointKind is the shape of the address list held by an EndpointSet
type EndpointKind uint8

const (
	// EndpointsStatic is a fixed list shared with the caller (e.g. a package level var).
	// It is not copied and validated only when resolved.
	EndpointsStatic EndpointKind = iota + 1
	// EndpointsOwned is a runtime list owned by the set. It is copied and validated on construction.
	EndpointsOwned
	// EndpointsLiteral is a fixed list of string literals, validated only when resolved.
	EndpointsLiteral
)

// EndpointSet describes the server addresses a pool balances across. It is immutable.
type EndpointSet struct {
	kind  EndpointKind
	addrs []string
}

// NewStaticEndpoints wraps a fixed, shared address list
func NewStaticEndpoints(addrs *[]string) EndpointSet {
	var list []string
	if addrs != nil {
		list = *addrs
	}
	return EndpointSet{kind: EndpointsStatic, addrs: list}
}

// NewOwnedEndpoints copies and validates a runtime address list.
// A malformed address is reported here, not when the pool connects.
func NewOwnedEndpoints(addrs []string) (EndpointSet, error) {
	owned := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		addr = strings.TrimSpace(addr)
		if err := validateEndpoint(addr); err != nil {
			return EndpointSet{}, WrapError(ErrKindInvalidArgument, err, fmt.Sprintf("malformed endpoint %q", addr))
		}
		owned = append(owned, addr)
	}
	return EndpointSet{kind: EndpointsOwned, addrs: owned}, nil
}

// NewLiteralEndpoints wraps a list of address literals
func NewLiteralEndpoints(addrs ...string) EndpointSet {
	return EndpointSet{kind: EndpointsLiteral, addrs: addrs}
}

// Kind returns the shape of the set
func (s EndpointSet) Kind() EndpointKind {
	return s.kind
}

// Len returns the number of addresses in the set
func (s EndpointSet) Len() int {
	return len(s.addrs)
}

// Resolve returns the validated addresses of the set.
// It fails if the set is empty or any address is malformed.
func (s EndpointSet) Resolve() ([]string, error) {
	if len(s.addrs) == 0 {
		return nil, NewError(ErrKindTransport, "no endpoints provided")
	}

	resolved := make([]string, 0, len(s.addrs))
	for _, addr := range s.addrs {
		// owned sets were checked on construction
		if s.kind != EndpointsOwned {
			if err := validateEndpoint(addr); err != nil {
				return nil, WrapError(ErrKindTransport, err, fmt.Sprintf("cannot resolve endpoint %q", addr))
			}
		}
		resolved = append(resolved, addr)
	}
	return resolved, nil
}

func (s EndpointSet) String() string {
	return fmt.Sprintf("[%s]", strings.Join(s.addrs, ","))
}

// validateEndpoint accepts host:port, scheme://host[:port] and absolute unix socket paths
func validateEndpoint(addr string) error {
	if addr == "" {
		return fmt.Errorf("empty address")
	}

	if strings.HasPrefix(addr, "/") {
		return nil
	}

	if strings.Contains(addr, "://") {
		u, err := url.Parse(addr)
		if err != nil {
			return err
		}
		if u.Host == "" {
			return fmt.Errorf("missing host")
		}
		return nil
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if port == "" {
		return fmt.Errorf("missing port")
	}
	if strings.ContainsAny(host, " /") {
		return fmt.Errorf("invalid host %q", host)
	}
	return nil
}
