package environment

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/nq-deploy/deployctl/common"
)

// DefaultIPEndpoints are the lookup services tried in order when deriving
// the allowed-hosts value.
var DefaultIPEndpoints = []string{
	"https://api.ipify.org",
	"https://ifconfig.me/ip",
	"https://icanhazip.com",
}

// IPResolver performs a best-effort public IP lookup against an ordered list
// of HTTP endpoints. The first endpoint returning an IP-shaped response wins.
type IPResolver struct {
	endpoints []string
	client    *http.Client
}

// NewIPResolver creates a resolver over the default endpoints.
func NewIPResolver() *IPResolver {
	return NewIPResolverWithEndpoints(DefaultIPEndpoints...)
}

// NewIPResolverWithEndpoints creates a resolver over an explicit endpoint
// list, primarily for tests.
func NewIPResolverWithEndpoints(endpoints ...string) *IPResolver {
	return &IPResolver{
		endpoints: endpoints,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// PublicIP returns the host's public IP address as reported by the first
// reachable endpoint. Responses that do not parse as an IP are rejected and
// the next endpoint is tried.
func (r *IPResolver) PublicIP() (string, error) {
	var lastErr error
	for _, endpoint := range r.endpoints {
		ip, err := r.query(endpoint)
		if err != nil {
			common.Logger.WithField("endpoint", endpoint).Debug("public IP lookup attempt failed: ", err)
			lastErr = err
			continue
		}
		return ip, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no lookup endpoints configured")
	}
	return "", lastErr
}

func (r *IPResolver) query(endpoint string) (string, error) {
	resp, err := r.client.Get(endpoint)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return "", err
	}
	candidate := strings.TrimSpace(string(body))
	if net.ParseIP(candidate) == nil {
		return "", fmt.Errorf("response %q from %s is not an IP address", candidate, endpoint)
	}
	return candidate, nil
}
