package domainkey

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// RCodeError is returned by ExtResolver when the RCODE in a response is not
// NOERROR.
type RCodeError struct {
	Name string
	Code int
}

func (err RCodeError) Temporary() bool {
	return err.Code == dns.RcodeServerFailure
}

// NXDomain reports whether the response said the name does not exist.
func (err RCodeError) NXDomain() bool {
	return err.Code == dns.RcodeNameError
}

func (err RCodeError) Error() string {
	switch err.Code {
	case dns.RcodeFormatError:
		return "dns: rcode FORMERR when looking up " + err.Name
	case dns.RcodeServerFailure:
		return "dns: rcode SERVFAIL when looking up " + err.Name
	case dns.RcodeNameError:
		return "dns: rcode NXDOMAIN when looking up " + err.Name
	case dns.RcodeNotImplemented:
		return "dns: rcode NOTIMP when looking up " + err.Name
	case dns.RcodeRefused:
		return "dns: rcode REFUSED when looking up " + err.Name
	}
	return "dns: non-success rcode: " + strconv.Itoa(err.Code) + " when looking up " + err.Name
}

// ExtResolver is a TXTResolver on top of the miekg/dns client. Unlike the
// stdlib resolver it exposes the AD flag of the response, indicating whether
// the upstream server performed DNSSEC validation.
type ExtResolver struct {
	cl    *dns.Client
	clTCP *dns.Client
	Cfg   *dns.ClientConfig

	// Timeout caps a single lookup. The effective deadline is the sooner
	// of this and the caller's context deadline. Zero means no extra cap.
	Timeout time.Duration
}

// NewExtResolver configures an ExtResolver from /etc/resolv.conf.
func NewExtResolver() (*ExtResolver, error) {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return nil, err
	}
	if len(cfg.Servers) == 0 {
		cfg.Servers = []string{"127.0.0.1"}
	}

	cl := new(dns.Client)
	cl.Dialer = &net.Dialer{
		Timeout: time.Duration(cfg.Timeout) * time.Second,
	}
	clTCP := new(dns.Client)
	clTCP.Net = "tcp"
	clTCP.Dialer = cl.Dialer
	return &ExtResolver{
		cl:    cl,
		clTCP: clTCP,
		Cfg:   cfg,
	}, nil
}

func isLoopback(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}

func (e *ExtResolver) exchange(ctx context.Context, msg *dns.Msg) (*dns.Msg, error) {
	var resp *dns.Msg
	var lastErr error
	for _, srv := range e.Cfg.Servers {
		addr := net.JoinHostPort(srv, e.Cfg.Port)
		resp, _, lastErr = e.cl.ExchangeContext(ctx, msg, addr)
		if lastErr != nil {
			continue
		}

		// UDPで切り詰められた応答はTCPで取り直す
		if resp.Truncated {
			resp, _, lastErr = e.clTCP.ExchangeContext(ctx, msg, addr)
			if lastErr != nil {
				continue
			}
			if resp.Truncated {
				lastErr = fmt.Errorf("%w: %s", ErrTruncatedReply, msg.Question[0].Name)
				continue
			}
		}

		if resp.Rcode != dns.RcodeSuccess {
			lastErr = RCodeError{msg.Question[0].Name, resp.Rcode}
			continue
		}

		if len(resp.Question) != 1 ||
			!strings.EqualFold(resp.Question[0].Name, msg.Question[0].Name) ||
			resp.Question[0].Qtype != msg.Question[0].Qtype {
			lastErr = fmt.Errorf("dns: question mismatch in reply for %s", msg.Question[0].Name)
			continue
		}

		// Disregard AD flags from non-local resolvers, likely they are
		// communicated with using an insecure channel and so flags can be
		// tampered with.
		if !isLoopback(srv) {
			resp.AuthenticatedData = false
		}

		return resp, nil
	}
	return nil, lastErr
}

// LookupTXT implements TXTResolver. CNAME and RRSIG records in the answer
// section are skipped; the character strings of one TXT record are
// concatenated into a single element.
func (e *ExtResolver) LookupTXT(ctx context.Context, name string) ([]string, bool, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeTXT)
	msg.SetEdns0(4096, false)
	msg.AuthenticatedData = true

	resp, err := e.exchange(ctx, msg)
	if err != nil {
		return nil, false, err
	}

	recs := make([]string, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		txtRR, ok := rr.(*dns.TXT)
		if !ok {
			continue
		}
		recs = append(recs, strings.Join(txtRR.Txt, ""))
	}
	return recs, resp.AuthenticatedData, nil
}
