package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"strings"
)

// Engine error codes carried by apierrors.TransportError.
const (
	CodeUnsupportedProtocol = 1
	CodeMalformedURL        = 3
	CodeResolveHost         = 6
	CodeConnect             = 7
	CodeWrite               = 23
	CodeTimeout             = 28
	CodeTLS                 = 35
	CodeAborted             = 42
	CodeTooManyRedirects    = 47
	CodeReceive             = 56
)

var codeText = map[int]string{
	CodeUnsupportedProtocol: "Unsupported protocol",
	CodeMalformedURL:        "URL using bad/illegal format or missing URL",
	CodeResolveHost:         "Couldn't resolve host name",
	CodeConnect:             "Couldn't connect to server",
	CodeWrite:               "Failed writing received data to disk/application",
	CodeTimeout:             "Timeout was reached",
	CodeTLS:                 "SSL connect error",
	CodeAborted:             "Operation was aborted by an application callback",
	CodeTooManyRedirects:    "Number of redirects hit maximum amount",
	CodeReceive:             "Failure when receiving data from the peer",
}

// CodeText describes an engine error code.
func CodeText(code int) string {
	if text, ok := codeText[code]; ok {
		return text
	}
	return "Unknown error"
}

var errTooManyRedirects = errors.New("stopped after maximum redirects")

// classify maps an engine failure to its error code.
func classify(err error) int {
	var (
		dnsErr      *net.DNSError
		opErr       *net.OpError
		netErr      net.Error
		recordErr   tls.RecordHeaderError
		verifyErr   *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidCert x509.CertificateInvalidError
	)

	switch {
	case errors.Is(err, errTooManyRedirects):
		return CodeTooManyRedirects
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeAborted
	case errors.As(err, &dnsErr):
		return CodeResolveHost
	case errors.As(err, &recordErr), errors.As(err, &verifyErr),
		errors.As(err, &unknownAuth), errors.As(err, &hostErr), errors.As(err, &invalidCert):
		return CodeTLS
	case errors.As(err, &netErr) && netErr.Timeout():
		return CodeTimeout
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return CodeConnect
	case strings.Contains(err.Error(), "unsupported protocol scheme"):
		return CodeUnsupportedProtocol
	default:
		return CodeReceive
	}
}
