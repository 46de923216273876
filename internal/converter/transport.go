package converter

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

// Transport selects how oracle reads reach the chain. It is either Direct
// (a pre-built reader) or Remote (an endpoint dialled on demand).
type Transport interface {
	transport()
}

// Direct carries an already constructed oracle reader.
type Direct struct {
	Oracle domain.OracleReader
}

// Remote carries an RPC endpoint URL.
type Remote struct {
	Endpoint string
}

func (Direct) transport() {}
func (Remote) transport() {}

// Dialer builds an oracle reader for a remote endpoint. The returned close
// function releases the connection.
type Dialer func(ctx context.Context, endpoint string) (domain.OracleReader, func(), error)

// TransportFrom picks the transport variant from optional parts. Exactly one
// of oracle and endpoint must be set.
func TransportFrom(oracle domain.OracleReader, endpoint string) (Transport, error) {
	endpoint = strings.TrimSpace(endpoint)
	switch {
	case oracle != nil && endpoint != "":
		return nil, fmt.Errorf("%w: got both", domain.ErrTransportConfig)
	case oracle != nil:
		return Direct{Oracle: oracle}, nil
	case endpoint != "":
		return Remote{Endpoint: endpoint}, nil
	default:
		return nil, domain.ErrTransportConfig
	}
}

// validateTransport checks t and returns it in value form.
func validateTransport(t Transport) (Transport, error) {
	switch v := t.(type) {
	case *Direct:
		if v == nil {
			return nil, domain.ErrTransportConfig
		}
		return validateTransport(*v)
	case *Remote:
		if v == nil {
			return nil, domain.ErrTransportConfig
		}
		return validateTransport(*v)
	case Direct:
		if v.Oracle == nil {
			return nil, domain.ErrTransportConfig
		}
		return v, nil
	case Remote:
		if strings.TrimSpace(v.Endpoint) == "" {
			return nil, domain.ErrTransportConfig
		}
		return v, nil
	default:
		return nil, domain.ErrTransportConfig
	}
}
