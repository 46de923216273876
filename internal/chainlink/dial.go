package chainlink

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

// Dial connects to an Ethereum JSON-RPC endpoint and returns a Reader over
// it together with a function that closes the connection. Its signature
// matches converter.Dialer.
func Dial(ctx context.Context, endpoint string) (domain.OracleReader, func(), error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, nil, fmt.Errorf("chainlink: endpoint required")
	}
	client, err := ethclient.DialContext(ctx, trimmed)
	if err != nil {
		return nil, nil, fmt.Errorf("chainlink: dial %s: %w", trimmed, err)
	}
	return NewReader(client), client.Close, nil
}
