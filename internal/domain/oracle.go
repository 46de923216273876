package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// OracleReader fetches the most recent raw answer of the aggregator deployed
// at address. Only the answer is interpreted; round ids and timestamps are not.
type OracleReader interface {
	LatestAnswer(ctx context.Context, address common.Address) (*big.Int, error)
}
