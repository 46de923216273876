// Package chainlink reads price answers from Chainlink AggregatorV3 contracts
// through go-ethereum.
package chainlink

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

// aggregatorV3ABI is the subset of AggregatorV3Interface used here.
const aggregatorV3ABI = `[
	{
		"inputs": [],
		"name": "latestRoundData",
		"outputs": [
			{"internalType": "uint80", "name": "roundId", "type": "uint80"},
			{"internalType": "int256", "name": "answer", "type": "int256"},
			{"internalType": "uint256", "name": "startedAt", "type": "uint256"},
			{"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
			{"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

var parsedABI = mustParseABI(aggregatorV3ABI)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("chainlink: parse aggregator abi: %v", err))
	}
	return parsed
}

// ContractCaller is the subset of an Ethereum RPC client needed for
// read-only contract calls. *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// RoundData mirrors the latestRoundData return tuple.
type RoundData struct {
	RoundID         *big.Int
	Answer          *big.Int
	StartedAt       *big.Int
	UpdatedAt       *big.Int
	AnsweredInRound *big.Int
}

// Reader implements domain.OracleReader against AggregatorV3 contracts.
type Reader struct {
	caller ContractCaller
}

// NewReader creates a Reader that issues calls through caller.
func NewReader(caller ContractCaller) *Reader {
	return &Reader{caller: caller}
}

// LatestAnswer returns the answer field of latestRoundData at address.
func (r *Reader) LatestAnswer(ctx context.Context, address common.Address) (*big.Int, error) {
	round, err := r.LatestRoundData(ctx, address)
	if err != nil {
		return nil, err
	}
	return round.Answer, nil
}

// LatestRoundData calls latestRoundData on the aggregator at address.
func (r *Reader) LatestRoundData(ctx context.Context, address common.Address) (RoundData, error) {
	out, err := r.call(ctx, address, "latestRoundData")
	if err != nil {
		return RoundData{}, err
	}
	if len(out) != 5 {
		return RoundData{}, fmt.Errorf("chainlink: latestRoundData %s: unexpected %d outputs", address.Hex(), len(out))
	}

	var round RoundData
	fields := []**big.Int{&round.RoundID, &round.Answer, &round.StartedAt, &round.UpdatedAt, &round.AnsweredInRound}
	for i, dst := range fields {
		v, ok := out[i].(*big.Int)
		if !ok {
			return RoundData{}, fmt.Errorf("chainlink: latestRoundData %s: output %d has type %T", address.Hex(), i, out[i])
		}
		*dst = v
	}
	return round, nil
}

func (r *Reader) call(ctx context.Context, address common.Address, method string) ([]interface{}, error) {
	input, err := parsedABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("chainlink: pack %s: %w", method, err)
	}

	raw, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &address, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("chainlink: call %s on %s: %w", method, address.Hex(), err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("chainlink: call %s on %s: empty response (no contract at address?)", method, address.Hex())
	}

	out, err := parsedABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("chainlink: unpack %s from %s: %w", method, address.Hex(), err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.OracleReader = (*Reader)(nil)
