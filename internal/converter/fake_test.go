package converter

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

var errNetwork = errors.New("connection refused")

// fakeOracle answers from a fixed table keyed by aggregator address.
type fakeOracle struct {
	answers map[common.Address]*big.Int
	fail    map[common.Address]error
	calls   atomic.Int64

	mu   sync.Mutex
	seen []common.Address
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		answers: make(map[common.Address]*big.Int),
		fail:    make(map[common.Address]error),
	}
}

func (f *fakeOracle) set(addr string, answer string) *fakeOracle {
	v, ok := new(big.Int).SetString(answer, 10)
	if !ok {
		panic("bad answer " + answer)
	}
	f.answers[common.HexToAddress(addr)] = v
	return f
}

func (f *fakeOracle) LatestAnswer(ctx context.Context, address common.Address) (*big.Int, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.seen = append(f.seen, address)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.fail[address]; ok {
		return nil, err
	}
	v, ok := f.answers[address]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return v, nil
}

func feed(id int, from, to, addr string, decimals uint8) domain.Feed {
	return domain.Feed{
		ID:       id,
		From:     domain.AssetCode(from),
		To:       domain.AssetCode(to),
		Address:  common.HexToAddress(addr),
		Decimals: decimals,
	}
}

// testFeeds is the chain A-B-C-D-E-F with rates
// A/B 100, B/C 0.2, C/D 0.001, D/E 999999999999999999, E/F 0.000000000000000001.
func testFeeds() []domain.Feed {
	return []domain.Feed{
		feed(0, "A", "B", "0xAB", 8),
		feed(1, "B", "C", "0xBC", 8),
		feed(2, "C", "D", "0xCD", 8),
		feed(3, "D", "E", "0xDE", 18),
		feed(4, "E", "F", "0xEF", 18),
	}
}

func testOracle() *fakeOracle {
	return newFakeOracle().
		set("0xAB", "10000000000").
		set("0xBC", "20000000").
		set("0xCD", "100000").
		set("0xDE", "999999999999999999000000000000000000").
		set("0xEF", "1")
}
