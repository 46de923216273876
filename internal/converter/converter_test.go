package converter

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

func TestConvertScenarios(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		from, to domain.AssetCode
		want     string
	}{
		{"zero with unknown assets", "0", "Anything", "Unknown", "0"},
		{"identity", "5", "A", "A", "5"},
		{"forward single hop", "5", "A", "B", "500"},
		{"forward two hops", "5", "A", "C", "100"},
		{"forward three hops", "5", "A", "D", "0.1"},
		{"reverse three hops", "5", "D", "A", "250"},
		{"fractional amount", "0.001", "C", "D", "0.000001"},
		{"large amount", "1000000", "A", "B", "100000000"},
		{"eighteen decimals", "1", "D", "F", "0.999999999999999999"},
	}

	conv := New(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := conv.Convert(context.Background(), Request{
				Amount:    decimal.RequireFromString(tt.amount),
				From:      tt.from,
				To:        tt.to,
				Transport: Direct{Oracle: testOracle()},
				Feeds:     testFeeds(),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertShortcutsSkipNetwork(t *testing.T) {
	oracle := testOracle()
	conv := New(nil, nil)

	got, err := conv.Convert(context.Background(), Request{
		Amount:    decimal.Zero,
		From:      "A",
		To:        "F",
		Transport: Direct{Oracle: oracle},
		Feeds:     testFeeds(),
	})
	require.NoError(t, err)
	assert.Equal(t, "0", got)

	got, err = conv.Convert(context.Background(), Request{
		Amount:    decimal.RequireFromString("12.3400"),
		From:      "Unlisted",
		To:        "Unlisted",
		Transport: Direct{Oracle: oracle},
	})
	require.NoError(t, err)
	assert.Equal(t, "12.34", got)

	assert.Zero(t, oracle.calls.Load())
}

func TestConvertMissingTransport(t *testing.T) {
	oracle := testOracle()
	conv := New(func(context.Context, string) (domain.OracleReader, func(), error) {
		t.Fatal("dialer must not be called")
		return nil, nil, nil
	}, nil)

	for name, transport := range map[string]Transport{
		"nil":          nil,
		"nil oracle":   Direct{},
		"nil pointer":  (*Remote)(nil),
		"blank remote": Remote{Endpoint: "  "},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := conv.Convert(context.Background(), Request{
				Amount:    decimal.RequireFromString("1"),
				From:      "A",
				To:        "A",
				Transport: transport,
				Feeds:     testFeeds(),
			})
			require.ErrorIs(t, err, domain.ErrTransportConfig)
			assert.Equal(t, "Either 'provider' or 'endpoint' must be defined", err.Error())
		})
	}
	assert.Zero(t, oracle.calls.Load())
}

func TestConvertRemoteDialsLazily(t *testing.T) {
	oracle := testOracle()
	var dialed []string
	released := 0
	conv := New(func(_ context.Context, endpoint string) (domain.OracleReader, func(), error) {
		dialed = append(dialed, endpoint)
		return oracle, func() { released++ }, nil
	}, nil)

	got, err := conv.Convert(context.Background(), Request{
		Amount:    decimal.RequireFromString("1"),
		From:      "A",
		To:        "A",
		Transport: Remote{Endpoint: "http://localhost:test"},
		Feeds:     testFeeds(),
	})
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	assert.Empty(t, dialed)

	got, err = conv.Convert(context.Background(), Request{
		Amount:    decimal.RequireFromString("5"),
		From:      "A",
		To:        "B",
		Transport: &Remote{Endpoint: "http://localhost:test"},
		Feeds:     testFeeds(),
	})
	require.NoError(t, err)
	assert.Equal(t, "500", got)
	assert.Equal(t, []string{"http://localhost:test"}, dialed)
	assert.Equal(t, 1, released)
}

func TestConvertDialFailure(t *testing.T) {
	boom := errors.New("dial tcp: refused")
	conv := New(func(context.Context, string) (domain.OracleReader, func(), error) {
		return nil, nil, boom
	}, nil)

	_, err := conv.Convert(context.Background(), Request{
		Amount:    decimal.RequireFromString("5"),
		From:      "A",
		To:        "B",
		Transport: Remote{Endpoint: "http://localhost:8545"},
		Feeds:     testFeeds(),
	})
	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
	assert.ErrorIs(t, err, boom)
}

func TestConvertNoRoute(t *testing.T) {
	oracle := testOracle()
	_, err := New(nil, nil).Convert(context.Background(), Request{
		Amount:    decimal.RequireFromString("1"),
		From:      "A",
		To:        "Z",
		Transport: Direct{Oracle: oracle},
		Feeds:     testFeeds(),
	})
	require.ErrorIs(t, err, domain.ErrNoRouteFound)
	assert.Contains(t, err.Error(), "from A to Z")
	assert.Zero(t, oracle.calls.Load())
}

func TestConvertPropagatesOracleErrors(t *testing.T) {
	oracle := testOracle()
	oracle.answers[common.HexToAddress("0xBC")] = decimal.Zero.BigInt()

	_, err := New(nil, nil).Convert(context.Background(), Request{
		Amount:    decimal.RequireFromString("1"),
		From:      "A",
		To:        "C",
		Transport: Direct{Oracle: oracle},
		Feeds:     testFeeds(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAnswer)
}

func TestConvertSingleHopProperties(t *testing.T) {
	// feed X/Y = 2.5 @ 6 decimals
	feeds := []domain.Feed{feed(0, "X", "Y", "0x99", 6)}
	oracle := newFakeOracle().set("0x99", "2500000")
	conv := New(nil, nil)

	for _, n := range []string{"1", "3", "0.4", "1234.5678"} {
		amount := decimal.RequireFromString(n)

		fwd, err := conv.Convert(context.Background(), Request{Amount: amount, From: "X", To: "Y", Transport: Direct{Oracle: oracle}, Feeds: feeds})
		require.NoError(t, err)
		assert.True(t, amount.Mul(decimal.RequireFromString("2.5")).Equal(decimal.RequireFromString(fwd)), "forward %s", n)

		rev, err := conv.Convert(context.Background(), Request{Amount: amount, From: "Y", To: "X", Transport: Direct{Oracle: oracle}, Feeds: feeds})
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString(rev).Mul(decimal.RequireFromString("2.5")).Equal(amount), "reverse %s", n)
	}
}

func TestTransportFrom(t *testing.T) {
	oracle := testOracle()

	tr, err := TransportFrom(oracle, "")
	require.NoError(t, err)
	assert.Equal(t, Direct{Oracle: oracle}, tr)

	tr, err = TransportFrom(nil, " http://node:8545 ")
	require.NoError(t, err)
	assert.Equal(t, Remote{Endpoint: "http://node:8545"}, tr)

	_, err = TransportFrom(nil, "")
	assert.ErrorIs(t, err, domain.ErrTransportConfig)

	_, err = TransportFrom(oracle, "http://node:8545")
	assert.ErrorIs(t, err, domain.ErrTransportConfig)
}
