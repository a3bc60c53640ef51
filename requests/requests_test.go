package requests

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"gotest.tools/assert"
)

func TestBumpGasPrice(t *testing.T) {
	cases := []struct {
		original, suggested, want int64
	}{
		{100, 50, 110},
		{100, 200, 200},
		{101, 0, 112},
		{0, 0, 1},
		{5, 5, 6},
	}
	for _, c := range cases {
		got := BumpGasPrice(big.NewInt(c.original), big.NewInt(c.suggested))
		assert.Equal(t, got.Int64(), c.want, "original %d suggested %d", c.original, c.suggested)
	}
	assert.Equal(t, BumpGasPrice(nil, nil).Int64(), int64(1))
}

func TestBumpGasPriceDoesNotAlias(t *testing.T) {
	suggested := big.NewInt(500)
	got := BumpGasPrice(big.NewInt(1), suggested)
	got.SetInt64(0)
	assert.Equal(t, suggested.Int64(), int64(500))
}

func TestReplacementTx(t *testing.T) {
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	original := types.NewTx(&types.LegacyTx{
		Nonce:    7,
		To:       &to,
		Value:    big.NewInt(3),
		Gas:      50000,
		GasPrice: big.NewInt(100),
		Data:     []byte{0xa9, 0x05, 0x9c, 0xbb},
	})
	price := big.NewInt(110)

	speedUp, err := replacementTx(original, from, price, ReplaceSpeedUp)
	assert.NilError(t, err)
	assert.Equal(t, speedUp.Nonce, uint64(7))
	assert.Equal(t, *speedUp.To, to)
	assert.Equal(t, speedUp.Value.Int64(), int64(3))
	assert.Equal(t, speedUp.Gas, uint64(50000))
	assert.DeepEqual(t, speedUp.Data, []byte{0xa9, 0x05, 0x9c, 0xbb})
	assert.Equal(t, speedUp.GasPrice, price)

	cancel, err := replacementTx(original, from, price, ReplaceCancel)
	assert.NilError(t, err)
	assert.Equal(t, cancel.Nonce, uint64(7))
	assert.Equal(t, *cancel.To, from)
	assert.Equal(t, cancel.Value.Sign(), 0)
	assert.Equal(t, cancel.Gas, transferGas)
	assert.Equal(t, len(cancel.Data), 0)

	_, err = replacementTx(original, from, price, ReplaceMode(0))
	assert.ErrorContains(t, err, "unknown replace mode")
}

func TestReplaceModeString(t *testing.T) {
	assert.Equal(t, ReplaceSpeedUp.String(), "speed-up")
	assert.Equal(t, ReplaceCancel.String(), "cancel")
	assert.Equal(t, ReplaceMode(9).String(), "ReplaceMode(9)")
}
