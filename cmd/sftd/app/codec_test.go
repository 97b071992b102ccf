package sftd

import (
	"testing"

	"github.com/iov-one/sftd/x/sft"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
	"github.com/iov-one/weave/x/cash"
)

func TestTxSumRoundTrip(t *testing.T) {
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()
	meta := &weave.Metadata{Schema: 1}
	guard := coin.NewCoin(0, 1, "IOV")

	// Every sum variant must survive a marshal and unmarshal cycle.
	cases := map[string]*Tx{
		"cash send": {Sum: &Tx_CashSendMsg{&cash.SendMsg{
			Metadata:    meta,
			Source:      alice,
			Destination: bob,
			Amount:      &coin.Coin{Whole: 7, Ticker: "IOV"},
			Memo:        "rent",
		}}},
		"migration upgrade schema": {Sum: &Tx_MigrationUpgradeSchemaMsg{&migration.UpgradeSchemaMsg{
			Metadata: meta,
			Pkg:      "sft",
		}}},
		"sft mint": {Sum: &Tx_SftMintMsg{&sft.MintMsg{
			Metadata:    meta,
			TokenId:     "solar-1",
			Amount:      5,
			Destination: alice,
			Details: &sft.TokenDetails{
				Title:        "Solar Farm Shares",
				PricePerUnit: coin.NewCoin(1, 0, "IOV"),
			},
		}}},
		"sft transfer": {Sum: &Tx_SftTransferMsg{&sft.TransferMsg{
			Metadata:    meta,
			Source:      alice,
			Destination: bob,
			TokenId:     "solar-1",
			Amount:      2,
			Payment:     guard,
		}}},
		"sft approve": {Sum: &Tx_SftApproveMsg{&sft.ApproveMsg{
			Metadata: meta,
			Source:   alice,
			Spender:  bob,
			TokenId:  "solar-1",
			Amount:   3,
		}}},
		"sft revoke": {Sum: &Tx_SftRevokeMsg{&sft.RevokeMsg{
			Metadata: meta,
			Source:   alice,
			Spender:  bob,
			TokenId:  "solar-1",
			Payment:  guard,
		}}},
		"sft transfer from": {Sum: &Tx_SftTransferFromMsg{&sft.TransferFromMsg{
			Metadata:    meta,
			Source:      bob,
			Owner:       alice,
			Destination: weavetest.NewCondition().Address(),
			TokenId:     "solar-1",
			Amount:      1,
			Payment:     guard,
		}}},
		"sft market buy": {Sum: &Tx_SftMarketBuyMsg{&sft.MarketBuyMsg{
			Metadata: meta,
			Source:   bob,
			Seller:   alice,
			TokenId:  "solar-1",
			Payment:  coin.NewCoin(1, 0, "IOV"),
		}}},
		"sft update configuration": {Sum: &Tx_SftUpdateConfigurationMsg{&sft.UpdateConfigurationMsg{
			Metadata: meta,
			Patch:    &sft.Configuration{Metadata: meta, Market: alice},
		}}},
	}
	for testName, tx := range cases {
		t.Run(testName, func(t *testing.T) {
			raw, err := tx.Marshal()
			assert.Nil(t, err)

			var decoded Tx
			assert.Nil(t, decoded.Unmarshal(raw))

			want, err := tx.GetMsg()
			assert.Nil(t, err)
			got, err := decoded.GetMsg()
			assert.Nil(t, err)
			assert.Equal(t, want.Path(), got.Path())
			assert.Equal(t, want, got)
		})
	}
}
