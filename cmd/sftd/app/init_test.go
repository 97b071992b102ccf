package sftd

import (
	"encoding/json"
	"testing"

	"github.com/iov-one/sftd/x/sft"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/crypto"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestGenInitOptions(t *testing.T) {
	addr := crypto.GenPrivKeyEd25519().PublicKey().Address()

	raw, err := GenInitOptions([]string{"IOV", addr.String()})
	assert.Nil(t, err)

	var opts weave.Options
	assert.Nil(t, json.Unmarshal(raw, &opts))

	var conf weave.Options
	assert.Nil(t, opts.ReadOptions("conf", &conf))
	var sftConf sft.Configuration
	assert.Nil(t, conf.ReadOptions("sft", &sftConf))
	assert.Equal(t, sft.MarketCondition().Address(), sftConf.Market)
	assert.Nil(t, sftConf.Validate())

	// A broken ticker must be refused.
	if _, err := GenInitOptions([]string{"not-a-ticker"}); err == nil {
		t.Fatal("an invalid ticker must be refused")
	}
}
