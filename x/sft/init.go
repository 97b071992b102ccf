package sft

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/gconf"
)

// Initializer fulfils the Initializer interface to load data from the
// genesis file.
type Initializer struct{}

var _ weave.Initializer = (*Initializer)(nil)

// FromGenesis will parse the package configuration from genesis and save it
// in the database.
func (*Initializer) FromGenesis(opts weave.Options, params weave.GenesisParams, kv weave.KVStore) error {
	return gconf.InitConfig(kv, opts, "sft", &Configuration{})
}
