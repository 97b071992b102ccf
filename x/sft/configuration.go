package sft

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
)

// MarketCondition is the deterministic marketplace identity. Its address is
// the usual value of the market configuration field.
func MarketCondition() weave.Condition {
	return weave.NewCondition("sft", "market", []byte("default"))
}

func (c *Configuration) Validate() error {
	// Owner field is optional. Without an owner only the migration admin
	// can update the configuration.
	if len(c.Owner) != 0 {
		if err := c.Owner.Validate(); err != nil {
			return errors.Wrap(err, "owner address")
		}
	}
	if len(c.Market) == 0 {
		return errors.Wrap(errors.ErrState, "market address missing")
	}
	if err := c.Market.Validate(); err != nil {
		return errors.Wrap(err, "market address")
	}
	if !c.StoragePrice.IsZero() {
		if err := c.StoragePrice.Validate(); err != nil {
			return errors.Wrap(err, "storage price")
		}
		if !c.StoragePrice.IsNonNegative() {
			return errors.Wrap(errors.ErrState, "storage price cannot be negative")
		}
	}
	if !c.DustThreshold.IsZero() {
		if err := c.DustThreshold.Validate(); err != nil {
			return errors.Wrap(err, "dust threshold")
		}
		if !c.DustThreshold.IsNonNegative() {
			return errors.Wrap(errors.ErrState, "dust threshold cannot be negative")
		}
	}
	if !c.TransferGuard.IsZero() {
		if err := c.TransferGuard.Validate(); err != nil {
			return errors.Wrap(err, "transfer guard")
		}
		if !c.TransferGuard.IsNonNegative() {
			return errors.Wrap(errors.ErrState, "transfer guard cannot be negative")
		}
	}
	return nil
}

func loadConf(db gconf.ReadStore) (Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, "sft", &conf); err != nil {
		return conf, errors.Wrap(err, "load configuration")
	}
	return conf, nil
}
