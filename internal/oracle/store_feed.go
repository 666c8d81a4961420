package oracle

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// ObservationReader returns the latest persisted price observation of an asset.
type ObservationReader interface {
	LatestPrice(ctx context.Context, asset common.Address) (Price, error)
}

// StoreFeed is a Feed backed by the observations a price feed runner persists.
type StoreFeed struct {
	reader ObservationReader
	asset  common.Address
}

// NewStoreFeed returns a feed reading asset's observations from reader.
func NewStoreFeed(reader ObservationReader, asset common.Address) *StoreFeed {
	return &StoreFeed{reader: reader, asset: asset}
}

// Latest implements Feed.
func (f *StoreFeed) Latest(ctx context.Context) (Price, error) {
	return f.reader.LatestPrice(ctx, f.asset)
}
