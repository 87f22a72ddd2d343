package oracle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/mintmesh/listing-ledger/internal/entity"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// royaltyOracle resolves royalties from an external royalty registry over
// HTTP. The registry returns a receiver and a rate in basis points per asset;
// rates are cached since they change rarely.
type royaltyOracle struct {
	client  *retryablehttp.Client
	baseUri string
	cache   *cache.Cache
}

type royaltyResponse struct {
	Receiver   string `json:"receiver"`
	RoyaltyBps uint64 `json:"royaltyBps"`
}

func NewRoyaltyOracle(client *retryablehttp.Client, baseUri string, c *cache.Cache) RoyaltyOracle {
	return royaltyOracle{client, baseUri, c}
}

func (o royaltyOracle) RoyaltyInfo(asset entity.AssetRef, salePrice uint64) (entity.Identity, uint64, error) {
	info, err := o.lookup(asset)
	if err != nil {
		return "", 0, err
	}

	if info.Receiver == "" || info.RoyaltyBps == 0 {
		return "", 0, nil
	}

	// Full 128-bit product; salePrice can sit near the uint64 ceiling.
	hi, lo := bits.Mul64(salePrice, info.RoyaltyBps)
	amount, _ := bits.Div64(hi, lo, 10000)

	return entity.Identity(info.Receiver), amount, nil
}

func (o royaltyOracle) lookup(asset entity.AssetRef) (royaltyResponse, error) {
	if cached, found := o.cache.Get(asset.String()); found {
		return cached.(royaltyResponse), nil
	}

	resp, err := o.client.Get(fmt.Sprintf("%s/royalties/%s", o.baseUri, asset.Contract))
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("contract", asset.Contract)).Error("RoyaltyOracle: Failed to get royalty info")
		return royaltyResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		// Collections without a registered royalty sell royalty-free.
		empty := royaltyResponse{}
		o.cache.Set(asset.String(), empty, 30*time.Minute)
		return empty, nil
	}

	if resp.StatusCode != 200 {
		return royaltyResponse{}, errors.New(resp.Status)
	}

	buf := new(bytes.Buffer)
	if _, err = buf.ReadFrom(resp.Body); err != nil {
		return royaltyResponse{}, err
	}

	var info royaltyResponse
	if err := json.Unmarshal(buf.Bytes(), &info); err != nil {
		return royaltyResponse{}, err
	}

	if info.RoyaltyBps > 10000 {
		info.RoyaltyBps = 10000
	}

	o.cache.Set(asset.String(), info, cache.DefaultExpiration)

	return info, nil
}
