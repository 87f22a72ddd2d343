package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/mintmesh/listing-ledger/internal/entity"
	"go.uber.org/zap"
)

// PlatformClient talks to the host platform's custody service, which owns the
// canonical asset ownership table and the per-operation payment escrow. It
// backs both the AssetOracle and the Currency collaborator.
type PlatformClient struct {
	client  *retryablehttp.Client
	baseUri string
	native  bool
}

func NewPlatformClient(client *retryablehttp.Client, baseUri string, native bool) *PlatformClient {
	return &PlatformClient{client, baseUri, native}
}

type ownerResponse struct {
	Owner string `json:"owner"`
}

type balanceResponse struct {
	Balance uint64 `json:"balance"`
}

type approvalResponse struct {
	Approved bool `json:"approved"`
}

func (p *PlatformClient) OwnerOf(asset entity.AssetRef) (entity.Identity, error) {
	var resp ownerResponse
	if err := p.get(fmt.Sprintf("/assets/%s/%s/owner", asset.Contract, asset.TokenId), &resp); err != nil {
		return "", err
	}
	return entity.Identity(resp.Owner), nil
}

func (p *PlatformClient) BalanceOf(identity entity.Identity, asset entity.AssetRef) (uint64, error) {
	var resp balanceResponse
	if err := p.get(fmt.Sprintf("/assets/%s/%s/balances/%s", asset.Contract, asset.TokenId, identity), &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

func (p *PlatformClient) IsApproved(identity, operator entity.Identity, asset entity.AssetRef) (bool, error) {
	var resp approvalResponse
	if err := p.get(fmt.Sprintf("/assets/%s/%s/approvals/%s/%s", asset.Contract, asset.TokenId, identity, operator), &resp); err != nil {
		return false, err
	}
	return resp.Approved, nil
}

type transferRequest struct {
	Contract string `json:"contract"`
	TokenId  string `json:"tokenId"`
	From     string `json:"from"`
	To       string `json:"to"`
	Quantity uint64 `json:"quantity"`
}

func (p *PlatformClient) Transfer(asset entity.AssetRef, from, to entity.Identity, quantity uint64) error {
	return p.post("/transfers", transferRequest{
		Contract: asset.Contract,
		TokenId:  asset.TokenId,
		From:     string(from),
		To:       string(to),
		Quantity: quantity,
	})
}

type paymentRequest struct {
	Identity string `json:"identity"`
	Amount   uint64 `json:"amount"`
}

func (p *PlatformClient) Pay(to entity.Identity, amount uint64) error {
	return p.post("/payments", paymentRequest{Identity: string(to), Amount: amount})
}

func (p *PlatformClient) Reclaim(from entity.Identity, amount uint64) error {
	return p.post("/reclaims", paymentRequest{Identity: string(from), Amount: amount})
}

func (p *PlatformClient) Native() bool {
	return p.native
}

func (p *PlatformClient) get(path string, v interface{}) error {
	resp, err := p.client.Get(p.baseUri + path)
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("path", path)).Error("Platform: Request failed")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("platform: %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

func (p *PlatformClient) post(path string, body interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := p.client.Post(p.baseUri+path, "application/json", bytes.NewReader(b))
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("path", path)).Error("Platform: Request failed")
		return ErrTransferDenied
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		zap.L().With(zap.String("path", path), zap.String("status", resp.Status)).Warn("Platform: Transfer denied")
		return ErrTransferDenied
	}

	return nil
}
