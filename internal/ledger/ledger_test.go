package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mintmesh/listing-ledger/internal/entity"
	"github.com/mintmesh/listing-ledger/internal/oracle"
)

type fakeAssets struct {
	owners    map[string]entity.Identity
	balances  map[string]uint64
	approvals map[string]bool
	transfers []string
	failOn    string
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{
		owners:    make(map[string]entity.Identity),
		balances:  make(map[string]uint64),
		approvals: make(map[string]bool),
	}
}

func balanceKey(identity entity.Identity, asset entity.AssetRef) string {
	return fmt.Sprintf("%s|%s", identity, asset)
}

func (f *fakeAssets) OwnerOf(asset entity.AssetRef) (entity.Identity, error) {
	owner, ok := f.owners[asset.String()]
	if !ok {
		return "", errors.New("unknown asset")
	}
	return owner, nil
}

func (f *fakeAssets) BalanceOf(identity entity.Identity, asset entity.AssetRef) (uint64, error) {
	return f.balances[balanceKey(identity, asset)], nil
}

func (f *fakeAssets) IsApproved(identity, operator entity.Identity, asset entity.AssetRef) (bool, error) {
	return f.approvals[string(identity)], nil
}

func (f *fakeAssets) Transfer(asset entity.AssetRef, from, to entity.Identity, quantity uint64) error {
	if f.failOn == string(from) {
		return oracle.ErrTransferDenied
	}
	key := balanceKey(from, asset)
	if f.balances[key] < quantity {
		return oracle.ErrTransferDenied
	}
	f.balances[key] -= quantity
	f.balances[balanceKey(to, asset)] += quantity
	if owner, ok := f.owners[asset.String()]; ok && owner == from {
		f.owners[asset.String()] = to
	}
	f.transfers = append(f.transfers, fmt.Sprintf("%s->%s:%d", from, to, quantity))
	return nil
}

type fakeCurrency struct {
	native   bool
	paid     map[entity.Identity]uint64
	failPay  entity.Identity
	onPay    func(to entity.Identity, amount uint64)
	payments int
}

func newFakeCurrency(native bool) *fakeCurrency {
	return &fakeCurrency{native: native, paid: make(map[entity.Identity]uint64)}
}

func (f *fakeCurrency) Pay(to entity.Identity, amount uint64) error {
	if f.onPay != nil {
		f.onPay(to, amount)
	}
	if to == f.failPay {
		return oracle.ErrTransferDenied
	}
	f.paid[to] += amount
	f.payments++
	return nil
}

func (f *fakeCurrency) Reclaim(from entity.Identity, amount uint64) error {
	if f.paid[from] < amount {
		return errors.New("escrow out of balance")
	}
	f.paid[from] -= amount
	return nil
}

func (f *fakeCurrency) Native() bool { return f.native }

type fakeRoyalty struct {
	receiver entity.Identity
	bps      uint64
}

func (f fakeRoyalty) RoyaltyInfo(asset entity.AssetRef, salePrice uint64) (entity.Identity, uint64, error) {
	return f.receiver, salePrice * f.bps / 10000, nil
}

type fixture struct {
	ledger   *Ledger
	assets   *fakeAssets
	currency *fakeCurrency
}

func newFixture(cfg Config, royalty oracle.RoyaltyOracle) *fixture {
	if cfg.FeeReceiver == "" {
		cfg.FeeReceiver = "platform"
	}
	if cfg.Operator == "" {
		cfg.Operator = "marketplace"
	}
	assets := newFakeAssets()
	currency := newFakeCurrency(true)
	if royalty == nil {
		royalty = fakeRoyalty{}
	}
	roles := oracle.StaticRoles{"admin": {oracle.AdminRole, oracle.PauserRole}}
	return &fixture{
		ledger:   NewLedger(cfg, assets, currency, royalty, roles),
		assets:   assets,
		currency: currency,
	}
}

func (f *fixture) listUnique(t *testing.T, seller entity.Identity, price uint64) uint64 {
	t.Helper()
	asset := entity.AssetRef{Contract: "0xduck", TokenId: "1"}
	f.assets.owners[asset.String()] = seller
	f.assets.balances[balanceKey(seller, asset)] = 1
	f.assets.approvals[string(seller)] = true

	id, err := f.ledger.CreateListing(seller, asset, entity.UniqueToken, price, 1)
	if err != nil {
		t.Fatalf("create unique listing: %v", err)
	}
	return id
}

func (f *fixture) listFungible(t *testing.T, seller entity.Identity, contract string, price, quantity uint64) uint64 {
	t.Helper()
	asset := entity.AssetRef{Contract: contract}
	f.assets.balances[balanceKey(seller, asset)] = quantity
	f.assets.approvals[string(seller)] = true

	id, err := f.ledger.CreateListing(seller, asset, entity.FungibleToken, price, quantity)
	if err != nil {
		t.Fatalf("create fungible listing: %v", err)
	}
	return id
}

func TestCreateListingRoundTrip(t *testing.T) {
	f := newFixture(Config{FeeBps: 250}, nil)
	id := f.listFungible(t, "seller", "0xtoken", 10, 50)

	listing, err := f.ledger.GetListing(id)
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if listing.Id != id || listing.Seller != "seller" || listing.UnitPrice != 10 || listing.Quantity != 50 || !listing.Active {
		t.Fatalf("unexpected listing: %+v", listing)
	}
	if len(f.ledger.ActiveListings()) != 1 {
		t.Fatalf("expected 1 active listing")
	}
}

func TestCreateListingValidation(t *testing.T) {
	f := newFixture(Config{}, nil)
	asset := entity.AssetRef{Contract: "0xduck", TokenId: "7"}
	f.assets.owners[asset.String()] = "seller"
	f.assets.approvals["seller"] = true

	tests := []struct {
		name     string
		seller   entity.Identity
		kind     entity.TokenKind
		price    uint64
		quantity uint64
		wantErr  error
	}{
		{"unknown kind", "seller", entity.TokenKind("erc20"), 10, 1, ErrInvalidTokenType},
		{"zero price", "seller", entity.UniqueToken, 0, 1, ErrInvalidQuantity},
		{"unique quantity two", "seller", entity.UniqueToken, 10, 2, ErrInvalidQuantity},
		{"not the owner", "mallory", entity.UniqueToken, 10, 1, ErrUnauthorized},
		{"fungible zero quantity", "seller", entity.FungibleToken, 10, 0, ErrInvalidQuantity},
		{"fungible no balance", "seller", entity.FungibleToken, 10, 5, ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.CreateListing(tt.seller, asset, tt.kind, tt.price, tt.quantity)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
		})
	}

	if len(f.ledger.ActiveListings()) != 0 {
		t.Fatalf("rejected creates must not mutate the ledger")
	}
}

func TestCreateListingRequiresApproval(t *testing.T) {
	f := newFixture(Config{}, nil)
	asset := entity.AssetRef{Contract: "0xduck", TokenId: "9"}
	f.assets.owners[asset.String()] = "seller"

	if _, err := f.ledger.CreateListing("seller", asset, entity.UniqueToken, 10, 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized without operator approval, got %v", err)
	}
}

func TestUpdateListingChangesOnlyPrice(t *testing.T) {
	f := newFixture(Config{}, nil)
	id := f.listFungible(t, "seller", "0xtoken", 10, 50)

	if err := f.ledger.UpdateListing(id, "mallory", 20); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if err := f.ledger.UpdateListing(id, "seller", 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("want ErrInvalidQuantity, got %v", err)
	}
	if err := f.ledger.UpdateListing(id, "seller", 20); err != nil {
		t.Fatalf("update: %v", err)
	}

	listing, _ := f.ledger.GetListing(id)
	if listing.UnitPrice != 20 || listing.Quantity != 50 || !listing.Active {
		t.Fatalf("update must change only the price: %+v", listing)
	}
}

func TestCancelListingIdempotence(t *testing.T) {
	f := newFixture(Config{}, nil)
	id := f.listFungible(t, "seller", "0xtoken", 10, 50)

	if err := f.ledger.CancelListing(id, "seller"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	listing, _ := f.ledger.GetListing(id)
	if listing.Active {
		t.Fatalf("canceled listing still active")
	}
	if len(f.ledger.ActiveListings()) != 0 {
		t.Fatalf("canceled listing still indexed")
	}

	// Second cancel fails and leaves state untouched.
	if err := f.ledger.CancelListing(id, "seller"); !errors.Is(err, ErrInvalidListing) {
		t.Fatalf("want ErrInvalidListing, got %v", err)
	}
}

func TestCancelListingPrivileged(t *testing.T) {
	f := newFixture(Config{}, nil)
	id := f.listFungible(t, "seller", "0xtoken", 10, 50)

	if err := f.ledger.CancelListing(id, "mallory"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if err := f.ledger.CancelListing(id, "admin"); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
}

func TestCancelSwapPop(t *testing.T) {
	f := newFixture(Config{}, nil)
	a := f.listFungible(t, "seller", "0xalpha", 10, 5)
	b := f.listFungible(t, "seller2", "0xbeta", 10, 5)

	if err := f.ledger.CancelListing(a, "seller"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	active := f.ledger.ActiveListings()
	if len(active) != 1 || active[0].Id != b {
		t.Fatalf("expected only listing %d active, got %+v", b, active)
	}
}

func TestBuyUniqueListingFeeSplit(t *testing.T) {
	f := newFixture(Config{FeeBps: 1000}, nil)
	id := f.listUnique(t, "seller", 100)

	receipt, err := f.ledger.BuyListing(id, "buyer", 1, 100)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}

	if receipt.TotalPrice != 100 || receipt.PlatformFee != 10 || receipt.SellerShare != 90 || receipt.RoyaltyAmount != 0 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if f.currency.paid["seller"] != 90 || f.currency.paid["platform"] != 10 {
		t.Fatalf("payouts wrong: %+v", f.currency.paid)
	}

	listing, _ := f.ledger.GetListing(id)
	if listing.Active || listing.Quantity != 0 {
		t.Fatalf("sold-out listing must deactivate: %+v", listing)
	}
	if len(f.ledger.ActiveListings()) != 0 {
		t.Fatalf("sold-out listing still indexed")
	}

	asset := entity.AssetRef{Contract: "0xduck", TokenId: "1"}
	if owner, _ := f.assets.OwnerOf(asset); owner != "buyer" {
		t.Fatalf("asset owner not transferred: %s", owner)
	}
}

func TestBuyPartialQuantityKeepsListingActive(t *testing.T) {
	f := newFixture(Config{FeeBps: 250}, nil)
	id := f.listFungible(t, "seller", "0xtoken", 10, 50)

	receipt, err := f.ledger.BuyListing(id, "buyer", 20, 200)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if receipt.TotalPrice != 200 {
		t.Fatalf("unexpected total: %d", receipt.TotalPrice)
	}

	listing, _ := f.ledger.GetListing(id)
	if !listing.Active || listing.Quantity != 30 {
		t.Fatalf("expected active listing with quantity 30: %+v", listing)
	}
	if len(f.ledger.ActiveListings()) != 1 {
		t.Fatalf("partially sold listing must stay indexed")
	}
}

func TestBuyWithRoyalty(t *testing.T) {
	f := newFixture(Config{FeeBps: 1000}, fakeRoyalty{receiver: "creator", bps: 500})
	id := f.listUnique(t, "seller", 1000)

	receipt, err := f.ledger.BuyListing(id, "buyer", 1, 1000)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}

	if receipt.PlatformFee+receipt.RoyaltyAmount+receipt.SellerShare != receipt.TotalPrice {
		t.Fatalf("fee split does not sum to total: %+v", receipt)
	}
	if receipt.PlatformFee != 100 || receipt.RoyaltyAmount != 50 || receipt.SellerShare != 850 {
		t.Fatalf("unexpected split: %+v", receipt)
	}
	if f.currency.paid["creator"] != 50 {
		t.Fatalf("royalty not paid: %+v", f.currency.paid)
	}
}

func TestBuyValidation(t *testing.T) {
	f := newFixture(Config{FeeBps: 250}, nil)
	id := f.listFungible(t, "seller", "0xtoken", 10, 50)

	tests := []struct {
		name     string
		buyer    entity.Identity
		quantity uint64
		payment  uint64
		wantErr  error
	}{
		{"own listing", "seller", 1, 10, ErrSellerCannotBuyOwnListing},
		{"zero quantity", "buyer", 0, 0, ErrInvalidQuantity},
		{"over availability", "buyer", 51, 510, ErrInsufficientBalance},
		{"underpaid", "buyer", 10, 99, ErrIncorrectPaymentAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.BuyListing(id, tt.buyer, tt.quantity, tt.payment)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := f.ledger.BuyListing(99, "buyer", 1, 10); !errors.Is(err, ErrListingNotFound) {
		t.Fatalf("want ErrListingNotFound, got %v", err)
	}

	// Failed purchases leave the listing untouched.
	listing, _ := f.ledger.GetListing(id)
	if listing.Quantity != 50 || !listing.Active {
		t.Fatalf("failed buys must not mutate state: %+v", listing)
	}
	if f.currency.payments != 0 {
		t.Fatalf("failed buys must not pay anyone")
	}
}

func TestBuyNativeOverpaymentRefunded(t *testing.T) {
	f := newFixture(Config{FeeBps: 0}, nil)
	id := f.listFungible(t, "seller", "0xtoken", 10, 50)

	receipt, err := f.ledger.BuyListing(id, "buyer", 10, 150)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if receipt.RefundedAmount != 50 {
		t.Fatalf("expected 50 refunded, got %d", receipt.RefundedAmount)
	}
	if f.currency.paid["buyer"] != 50 {
		t.Fatalf("refund not paid: %+v", f.currency.paid)
	}
}

func TestBuyTokenOverpaymentRequiresExactByDefault(t *testing.T) {
	f := newFixture(Config{FeeBps: 0}, nil)
	f.currency.native = false
	id := f.listFungible(t, "seller", "0xtoken", 10, 50)

	if _, err := f.ledger.BuyListing(id, "buyer", 10, 150); !errors.Is(err, ErrIncorrectPaymentAmount) {
		t.Fatalf("want ErrIncorrectPaymentAmount, got %v", err)
	}

	// With the refund toggle on, token settlement behaves like native.
	f2 := newFixture(Config{FeeBps: 0, RefundTokenOverpayment: true}, nil)
	f2.currency.native = false
	id2 := f2.listFungible(t, "seller", "0xtoken", 10, 50)

	receipt, err := f2.ledger.BuyListing(id2, "buyer", 10, 150)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if receipt.RefundedAmount != 50 {
		t.Fatalf("expected refund, got %+v", receipt)
	}
}

func TestBuyTransferFailureRollsBack(t *testing.T) {
	f := newFixture(Config{FeeBps: 1000}, nil)
	id := f.listUnique(t, "seller", 100)
	f.assets.failOn = "seller"

	_, err := f.ledger.BuyListing(id, "buyer", 1, 100)
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("want ErrTransferFailed, got %v", err)
	}

	// Completed payouts were reclaimed and the listing is still for sale.
	if f.currency.paid["seller"] != 0 || f.currency.paid["platform"] != 0 {
		t.Fatalf("payouts not unwound: %+v", f.currency.paid)
	}
	listing, _ := f.ledger.GetListing(id)
	if !listing.Active || listing.Quantity != 1 {
		t.Fatalf("failed buy mutated the listing: %+v", listing)
	}
}

func TestBuyBatch(t *testing.T) {
	f := newFixture(Config{FeeBps: 1000}, nil)
	a := f.listFungible(t, "alice", "0xalpha", 10, 5)
	b := f.listFungible(t, "bob", "0xbeta", 20, 5)

	receipts, err := f.ledger.BuyListingsBatch("buyer", []uint64{a, b}, []uint64{2, 3}, 80)
	if err != nil {
		t.Fatalf("batch buy: %v", err)
	}
	if len(receipts) != 2 {
		t.Fatalf("expected 2 receipts, got %d", len(receipts))
	}

	// Aggregate fee: floor(20*0.1) + floor(60*0.1) paid in one transfer.
	if f.currency.paid["platform"] != 8 {
		t.Fatalf("aggregate fee wrong: %+v", f.currency.paid)
	}
	if f.currency.paid["alice"] != 18 || f.currency.paid["bob"] != 54 {
		t.Fatalf("seller proceeds wrong: %+v", f.currency.paid)
	}

	la, _ := f.ledger.GetListing(a)
	lb, _ := f.ledger.GetListing(b)
	if la.Quantity != 3 || lb.Quantity != 2 {
		t.Fatalf("quantities wrong: %d %d", la.Quantity, lb.Quantity)
	}
}

func TestBuyBatchMismatchedLengths(t *testing.T) {
	f := newFixture(Config{}, nil)
	if _, err := f.ledger.BuyListingsBatch("buyer", []uint64{1, 2}, []uint64{1}, 100); !errors.Is(err, ErrMismatchedInputLengths) {
		t.Fatalf("want ErrMismatchedInputLengths, got %v", err)
	}
}

func TestBuyBatchRejectsIntraBatchDoubleSpend(t *testing.T) {
	f := newFixture(Config{}, nil)
	id := f.listFungible(t, "seller", "0xtoken", 10, 5)

	// 3 + 3 exceeds the 5 available even though each item alone fits.
	_, err := f.ledger.BuyListingsBatch("buyer", []uint64{id, id}, []uint64{3, 3}, 60)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}

	listing, _ := f.ledger.GetListing(id)
	if listing.Quantity != 5 {
		t.Fatalf("failed batch mutated the listing: %+v", listing)
	}
}

func TestBuyBatchSecondTransferFailureRevertsFirst(t *testing.T) {
	f := newFixture(Config{FeeBps: 1000}, nil)
	a := f.listFungible(t, "alice", "0xalpha", 10, 5)
	b := f.listFungible(t, "bob", "0xbeta", 20, 5)
	f.assets.failOn = "bob"

	_, err := f.ledger.BuyListingsBatch("buyer", []uint64{a, b}, []uint64{2, 3}, 80)
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("want ErrTransferFailed, got %v", err)
	}

	// Alice's asset transfer completed before bob's failed; it must have been
	// transferred back.
	alpha := entity.AssetRef{Contract: "0xalpha"}
	if bal, _ := f.assets.BalanceOf("alice", alpha); bal != 5 {
		t.Fatalf("first item's asset transfer not reverted: balance %d", bal)
	}
	if f.currency.paid["alice"] != 0 || f.currency.paid["platform"] != 0 {
		t.Fatalf("payouts not unwound: %+v", f.currency.paid)
	}

	la, _ := f.ledger.GetListing(a)
	lb, _ := f.ledger.GetListing(b)
	if la.Quantity != 5 || lb.Quantity != 5 {
		t.Fatalf("failed batch mutated quantities: %d %d", la.Quantity, lb.Quantity)
	}
}

func TestPauseGatesMutatingOperations(t *testing.T) {
	f := newFixture(Config{}, nil)
	id := f.listFungible(t, "seller", "0xtoken", 10, 50)

	if err := f.ledger.Pause("mallory"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if err := f.ledger.Pause("admin"); err != nil {
		t.Fatalf("pause: %v", err)
	}

	if _, err := f.ledger.BuyListing(id, "buyer", 1, 10); !errors.Is(err, ErrOperationRejected) {
		t.Fatalf("want ErrOperationRejected, got %v", err)
	}
	if err := f.ledger.CancelListing(id, "seller"); !errors.Is(err, ErrOperationRejected) {
		t.Fatalf("want ErrOperationRejected, got %v", err)
	}

	if err := f.ledger.Unpause("admin"); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if _, err := f.ledger.BuyListing(id, "buyer", 1, 10); err != nil {
		t.Fatalf("buy after unpause: %v", err)
	}
}

func TestReentrantCallbackRejected(t *testing.T) {
	f := newFixture(Config{FeeBps: 1000}, nil)
	id := f.listUnique(t, "seller", 100)

	var reentrantErr error
	f.currency.onPay = func(to entity.Identity, amount uint64) {
		// A malicious payee calling back into the ledger mid-settlement.
		_, reentrantErr = f.ledger.BuyListing(id, "buyer2", 1, 100)
	}

	if _, err := f.ledger.BuyListing(id, "buyer", 1, 100); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if !errors.Is(reentrantErr, ErrReentrantCall) {
		t.Fatalf("want ErrReentrantCall, got %v", reentrantErr)
	}
}

func TestSetFee(t *testing.T) {
	f := newFixture(Config{FeeBps: 250}, nil)

	if err := f.ledger.SetFee("mallory", 500, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if err := f.ledger.SetFee("admin", 10001, ""); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("want ErrInvalidQuantity, got %v", err)
	}
	if err := f.ledger.SetFee("admin", 500, "treasury"); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	if f.ledger.FeeBps() != 500 {
		t.Fatalf("fee not updated: %d", f.ledger.FeeBps())
	}
}

func TestListingIdsNeverReused(t *testing.T) {
	f := newFixture(Config{}, nil)
	a := f.listFungible(t, "seller", "0xalpha", 10, 5)
	if err := f.ledger.CancelListing(a, "seller"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	b := f.listFungible(t, "seller", "0xbeta", 10, 5)
	if b <= a {
		t.Fatalf("listing id reused: %d after %d", b, a)
	}
}
