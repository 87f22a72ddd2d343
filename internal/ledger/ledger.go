package ledger

import (
	"sync"
	"sync/atomic"

	"github.com/mintmesh/listing-ledger/internal/entity"
	"github.com/mintmesh/listing-ledger/internal/event"
	"github.com/mintmesh/listing-ledger/internal/oracle"
	"github.com/nu7hatch/gouuid"
	"go.uber.org/zap"
)

type Config struct {
	FeeBps      uint
	FeeReceiver entity.Identity

	// Operator is the marketplace identity sellers must approve before their
	// assets can be escrow-transferred at settlement time.
	Operator entity.Identity

	// RefundTokenOverpayment controls whether token-currency settlement
	// refunds excess payment like native settlement does, or requires the
	// exact amount. Both behaviours exist in the wild; pick per deployment.
	RefundTokenOverpayment bool
}

// Ledger is the transactional registry of asset listings. All mutating
// operations run one at a time behind an acquire-or-reject guard; a failing
// operation leaves the registry exactly as it found it.
type Ledger struct {
	cfg       Config
	assets    oracle.AssetOracle
	currency  oracle.Currency
	royalties oracle.RoyaltyOracle
	roles     oracle.RoleChecker

	entered int32
	mu      sync.RWMutex
	paused  bool
	nextId  uint64
	records map[uint64]*entity.Listing
	index   *ActiveIndex
}

func NewLedger(cfg Config, assets oracle.AssetOracle, currency oracle.Currency, royalties oracle.RoyaltyOracle, roles oracle.RoleChecker) *Ledger {
	return &Ledger{
		cfg:       cfg,
		assets:    assets,
		currency:  currency,
		royalties: royalties,
		roles:     roles,
		nextId:    1,
		records:   make(map[uint64]*entity.Listing),
		index:     NewActiveIndex(),
	}
}

// enter rejects any operation that starts while another is in flight. The
// platform serializes top-level operations, so an overlapping call can only
// be a re-entrant callback from a transfer collaborator.
func (l *Ledger) enter() error {
	if !atomic.CompareAndSwapInt32(&l.entered, 0, 1) {
		return ErrReentrantCall
	}
	if l.isPaused() {
		atomic.StoreInt32(&l.entered, 0)
		return ErrOperationRejected
	}
	return nil
}

func (l *Ledger) exit() {
	atomic.StoreInt32(&l.entered, 0)
}

func (l *Ledger) isPaused() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.paused
}

func (l *Ledger) CreateListing(seller entity.Identity, asset entity.AssetRef, kind entity.TokenKind, unitPrice, quantity uint64) (uint64, error) {
	if err := l.enter(); err != nil {
		return 0, err
	}
	defer l.exit()

	if !kind.Valid() {
		return 0, ErrInvalidTokenType
	}
	if unitPrice == 0 {
		return 0, ErrInvalidQuantity
	}

	switch kind {
	case entity.UniqueToken:
		if quantity != 1 {
			return 0, ErrInvalidQuantity
		}
		owner, err := l.assets.OwnerOf(asset)
		if err != nil || owner != seller {
			return 0, ErrUnauthorized
		}
	case entity.FungibleToken:
		if quantity == 0 {
			return 0, ErrInvalidQuantity
		}
		balance, err := l.assets.BalanceOf(seller, asset)
		if err != nil {
			return 0, ErrUnauthorized
		}
		if balance < quantity {
			return 0, ErrInsufficientBalance
		}
	}

	approved, err := l.assets.IsApproved(seller, l.cfg.Operator, asset)
	if err != nil || !approved {
		return 0, ErrUnauthorized
	}

	l.mu.Lock()
	id := l.nextId
	l.nextId++
	l.records[id] = &entity.Listing{
		Id:        id,
		Seller:    seller,
		Asset:     asset,
		UnitPrice: unitPrice,
		Quantity:  quantity,
		TokenKind: kind,
		Active:    true,
	}
	l.index.Append(id)
	l.mu.Unlock()

	zap.L().With(
		zap.Uint64("listingId", id),
		zap.String("seller", string(seller)),
		zap.String("contract", asset.Contract),
		zap.Uint64("unitPrice", unitPrice),
		zap.Uint64("quantity", quantity),
	).Info("Ledger: Listing created")

	event.EmitEvent(event.ListingCreatedEvent, entity.ListingCreated{
		ListingId: id,
		Seller:    seller,
		Asset:     asset,
		TokenKind: kind,
		UnitPrice: unitPrice,
		Quantity:  quantity,
	})

	return id, nil
}

func (l *Ledger) UpdateListing(id uint64, caller entity.Identity, newPrice uint64) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()

	l.mu.Lock()
	listing, err := l.activeListing(id)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	if listing.Seller != caller {
		l.mu.Unlock()
		return ErrUnauthorized
	}
	if newPrice == 0 {
		l.mu.Unlock()
		return ErrInvalidQuantity
	}

	oldPrice := listing.UnitPrice
	listing.UnitPrice = newPrice
	seller := listing.Seller
	l.mu.Unlock()

	event.EmitEvent(event.ListingUpdatedEvent, entity.ListingUpdated{
		ListingId: id,
		Seller:    seller,
		OldPrice:  oldPrice,
		NewPrice:  newPrice,
	})

	return nil
}

func (l *Ledger) CancelListing(id uint64, caller entity.Identity) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()

	l.mu.Lock()
	listing, err := l.activeListing(id)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	if listing.Seller != caller && !l.roles.HasRole(caller, oracle.AdminRole) {
		l.mu.Unlock()
		return ErrUnauthorized
	}

	l.index.Remove(id)
	listing.Active = false
	seller := listing.Seller
	l.mu.Unlock()

	zap.L().With(zap.Uint64("listingId", id), zap.String("caller", string(caller))).Info("Ledger: Listing canceled")

	event.EmitEvent(event.ListingCanceledEvent, entity.ListingCanceled{
		ListingId: id,
		Seller:    seller,
		Caller:    caller,
	})

	return nil
}

func (l *Ledger) BuyListing(id uint64, buyer entity.Identity, quantity, paymentSent uint64) (entity.Receipt, error) {
	if err := l.enter(); err != nil {
		return entity.Receipt{}, err
	}
	defer l.exit()

	l.mu.RLock()
	listing, err := l.activeListing(id)
	if err != nil {
		l.mu.RUnlock()
		return entity.Receipt{}, err
	}
	snapshot := *listing
	feeBps := l.cfg.FeeBps
	l.mu.RUnlock()

	total, excess, err := l.validatePurchase(snapshot, buyer, quantity, paymentSent)
	if err != nil {
		return entity.Receipt{}, err
	}

	royaltyReceiver, royalty, err := l.royalties.RoyaltyInfo(snapshot.Asset, total)
	if err != nil {
		return entity.Receipt{}, err
	}

	split := SplitPrice(total, feeBps, royalty)

	var s settlement
	l.addPayoutSteps(&s, snapshot, buyer, quantity, split, royaltyReceiver)
	l.addRefundStep(&s, buyer, excess)
	if err := s.execute(); err != nil {
		return entity.Receipt{}, err
	}

	l.mu.Lock()
	l.settle(listing, quantity)
	l.mu.Unlock()

	l.emitPurchase(snapshot, buyer, quantity, split)

	return l.receipt(snapshot, buyer, quantity, split, excess), nil
}

func (l *Ledger) BuyListingsBatch(buyer entity.Identity, ids []uint64, quantities []uint64, paymentSent uint64) ([]entity.Receipt, error) {
	if err := l.enter(); err != nil {
		return nil, err
	}
	defer l.exit()

	if len(ids) != len(quantities) {
		return nil, ErrMismatchedInputLengths
	}

	// Validate every item against the quantities already claimed by earlier
	// items in the same batch, so a listing cannot be double-spent within one
	// call.
	l.mu.RLock()
	snapshots := make([]entity.Listing, len(ids))
	claimed := make(map[uint64]uint64)
	var batchTotal, batchFee uint64
	splits := make([]FeeSplit, len(ids))
	for i, id := range ids {
		listing, err := l.activeListing(id)
		if err != nil {
			l.mu.RUnlock()
			return nil, err
		}
		snapshots[i] = *listing

		available := listing.Quantity - claimed[id]
		total, err := l.validatePurchaseAgainst(snapshots[i], buyer, quantities[i], available)
		if err != nil {
			l.mu.RUnlock()
			return nil, err
		}
		claimed[id] += quantities[i]

		// Batch purchases settle without creator royalties; the whole
		// platform fee moves in one aggregate transfer below.
		splits[i] = SplitPrice(total, l.cfg.FeeBps, 0)
		batchTotal += total
		batchFee += splits[i].PlatformFee
	}
	l.mu.RUnlock()

	excess, err := l.validatePayment(batchTotal, paymentSent)
	if err != nil {
		return nil, err
	}

	// One aggregate fee transfer for the whole batch, then per-item seller
	// proceeds and asset transfers.
	var s settlement
	if batchFee > 0 {
		fee := batchFee
		s.add("platform fee",
			func() error { return l.currency.Pay(l.cfg.FeeReceiver, fee) },
			func() error { return l.currency.Reclaim(l.cfg.FeeReceiver, fee) },
		)
	}
	for i := range ids {
		snapshot := snapshots[i]
		quantity := quantities[i]
		share := splits[i].SellerShare
		s.add("seller proceeds",
			func() error { return l.currency.Pay(snapshot.Seller, share) },
			func() error { return l.currency.Reclaim(snapshot.Seller, share) },
		)
		s.add("asset transfer",
			func() error { return l.assets.Transfer(snapshot.Asset, snapshot.Seller, buyer, quantity) },
			func() error { return l.assets.Transfer(snapshot.Asset, buyer, snapshot.Seller, quantity) },
		)
	}
	l.addRefundStep(&s, buyer, excess)

	if err := s.execute(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	for i, id := range ids {
		l.settle(l.records[id], quantities[i])
	}
	l.mu.Unlock()

	receipts := make([]entity.Receipt, len(ids))
	for i := range ids {
		l.emitPurchase(snapshots[i], buyer, quantities[i], splits[i])
		refund := uint64(0)
		if i == len(ids)-1 {
			refund = excess
		}
		receipts[i] = l.receipt(snapshots[i], buyer, quantities[i], splits[i], refund)
	}

	return receipts, nil
}

// activeListing resolves an id to a live listing. Callers hold l.mu.
func (l *Ledger) activeListing(id uint64) (*entity.Listing, error) {
	listing, exists := l.records[id]
	if !exists {
		return nil, ErrListingNotFound
	}
	if !listing.Active {
		return nil, ErrInvalidListing
	}
	return listing, nil
}

func (l *Ledger) validatePurchase(listing entity.Listing, buyer entity.Identity, quantity, paymentSent uint64) (total, excess uint64, err error) {
	total, err = l.validatePurchaseAgainst(listing, buyer, quantity, listing.Quantity)
	if err != nil {
		return 0, 0, err
	}
	excess, err = l.validatePayment(total, paymentSent)
	if err != nil {
		return 0, 0, err
	}
	return total, excess, nil
}

func (l *Ledger) validatePurchaseAgainst(listing entity.Listing, buyer entity.Identity, quantity, available uint64) (uint64, error) {
	if buyer == listing.Seller {
		return 0, ErrSellerCannotBuyOwnListing
	}
	if quantity == 0 {
		return 0, ErrInvalidQuantity
	}
	if quantity > available {
		return 0, ErrInsufficientBalance
	}

	total := listing.UnitPrice * quantity
	if total/quantity != listing.UnitPrice {
		return 0, ErrInvalidQuantity
	}

	return total, nil
}

func (l *Ledger) validatePayment(total, paymentSent uint64) (uint64, error) {
	if paymentSent < total {
		return 0, ErrIncorrectPaymentAmount
	}

	excess := paymentSent - total
	if excess > 0 && !l.currency.Native() && !l.cfg.RefundTokenOverpayment {
		return 0, ErrIncorrectPaymentAmount
	}

	return excess, nil
}

func (l *Ledger) addPayoutSteps(s *settlement, listing entity.Listing, buyer entity.Identity, quantity uint64, split FeeSplit, royaltyReceiver entity.Identity) {
	if split.PlatformFee > 0 {
		s.add("platform fee",
			func() error { return l.currency.Pay(l.cfg.FeeReceiver, split.PlatformFee) },
			func() error { return l.currency.Reclaim(l.cfg.FeeReceiver, split.PlatformFee) },
		)
	}
	if split.Royalty > 0 {
		s.add("royalty",
			func() error { return l.currency.Pay(royaltyReceiver, split.Royalty) },
			func() error { return l.currency.Reclaim(royaltyReceiver, split.Royalty) },
		)
	}
	if split.SellerShare > 0 {
		s.add("seller proceeds",
			func() error { return l.currency.Pay(listing.Seller, split.SellerShare) },
			func() error { return l.currency.Reclaim(listing.Seller, split.SellerShare) },
		)
	}
	s.add("asset transfer",
		func() error { return l.assets.Transfer(listing.Asset, listing.Seller, buyer, quantity) },
		func() error { return l.assets.Transfer(listing.Asset, buyer, listing.Seller, quantity) },
	)
}

func (l *Ledger) addRefundStep(s *settlement, buyer entity.Identity, excess uint64) {
	if excess == 0 {
		return
	}
	s.add("overpayment refund",
		func() error { return l.currency.Pay(buyer, excess) },
		func() error { return l.currency.Reclaim(buyer, excess) },
	)
}

// settle applies the quantity decrement of a completed purchase. Callers hold
// l.mu.
func (l *Ledger) settle(listing *entity.Listing, quantity uint64) {
	listing.Quantity -= quantity
	if listing.Quantity == 0 {
		listing.Active = false
		l.index.Remove(listing.Id)
	}
}

func (l *Ledger) emitPurchase(listing entity.Listing, buyer entity.Identity, quantity uint64, split FeeSplit) {
	zap.L().With(
		zap.Uint64("listingId", listing.Id),
		zap.String("buyer", string(buyer)),
		zap.Uint64("quantity", quantity),
		zap.Uint64("totalPrice", split.TotalPrice),
		zap.Uint64("platformFee", split.PlatformFee),
		zap.Uint64("royalty", split.Royalty),
	).Info("Ledger: Listing purchased")

	event.EmitEvent(event.ListingPurchasedEvent, entity.ListingPurchased{
		ListingId:     listing.Id,
		Buyer:         buyer,
		Seller:        listing.Seller,
		Asset:         listing.Asset,
		Quantity:      quantity,
		TotalPrice:    split.TotalPrice,
		SellerShare:   split.SellerShare,
		PlatformFee:   split.PlatformFee,
		RoyaltyAmount: split.Royalty,
	})
}

func (l *Ledger) receipt(listing entity.Listing, buyer entity.Identity, quantity uint64, split FeeSplit, refunded uint64) entity.Receipt {
	id, _ := uuid.NewV4()
	return entity.Receipt{
		Id:             id.String(),
		ListingId:      listing.Id,
		Buyer:          buyer,
		Seller:         listing.Seller,
		Asset:          listing.Asset,
		Quantity:       quantity,
		TotalPrice:     split.TotalPrice,
		SellerShare:    split.SellerShare,
		PlatformFee:    split.PlatformFee,
		RoyaltyAmount:  split.Royalty,
		RefundedAmount: refunded,
	}
}

func (l *Ledger) GetListing(id uint64) (entity.Listing, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	listing, exists := l.records[id]
	if !exists {
		return entity.Listing{}, ErrListingNotFound
	}
	return *listing, nil
}

func (l *Ledger) ActiveListings() []entity.Listing {
	l.mu.RLock()
	defer l.mu.RUnlock()

	listings := make([]entity.Listing, 0, l.index.Size())
	for _, id := range l.index.Ids() {
		listings = append(listings, *l.records[id])
	}
	return listings
}

func (l *Ledger) Paused() bool {
	return l.isPaused()
}

func (l *Ledger) Pause(caller entity.Identity) error {
	return l.setPaused(caller, true)
}

func (l *Ledger) Unpause(caller entity.Identity) error {
	return l.setPaused(caller, false)
}

func (l *Ledger) setPaused(caller entity.Identity, paused bool) error {
	if !l.roles.HasRole(caller, oracle.PauserRole) {
		return ErrUnauthorized
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = paused

	zap.L().With(zap.String("caller", string(caller)), zap.Bool("paused", paused)).Info("Ledger: Pause toggled")
	return nil
}

func (l *Ledger) SetFee(caller entity.Identity, feeBps uint, receiver entity.Identity) error {
	if !l.roles.HasRole(caller, oracle.AdminRole) {
		return ErrUnauthorized
	}
	if feeBps > 10000 {
		return ErrInvalidQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.FeeBps = feeBps
	if receiver != "" {
		l.cfg.FeeReceiver = receiver
	}

	zap.L().With(zap.String("caller", string(caller)), zap.Uint("feeBps", feeBps)).Info("Ledger: Fee updated")
	return nil
}

func (l *Ledger) FeeBps() uint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg.FeeBps
}
