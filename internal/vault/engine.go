package vault

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"vaultcore/internal/amount"
	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/ledger"
	"vaultcore/internal/logger"
	"vaultcore/internal/registry"
)

// FactoryAddress is the deployer from which vault addresses are derived.
var FactoryAddress = common.BytesToAddress(crypto.Keccak256([]byte("vaultcore/factory")))

// Params are the engine-wide accounting parameters.
type Params struct {
	// MinSupply is the liquidity floor: total supply must be zero or at
	// least this many base units after any mint or burn.
	MinSupply sdkmath.Int
	// DefaultCooldown is the lockup applied to fresh deposits.
	DefaultCooldown time.Duration
	// FeeChangeDelay is the timelock between announcing and committing a
	// fee increase.
	FeeChangeDelay time.Duration
	// NAVLossToleranceBps bounds how much fund value an execution batch may
	// lose. 10000 disables the check.
	NAVLossToleranceBps uint32
	// WithdrawToleranceBps bounds the difference between what an unwinding
	// asset guard returns and the exact withdrawn portion. Guards that do not
	// unwind must match it to the unit.
	WithdrawToleranceBps uint32
}

// DefaultParams returns the production parameters.
func DefaultParams() Params {
	return Params{
		MinSupply:            sdkmath.NewInt(100_000),
		DefaultCooldown:      24 * time.Hour,
		FeeChangeDelay:       4 * 7 * 24 * time.Hour,
		NAVLossToleranceBps:  100,
		WithdrawToleranceBps: 1,
	}
}

// DefaultCommitTimeout bounds a journal commit. It stays well below the
// deadlock detector's lock timeout so a slow database fails the operation
// instead of the process.
const DefaultCommitTimeout = 10 * time.Second

// Commit is the durable record of one accepted operation.
type Commit struct {
	Vault   *Vault
	Custody map[common.Address]sdkmath.Int
	Events  []Event
}

// Journal persists accepted operations. A Commit error rejects the
// operation and rolls back its effects.
type Journal interface {
	Commit(ctx context.Context, c Commit) error
}

// Engine serializes every state transition of every vault it hosts.
type Engine struct {
	mu deadlock.Mutex

	ledger   *ledger.Ledger
	registry *registry.Registry
	params   Params
	journal  Journal
	now      func() time.Time
	log      *zap.SugaredLogger

	// commitTimeout bounds a journal commit, which runs with mu held.
	commitTimeout time.Duration

	vaults map[common.Address]*Vault
	nonce  uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithJournal persists every accepted operation through j.
func WithJournal(j Journal) Option { return func(e *Engine) { e.journal = j } }

// WithCommitTimeout bounds each journal commit.
func WithCommitTimeout(d time.Duration) Option { return func(e *Engine) { e.commitTimeout = d } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithLogger overrides the logger.
func WithLogger(log *zap.SugaredLogger) Option { return func(e *Engine) { e.log = log } }

// WithParams overrides the accounting parameters.
func WithParams(p Params) Option { return func(e *Engine) { e.params = p } }

// NewEngine creates an engine over a ledger and a registry.
func NewEngine(l *ledger.Ledger, reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		ledger:   l,
		registry: reg,
		params:   DefaultParams(),
		now:      time.Now,
		vaults:   make(map[common.Address]*Vault),

		commitTimeout: DefaultCommitTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Named("vault")
	}
	return e
}

// Params returns the engine's accounting parameters.
func (e *Engine) Params() Params { return e.params }

// Registry returns the capability registry the engine dispatches through.
func (e *Engine) Registry() *registry.Registry { return e.registry }

type engineKey struct{}

// enter marks ctx as running inside an engine operation. Anything called
// from that operation that tries to enter the engine again with the same
// context is rejected as reentrant.
func enter(ctx context.Context, vault common.Address) context.Context {
	return context.WithValue(ctx, engineKey{}, vault)
}

func inside(ctx context.Context) bool {
	return ctx.Value(engineKey{}) != nil
}

// txn is the working set of one operation.
type txn struct {
	ctx    context.Context
	e      *Engine
	v      *Vault
	now    time.Time
	events []Event
}

func (tx *txn) emit(kind EventKind, actor common.Address, data map[string]string) {
	tx.events = append(tx.events, newEvent(tx.v.Address, kind, actor, tx.now, data))
}

// apply runs fn against a copy of the vault. On success the copy, the ledger
// changes and the events are committed together; on any error nothing is.
func (e *Engine) apply(ctx context.Context, addr common.Address, op string, fn func(tx *txn) error) error {
	if inside(ctx) {
		return apperrors.ErrReentrantCall
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, ok := e.vaults[addr]
	if !ok {
		return apperrors.ErrVaultNotFound
	}
	return e.run(ctx, cur.clone(), op, fn)
}

// run executes fn with e.mu held.
func (e *Engine) run(ctx context.Context, v *Vault, op string, fn func(tx *txn) error) error {
	tx := &txn{ctx: enter(ctx, v.Address), e: e, v: v, now: e.now()}
	snap := e.ledger.Snapshot()

	if err := guarded(func() error { return fn(tx) }); err != nil {
		e.ledger.RevertToSnapshot(snap)
		e.log.Warnw("operation rejected",
			"op", op,
			"vault", v.Address.Hex(),
			"code", apperrors.CodeOf(err),
			"error", err.Error(),
		)
		return err
	}

	if e.journal != nil {
		c := Commit{Vault: tx.v.clone(), Custody: e.custody(tx.v), Events: tx.events}
		commitCtx, cancel := context.WithTimeout(ctx, e.commitTimeout)
		err := guarded(func() error { return e.journal.Commit(commitCtx, c) })
		cancel()
		if err != nil {
			e.ledger.RevertToSnapshot(snap)
			e.log.Errorw("journal commit failed", "op", op, "vault", v.Address.Hex(), "error", err)
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	e.ledger.Commit()
	e.vaults[v.Address] = tx.v
	for _, ev := range tx.events {
		e.log.Infow(string(ev.Kind), ev.logFields()...)
	}
	return nil
}

// read runs fn against the current vault and discards any ledger effects.
func (e *Engine) read(ctx context.Context, addr common.Address, fn func(tx *txn) error) error {
	if inside(ctx) {
		return apperrors.ErrReentrantCall
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, ok := e.vaults[addr]
	if !ok {
		return apperrors.ErrVaultNotFound
	}
	snap := e.ledger.Snapshot()
	defer e.ledger.RevertToSnapshot(snap)
	tx := &txn{ctx: enter(ctx, addr), e: e, v: cur, now: e.now()}
	return guarded(func() error { return fn(tx) })
}

// guarded runs fn and converts a panic into an error so the caller can roll
// back. Arithmetic overflow on 256-bit amounts is a caller error.
func guarded(fn func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		msg := fmt.Sprint(r)
		if strings.Contains(strings.ToLower(msg), "overflow") {
			err = apperrors.Wrap(apperrors.ErrAmountOutOfRange, fmt.Errorf("arithmetic: %s", msg))
			return
		}
		err = apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("panic: %s", msg))
	}()
	return fn()
}

func (e *Engine) custody(v *Vault) map[common.Address]sdkmath.Int {
	out := make(map[common.Address]sdkmath.Int, len(v.Assets))
	for _, a := range v.Assets {
		out[a.Asset] = e.ledger.BalanceOf(a.Asset, v.Address)
	}
	return out
}

// Vault returns a copy of the vault at addr.
func (e *Engine) Vault(addr common.Address) (*Vault, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.vaults[addr]
	if !ok {
		return nil, apperrors.ErrVaultNotFound
	}
	return v.clone(), nil
}

// Vaults returns copies of every vault, oldest first.
func (e *Engine) Vaults() []*Vault {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Vault, 0, len(e.vaults))
	for _, v := range e.vaults {
		out = append(out, v.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Address.Hex() < out[j].Address.Hex()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ShareBalance returns holder's shares in the vault at addr.
func (e *Engine) ShareBalance(addr, holder common.Address) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.vaults[addr]
	if !ok {
		return sdkmath.Int{}, apperrors.ErrVaultNotFound
	}
	return v.SharesOf(holder), nil
}

// CooldownRemaining returns how long holder must still wait to withdraw.
func (e *Engine) CooldownRemaining(addr, holder common.Address) (time.Duration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.vaults[addr]
	if !ok {
		return 0, apperrors.ErrVaultNotFound
	}
	if e.registry.CooldownExempt(holder) {
		return 0, nil
	}
	left := v.Lockups[holder].Until().Sub(e.now())
	if left < 0 {
		return 0, nil
	}
	return left, nil
}

// TokenBalance returns holder's ledger balance of asset.
func (e *Engine) TokenBalance(asset, holder common.Address) sdkmath.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.BalanceOf(asset, holder)
}

// UpdateLedger runs fn against the ledger under the engine lock, committing
// its changes only when it succeeds. It serves funding and deployment.
func (e *Engine) UpdateLedger(ctx context.Context, fn func(l *ledger.Ledger) error) error {
	if inside(ctx) {
		return apperrors.ErrReentrantCall
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := e.ledger.Snapshot()
	if err := guarded(func() error { return fn(e.ledger) }); err != nil {
		e.ledger.RevertToSnapshot(snap)
		return err
	}
	e.ledger.Commit()
	return nil
}

func (tx *txn) mintShares(holder common.Address, shares sdkmath.Int) {
	if !shares.IsPositive() {
		return
	}
	tx.v.Shares[holder] = tx.v.SharesOf(holder).Add(shares)
	tx.v.TotalSupply = tx.v.TotalSupply.Add(shares)
}

func (tx *txn) burnShares(holder common.Address, shares sdkmath.Int) error {
	bal := tx.v.SharesOf(holder)
	if bal.LT(shares) {
		return apperrors.ErrInsufficientShares
	}
	rest := bal.Sub(shares)
	if rest.IsZero() {
		delete(tx.v.Shares, holder)
	} else {
		tx.v.Shares[holder] = rest
	}
	tx.v.TotalSupply = tx.v.TotalSupply.Sub(shares)
	return nil
}

func (tx *txn) moveShares(from, to common.Address, shares sdkmath.Int) error {
	if err := tx.burnShares(from, shares); err != nil {
		return err
	}
	tx.mintShares(to, shares)
	return nil
}

func (tx *txn) notPaused() error {
	if tx.e.registry.Paused() || tx.v.Paused {
		return apperrors.ErrPaused
	}
	return nil
}

func (tx *txn) onlyManager(caller common.Address) error {
	if caller != tx.v.Manager {
		return apperrors.ErrOnlyManager
	}
	return nil
}

func (tx *txn) onlyOwner(caller common.Address) error {
	if caller != tx.e.registry.Owner() {
		return apperrors.ErrOnlyOwner
	}
	return nil
}

func (tx *txn) floorOK(supply sdkmath.Int) bool {
	return supply.IsZero() || supply.GTE(tx.e.params.MinSupply)
}

func fmtInt(v sdkmath.Int) string {
	return amount.OrZero(v).String()
}

// Tokens returns the metadata of every registered token.
func (e *Engine) Tokens() []ledger.TokenInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Tokens()
}
