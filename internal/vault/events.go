package vault

import (
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/uuid"
)

// EventKind names a state change.
type EventKind string

const (
	EventVaultCreated   EventKind = "vault_created"
	EventDeposit        EventKind = "deposit"
	EventWithdraw       EventKind = "withdraw"
	EventTransfer       EventKind = "share_transfer"
	EventExecute        EventKind = "execute"
	EventFeeMint        EventKind = "fee_mint"
	EventFeeAnnounced   EventKind = "fee_increase_announced"
	EventFeeCommitted   EventKind = "fee_increase_committed"
	EventFeeRenounced   EventKind = "fee_increase_renounced"
	EventFeeDecreased   EventKind = "fee_decreased"
	EventAssetsChanged  EventKind = "assets_changed"
	EventTraderSet      EventKind = "trader_set"
	EventMembersChanged EventKind = "members_changed"
	EventPauseChanged   EventKind = "pause_changed"
	EventTradingPaused  EventKind = "trading_pause_changed"
)

// Event is the audit record of one state change. Data carries before and
// after quantities as decimal strings.
type Event struct {
	ID    string            `json:"id"`
	Vault common.Address    `json:"vault"`
	Kind  EventKind         `json:"kind"`
	Actor common.Address    `json:"actor"`
	Data  map[string]string `json:"data"`
	At    time.Time         `json:"at"`
}

func newEvent(vault common.Address, kind EventKind, actor common.Address, at time.Time, data map[string]string) Event {
	return Event{
		ID:    uuid.New(),
		Vault: vault,
		Kind:  kind,
		Actor: actor,
		Data:  data,
		At:    at,
	}
}

func (ev Event) logFields() []interface{} {
	fields := []interface{}{"event_id", ev.ID, "vault", ev.Vault.Hex(), "actor", ev.Actor.Hex()}
	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, k, ev.Data[k])
	}
	return fields
}
