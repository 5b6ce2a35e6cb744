// Package permission decides whether a sender may run a command.
package permission

import (
	"errors"
	"fmt"

	"github.com/edgard/whatsdex/internal/message"
)

// Reason names the first requirement a sender failed.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonOwner    Reason = "owner"
	ReasonBotAdmin Reason = "botAdmin"
	ReasonAdmin    Reason = "admin"
	ReasonGroup    Reason = "group"
	ReasonPrivate  Reason = "private"
	ReasonCoin     Reason = "coin"
	ReasonPremium  Reason = "premium"
	ReasonRestrict Reason = "restrict"
)

// Requirement is the set of capabilities a command declares.
type Requirement struct {
	Owner    bool
	BotAdmin bool
	Admin    bool
	Group    bool
	Private  bool
	Coin     int64
	Premium  bool
	Restrict bool
}

// ErrMalformed is returned by Validate for contradictory requirements.
var ErrMalformed = errors.New("malformed permission requirement")

// Validate rejects requirements that can never be satisfied.
func (r Requirement) Validate() error {
	switch {
	case r.Coin < 0:
		return fmt.Errorf("%w: negative coin cost %d", ErrMalformed, r.Coin)
	case r.BotAdmin && !r.Group:
		return fmt.Errorf("%w: botAdmin requires group", ErrMalformed)
	case r.Group && r.Private:
		return fmt.Errorf("%w: group conflicts with private", ErrMalformed)
	}
	return nil
}

// Policy holds the bot-wide switches the evaluator consults.
type Policy struct {
	// Restricted denies every command marked Restrict.
	Restricted bool
	// UseCoin enables the coin requirement.
	UseCoin bool
}

// Decision is the outcome of Evaluate. Reason is empty when Allowed.
type Decision struct {
	Allowed bool
	Reason  Reason
	// Charge is the coin amount to debit on approval.
	Charge int64
}

// Evaluate checks r against f in fixed priority order and stops at the first
// failure: owner, botAdmin, admin, group, private, coin, premium, restrict.
func Evaluate(r Requirement, f message.Facts, p Policy) Decision {
	if r.Owner && !f.IsOwner {
		return deny(ReasonOwner)
	}
	// botAdmin and admin only mean something inside a group; outside one the
	// group requirement reports the actionable reason.
	if r.BotAdmin && f.IsGroup && !f.IsBotAdmin {
		return deny(ReasonBotAdmin)
	}
	if r.Admin && f.IsGroup && !f.IsAdmin && !f.IsOwner {
		return deny(ReasonAdmin)
	}
	if r.Group && !f.IsGroup {
		return deny(ReasonGroup)
	}
	if r.Private && f.IsGroup {
		return deny(ReasonPrivate)
	}

	var charge int64
	if p.UseCoin && r.Coin > 0 && !f.IsOwner && !f.IsPremium {
		if f.Coin < r.Coin {
			return deny(ReasonCoin)
		}
		charge = r.Coin
	}
	if r.Premium && !f.IsPremium && !f.IsOwner {
		return deny(ReasonPremium)
	}
	if r.Restrict && p.Restricted {
		return deny(ReasonRestrict)
	}
	return Decision{Allowed: true, Charge: charge}
}

func deny(r Reason) Decision {
	return Decision{Reason: r}
}
