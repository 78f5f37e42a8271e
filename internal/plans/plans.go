// Package plans holds the static price table and the per-tier entitlement
// policy. It imports nothing from internal/ and can be tested without a
// database or a gateway.
package plans

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Tier is an entitlement level. The string values match the plan_tier enum in
// Postgres so a Tier converts directly to db.PlanTier.
type Tier string

const (
	TierFree       Tier = "free"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

// rank orders tiers free < premium < enterprise. Unknown tiers rank below free.
var rank = map[Tier]int{
	TierFree:       0,
	TierPremium:    1,
	TierEnterprise: 2,
}

var (
	// ErrUnknownTier is returned for a tier name that is not in the catalog.
	ErrUnknownTier = errors.New("plans: unknown tier")

	// ErrNotPurchasable is returned for a known tier that has no price (free).
	ErrNotPurchasable = errors.New("plans: tier is not purchasable")
)

// ParseTier normalises s and reports whether it names a known tier.
func ParseTier(s string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	_, ok := rank[t]
	return t, ok
}

// Rank returns the position of t in the tier ordering, or -1 if t is unknown.
func (t Tier) Rank() int {
	r, ok := rank[t]
	if !ok {
		return -1
	}
	return r
}

// AtLeast reports whether t is equal to or higher than other.
func (t Tier) AtLeast(other Tier) bool {
	return t.Rank() >= other.Rank()
}

func (t Tier) String() string { return string(t) }

// Plan is one purchasable row of the price table.
type Plan struct {
	Tier        Tier
	Title       string
	AmountCents int64

	// Period is how long an entitlement bought with this plan lasts. Zero
	// means it never expires.
	Period time.Duration
}

// Lifetime reports whether the plan grants a non-expiring entitlement.
func (p Plan) Lifetime() bool { return p.Period == 0 }

// PeriodEnd returns the expiry of an entitlement starting at from. ok is false
// for lifetime plans, which are stored with a NULL period end.
func (p Plan) PeriodEnd(from time.Time) (end time.Time, ok bool) {
	if p.Lifetime() {
		return time.Time{}, false
	}
	return from.Add(p.Period).UTC(), true
}

// Catalog is the resolved price table. It is built once at startup and is
// safe for concurrent reads.
type Catalog struct {
	currency string
	plans    map[Tier]Plan
}

// NewCatalog validates the given plans and returns a catalog priced in
// currency. Every paid tier must appear exactly once with a positive amount,
// and no two tiers may share a price so TierForAmount is unambiguous.
func NewCatalog(currency string, plans ...Plan) (*Catalog, error) {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return nil, fmt.Errorf("plans: currency %q must be a 3-letter ISO code", currency)
	}

	c := &Catalog{currency: currency, plans: make(map[Tier]Plan, len(plans))}
	byAmount := make(map[int64]Tier, len(plans))
	var errs []error
	for _, p := range plans {
		if other, taken := byAmount[p.AmountCents]; taken && other != p.Tier && p.AmountCents > 0 {
			errs = append(errs, fmt.Errorf("plans: %s and %s share the price %d", other, p.Tier, p.AmountCents))
		}
		byAmount[p.AmountCents] = p.Tier

		switch {
		case p.Tier.Rank() < 0:
			errs = append(errs, fmt.Errorf("plans: %w: %q", ErrUnknownTier, p.Tier))
		case p.Tier == TierFree:
			errs = append(errs, fmt.Errorf("plans: free tier cannot be priced"))
		case p.AmountCents <= 0:
			errs = append(errs, fmt.Errorf("plans: %s amount must be positive, got %d", p.Tier, p.AmountCents))
		case p.Period < 0:
			errs = append(errs, fmt.Errorf("plans: %s period must not be negative", p.Tier))
		}
		if _, dup := c.plans[p.Tier]; dup {
			errs = append(errs, fmt.Errorf("plans: %s listed twice", p.Tier))
		}
		c.plans[p.Tier] = p
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// Currency returns the lower-case ISO currency every plan is priced in.
func (c *Catalog) Currency() string { return c.currency }

// Lookup resolves a tier name to its plan.
func (c *Catalog) Lookup(name string) (Plan, error) {
	t, ok := ParseTier(name)
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownTier, name)
	}
	p, ok := c.plans[t]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrNotPurchasable, t)
	}
	return p, nil
}

// TierForAmount finds the plan whose price matches amount in currency. It is
// the last resort for payments whose tier cannot be read from metadata or the
// external reference.
func (c *Catalog) TierForAmount(amountCents int64, currency string) (Tier, bool) {
	if !strings.EqualFold(currency, c.currency) {
		return "", false
	}
	for t, p := range c.plans {
		if p.AmountCents == amountCents {
			return t, true
		}
	}
	return "", false
}

// ─── EXTERNAL REFERENCES ──────────────────────────────────────────────────────

// Reference builds the external reference "{tier}_{unixMillis}" that ties a
// ledger row to its gateway payment.
func Reference(t Tier, at time.Time) string {
	return string(t) + "_" + strconv.FormatInt(at.UnixMilli(), 10)
}

// TierFromReference parses the tier prefix of an external reference. Anything
// after the first underscore is ignored, so suffixed references still parse.
func TierFromReference(ref string) (Tier, bool) {
	prefix, rest, found := strings.Cut(ref, "_")
	if !found || rest == "" {
		return "", false
	}
	return ParseTier(prefix)
}
