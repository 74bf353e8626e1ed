// Package player resolves opaque aliases to stable competitor records and
// manages claim/merge semantics: a free-text name creates an unclaimed
// placeholder, which a later claim by a durable identity absorbs.
package player

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/dzonimn/Kaml/internal/locks"
	"github.com/dzonimn/Kaml/internal/rating"
	"github.com/dzonimn/Kaml/internal/store"
)

// aliasSection is the named lock guarding the alias tables.
const aliasSection = "aliases"

// NotFoundError reports a strict lookup that matched no player.
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no player found with identifier %s", e.Ref)
}

// AliasConflict reports a proposed alias already owned by a different
// claimed identity. The existing claim is never overwritten.
type AliasConflict struct {
	Alias   string
	OwnerID int64
	Owner   string
}

// ClaimResult reports the outcome of a claim, per alias. Conflicts do not
// abort the rest of the batch.
type ClaimResult struct {
	// Merged are the aliases now bound to the claiming identity.
	Merged []string
	// NotFound are the merged aliases that had no prior record; purely
	// informational.
	NotFound []string
	// Conflicts are the aliases rejected because a different claimed
	// identity owns them.
	Conflicts []AliasConflict
}

// IdentityParser extracts a stable identity token from an alias string, if
// the alias is one. The concrete token format belongs to the transport
// collaborator, so the parser is injected at construction.
type IdentityParser func(alias string) (int64, bool)

// Registry is the bidirectional alias table. All mutating and reading
// methods serialize on the "aliases" lock section.
type Registry struct {
	store         store.Store
	locks         *locks.KeyedMutex
	parseIdentity IdentityParser
	log           *logrus.Logger

	aliasToID  map[string]int64
	idToPlayer map[int64]*Player
	nextID     int64
}

// NewRegistry creates an empty registry. parseIdentity may be nil when no
// identity-token format exists.
func NewRegistry(st store.Store, km *locks.KeyedMutex, parseIdentity IdentityParser, log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{
		store:         st,
		locks:         km,
		parseIdentity: parseIdentity,
		log:           log,
		aliasToID:     make(map[string]int64),
		idToPlayer:    make(map[int64]*Player),
	}
}

// Load reads the claimed-alias snapshot and constructs the claimed players.
// A store that has never been written yields an empty registry.
func (r *Registry) Load(ctx context.Context) error {
	idToAliases, err := r.store.LoadAliases(ctx)
	if err != nil {
		return fmt.Errorf("failed to load alias table: %w", err)
	}

	unlock := r.locks.Lock(aliasSection)
	defer unlock()

	for id, aliases := range idToAliases {
		sort.Strings(aliases)
		p := &Player{
			ID:      id,
			Aliases: make(map[string]struct{}, len(aliases)),
			Claimed: true,
			Mention: aliases[0],
			Rating:  rating.NewRating(),
		}
		for _, a := range aliases {
			p.Aliases[a] = struct{}{}
			r.aliasToID[a] = id
		}
		r.idToPlayer[id] = p
	}

	r.log.WithField("players", len(r.idToPlayer)).Info("alias table loaded")
	return nil
}

// ResolveID resolves a stable identity directly. Stable identities never
// auto-create.
func (r *Registry) ResolveID(id int64) (*Player, error) {
	unlock := r.locks.Lock(aliasSection)
	defer unlock()
	p, ok := r.idToPlayer[id]
	if !ok {
		return nil, &NotFoundError{Ref: fmt.Sprint(id)}
	}
	return p, nil
}

// Resolve maps an alias to a player. An alias carrying an identity token is
// resolved strictly by ID. Free text resolves to the owning player if one
// exists; otherwise a new unclaimed player is created when allowCreate is
// set, and NotFoundError returned when it is not.
func (r *Registry) Resolve(ctx context.Context, alias string, allowCreate bool) (*Player, error) {
	if r.parseIdentity != nil {
		if id, ok := r.parseIdentity(alias); ok {
			return r.ResolveID(id)
		}
	}

	unlock := r.locks.Lock(aliasSection)
	defer unlock()

	if id, ok := r.aliasToID[alias]; ok {
		return r.idToPlayer[id], nil
	}

	if !allowCreate {
		return nil, &NotFoundError{Ref: alias}
	}

	p := r.addUnclaimedLocked(alias)
	if err := r.persistLocked(ctx); err != nil {
		return nil, err
	}
	r.log.WithField("name", alias).Debug("new unclaimed player created")
	return p, nil
}

// Claim binds the proposed aliases to the identity, creating the claimed
// player if needed. Aliases owned by a different claimed identity are
// rejected per-alias; unclaimed placeholders are absorbed and discarded.
// The claimed-alias snapshot is written before the claim returns.
func (r *Registry) Claim(ctx context.Context, id int64, proposed []string) (ClaimResult, error) {
	var result ClaimResult
	if len(proposed) == 0 {
		return result, fmt.Errorf("claim for %d carries no aliases", id)
	}

	unlock := r.locks.Lock(aliasSection)
	defer unlock()

	claimant, ok := r.idToPlayer[id]
	if !ok {
		claimant = &Player{
			ID:      id,
			Aliases: make(map[string]struct{}),
			Claimed: true,
			Mention: proposed[0],
			Rating:  rating.NewRating(),
		}
		r.idToPlayer[id] = claimant
	}
	claimant.Claimed = true
	if claimant.Mention == "" {
		claimant.Mention = proposed[0]
	}

	for _, alias := range proposed {
		ownerID, owned := r.aliasToID[alias]
		switch {
		case !owned:
			claimant.Aliases[alias] = struct{}{}
			r.aliasToID[alias] = id
			result.Merged = append(result.Merged, alias)
			result.NotFound = append(result.NotFound, alias)

		case ownerID == id:
			result.Merged = append(result.Merged, alias)

		case r.idToPlayer[ownerID].Claimed:
			owner := r.idToPlayer[ownerID]
			result.Conflicts = append(result.Conflicts, AliasConflict{
				Alias:   alias,
				OwnerID: ownerID,
				Owner:   owner.Mention,
			})
			r.log.WithFields(logrus.Fields{
				"alias": alias,
				"owner": ownerID,
			}).Warn("alias claim rejected, already claimed")

		default:
			// Unclaimed placeholder: absorb its whole alias set and
			// discard the shell.
			shell := r.idToPlayer[ownerID]
			for a := range shell.Aliases {
				claimant.Aliases[a] = struct{}{}
				r.aliasToID[a] = id
			}
			delete(r.idToPlayer, ownerID)
			result.Merged = append(result.Merged, alias)
		}
	}

	if err := r.persistLocked(ctx); err != nil {
		return ClaimResult{}, err
	}

	r.log.WithFields(logrus.Fields{
		"identity":  id,
		"merged":    len(result.Merged),
		"conflicts": len(result.Conflicts),
	}).Info("aliases claimed")
	return result, nil
}

// Players returns all reachable players.
func (r *Registry) Players() []*Player {
	unlock := r.locks.Lock(aliasSection)
	defer unlock()
	out := make([]*Player, 0, len(r.idToPlayer))
	for _, p := range r.idToPlayer {
		out = append(out, p)
	}
	return out
}

// addUnclaimedLocked creates a new unclaimed player for a free-text name.
// IDs come from a local counter, skipping any ID already taken by a claimed
// identity.
func (r *Registry) addUnclaimedLocked(name string) *Player {
	for {
		if _, taken := r.idToPlayer[r.nextID]; !taken {
			break
		}
		r.nextID++
	}
	p := &Player{
		ID:      r.nextID,
		Aliases: map[string]struct{}{name: {}},
		Mention: name,
		Rating:  rating.NewRating(),
	}
	r.nextID++
	r.idToPlayer[p.ID] = p
	r.aliasToID[name] = p.ID
	return p
}

// persistLocked writes the claimed-alias snapshot. Must hold the aliases
// section.
func (r *Registry) persistLocked(ctx context.Context) error {
	snapshot := make(map[int64][]string)
	for id, p := range r.idToPlayer {
		if !p.Claimed {
			continue
		}
		snapshot[id] = p.SortedAliases()
	}
	if err := r.store.SaveAliases(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to persist alias table: %w", err)
	}
	return nil
}
