// Package pairing builds coffee chat rounds: it matches eligible users while
// avoiding recent partners, stores the pairs and delivers the introductions.
package pairing

import "errors"

// ErrInsufficientUsers aborts a round before anything is persisted.
var ErrInsufficientUsers = errors.New("not enough eligible users to create pairings")

// Participant is the slice of a user the matcher cares about.
type Participant struct {
	ID      uint64
	SlackID string
	Name    string
}

// Pair is one match. First is the user the scan started from.
type Pair struct {
	First  Participant
	Second Participant
}

// Result of one matching pass. Leftover keeps shuffled order.
type Result struct {
	Pairs    []Pair
	Leftover []Participant
}

// RecentPartners maps a user id to the ids they were paired with inside the
// lookback window.
type RecentPartners map[uint64]map[uint64]struct{}

// Has reports whether c is a recent partner of u.
func (r RecentPartners) Has(u, c uint64) bool {
	_, ok := r[u][c]
	return ok
}

// Match pairs users in one greedy pass over a random permutation.
//
// For each unused user it takes the first later unused candidate that is not
// a recent partner; failing that, the first later unused candidate at all.
// A user with no unused candidate after it ends up in Leftover and is not
// revisited, so Leftover can be non-empty even when a full matching exists.
func Match(users []Participant, recent RecentPartners, rnd Random) (Result, error) {
	if len(users) < 2 {
		return Result{}, ErrInsufficientUsers
	}
	if rnd == nil {
		rnd = DefaultRandom()
	}

	order := make([]Participant, len(users))
	copy(order, users)
	rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	used := make([]bool, len(order))
	var res Result
	for i, u := range order {
		if used[i] {
			continue
		}
		j := nextCandidate(order, used, i, func(c Participant) bool { return !recent.Has(u.ID, c.ID) })
		if j < 0 {
			j = nextCandidate(order, used, i, nil)
		}
		if j < 0 {
			continue
		}
		used[i], used[j] = true, true
		res.Pairs = append(res.Pairs, Pair{First: u, Second: order[j]})
	}

	for i, u := range order {
		if !used[i] {
			res.Leftover = append(res.Leftover, u)
		}
	}
	return res, nil
}

// nextCandidate returns the index of the first unused user after i that
// passes ok (nil accepts anyone), or -1.
func nextCandidate(order []Participant, used []bool, i int, ok func(Participant) bool) int {
	for j := i + 1; j < len(order); j++ {
		if used[j] {
			continue
		}
		if ok == nil || ok(order[j]) {
			return j
		}
	}
	return -1
}
