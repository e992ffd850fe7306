package pairing_test

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/coffee-chat/internal/pairing"
)

// inOrder keeps the input order and always picks the first template.
type inOrder struct{}

func (inOrder) Shuffle(int, func(i, j int)) {}
func (inOrder) IntN(int) int                { return 0 }

// recording wraps a seeded source and remembers the permutation it applied.
type recording struct {
	r    *rand.Rand
	perm []int
}

func (rc *recording) Shuffle(n int, swap func(i, j int)) {
	rc.perm = make([]int, n)
	for i := range rc.perm {
		rc.perm[i] = i
	}
	rc.r.Shuffle(n, func(i, j int) {
		swap(i, j)
		rc.perm[i], rc.perm[j] = rc.perm[j], rc.perm[i]
	})
}

func (rc *recording) IntN(n int) int { return rc.r.IntN(n) }

func people(names ...string) []pairing.Participant {
	out := make([]pairing.Participant, len(names))
	for i, n := range names {
		out[i] = pairing.Participant{ID: uint64(i + 1), SlackID: "U" + n, Name: n}
	}
	return out
}

func history(pairs ...[2]uint64) pairing.RecentPartners {
	r := pairing.RecentPartners{}
	for _, p := range pairs {
		for _, side := range [][2]uint64{p, {p[1], p[0]}} {
			if r[side[0]] == nil {
				r[side[0]] = map[uint64]struct{}{}
			}
			r[side[0]][side[1]] = struct{}{}
		}
	}
	return r
}

func names(pairs []pairing.Pair) [][2]string {
	out := make([][2]string, len(pairs))
	for i, p := range pairs {
		out[i] = [2]string{p.First.Name, p.Second.Name}
	}
	return out
}

func TestMatch_InsufficientUsers(t *testing.T) {
	_, err := pairing.Match(nil, nil, inOrder{})
	assert.ErrorIs(t, err, pairing.ErrInsufficientUsers)

	_, err = pairing.Match(people("A"), nil, inOrder{})
	assert.ErrorIs(t, err, pairing.ErrInsufficientUsers)
}

func TestMatch_FourUsersNoHistory(t *testing.T) {
	res, err := pairing.Match(people("A", "B", "C", "D"), nil, inOrder{})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"A", "B"}, {"C", "D"}}, names(res.Pairs))
	assert.Empty(t, res.Leftover)
}

func TestMatch_OddCountLeavesLastReachable(t *testing.T) {
	res, err := pairing.Match(people("A", "B", "C"), nil, inOrder{})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"A", "B"}}, names(res.Pairs))
	require.Len(t, res.Leftover, 1)
	assert.Equal(t, "C", res.Leftover[0].Name)
}

func TestMatch_SkipsRecentPartner(t *testing.T) {
	// A and B met recently; A takes the first fresh candidate instead.
	res, err := pairing.Match(people("A", "B", "C", "D"), history([2]uint64{1, 2}), inOrder{})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"A", "C"}, {"B", "D"}}, names(res.Pairs))
}

func TestMatch_RepeatsWhenNoFreshCandidate(t *testing.T) {
	res, err := pairing.Match(people("A", "B"), history([2]uint64{1, 2}), inOrder{})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"A", "B"}}, names(res.Pairs))
	assert.Empty(t, res.Leftover)
}

func TestMatch_GreedyIsNotGlobalOptimum(t *testing.T) {
	// A-C / B-D would avoid every repeat, but A grabs B first and C-D must repeat.
	res, err := pairing.Match(people("A", "B", "C", "D"), history([2]uint64{3, 4}), inOrder{})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"A", "B"}, {"C", "D"}}, names(res.Pairs))
}

func TestMatch_DoesNotMutateInput(t *testing.T) {
	in := people("A", "B", "C", "D", "E")
	_, err := pairing.Match(in, nil, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	assert.Equal(t, people("A", "B", "C", "D", "E"), in)
}

func TestMatch_Properties(t *testing.T) {
	for n := 2; n <= 11; n++ {
		for seed := uint64(0); seed < 25; seed++ {
			t.Run(fmt.Sprintf("n=%d/seed=%d", n, seed), func(t *testing.T) {
				src := rand.New(rand.NewPCG(seed, uint64(n)))
				users := make([]pairing.Participant, n)
				for i := range users {
					users[i] = pairing.Participant{ID: uint64(i + 1), Name: fmt.Sprint(i + 1)}
				}

				recent := pairing.RecentPartners{}
				for i := 0; i < n; i++ {
					a, b := uint64(src.IntN(n)+1), uint64(src.IntN(n)+1)
					if a != b {
						for k, v := range map[uint64]uint64{a: b, b: a} {
							if recent[k] == nil {
								recent[k] = map[uint64]struct{}{}
							}
							recent[k][v] = struct{}{}
						}
					}
				}

				rec := &recording{r: src}
				res, err := pairing.Match(users, recent, rec)
				require.NoError(t, err)

				assert.Len(t, res.Pairs, n/2)
				assert.Len(t, res.Leftover, n%2)

				seen := map[uint64]int{}
				for _, p := range res.Pairs {
					assert.NotEqual(t, p.First.ID, p.Second.ID)
					seen[p.First.ID]++
					seen[p.Second.ID]++
				}
				for _, u := range res.Leftover {
					seen[u.ID]++
				}
				assert.Len(t, seen, n)
				for id, c := range seen {
					assert.Equal(t, 1, c, "user %d appears %d times", id, c)
				}

				// position in the shuffled order, and which pair consumed each user
				pos := map[uint64]int{}
				for i, idx := range rec.perm {
					pos[users[idx].ID] = i
				}
				pairOf := map[uint64]int{}
				for k, p := range res.Pairs {
					pairOf[p.First.ID], pairOf[p.Second.ID] = k, k
				}

				for k, p := range res.Pairs {
					require.Less(t, pos[p.First.ID], pos[p.Second.ID])
					if !recent.Has(p.First.ID, p.Second.ID) {
						continue
					}
					// a repeat is only allowed if every fresh later user was already taken
					for _, idx := range rec.perm[pos[p.First.ID]+1:] {
						c := users[idx]
						if c.ID == p.Second.ID || recent.Has(p.First.ID, c.ID) {
							continue
						}
						owner, paired := pairOf[c.ID]
						assert.True(t, paired && owner < k,
							"user %d repeated with %d while %d was fresh and free", p.First.ID, p.Second.ID, c.ID)
					}
				}
			})
		}
	}
}
