package simfeed

import (
	"context"
	"math/rand"
	"strconv"

	"github.com/matchpulse/matchpulse/pkg/logger"
)

// Generator scripts a full match as a sequence of wire frames. The same
// seed always produces the same match, which keeps load runs comparable.
type Generator struct {
	cfg  *Config
	rng  *rand.Rand
	seq  int64
	home []string
	away []string
}

// NewGenerator creates a generator for the configured match shape.
func NewGenerator(cfg *Config) *Generator {
	g := &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
	for i := 1; i <= rosterSize; i++ {
		g.home = append(g.home, cfg.HomePrefix+"_player_"+strconv.Itoa(i))
		g.away = append(g.away, cfg.AwayPrefix+"_player_"+strconv.Itoa(i))
	}
	return g
}

// Script generates the full match as an ordered frame sequence.
func (g *Generator) Script(ctx context.Context) []Frame {
	var frames []Frame
	homeScore, awayScore := 0, 0

	for round := 1; round <= g.cfg.Rounds; round++ {
		frames = append(frames, g.frame("round_start", map[string]any{"round": round}))

		// Both sides buy into the round.
		for _, team := range []string{g.cfg.HomePrefix, g.cfg.AwayPrefix} {
			frames = append(frames, g.frame("economy", map[string]any{
				"amount": float64(buyAmountMin + g.rng.Intn(buyAmountSpread)),
				"action": "spent",
				"teamId": team,
			}))
		}

		homeWins := g.rng.Float64() < homeWinBias
		frames = append(frames, g.roundCombat(homeWins)...)

		if g.rng.Float64() < objectiveChance {
			frames = append(frames, g.objectiveFrame(homeWins))
		}

		frames = append(frames, g.frame("round_end", map[string]any{"round": round}))

		winner := g.cfg.HomePrefix
		if homeWins {
			homeScore++
		} else {
			awayScore++
			winner = g.cfg.AwayPrefix
		}
		frames = append(frames, g.frame("economy", map[string]any{
			"amount": float64(roundWinReward),
			"action": "earned",
			"teamId": winner,
		}))
		frames = append(frames, g.frame("score_update", map[string]any{
			"home": homeScore,
			"away": awayScore,
		}))
	}

	logger.Get().Info(ctx, "scripted match",
		logger.Int("rounds", g.cfg.Rounds),
		logger.Int("frames", len(frames)),
		logger.Int("final_home", homeScore),
		logger.Int("final_away", awayScore),
	)

	return frames
}

// roundCombat interleaves the kills of one round. The losing side is wiped;
// the winning side takes a random number of casualties.
func (g *Generator) roundCombat(homeWins bool) []Frame {
	winners, losers := g.home, g.away
	if !homeWins {
		winners, losers = g.away, g.home
	}

	winnerDeaths := g.rng.Intn(rosterSize)

	type kill struct {
		attackers []string
		victims   []string
		victim    int
	}
	kills := make([]kill, 0, rosterSize+winnerDeaths)
	for i := 0; i < rosterSize; i++ {
		kills = append(kills, kill{attackers: winners, victims: losers, victim: i})
	}
	for i := 0; i < winnerDeaths; i++ {
		kills = append(kills, kill{attackers: losers, victims: winners, victim: i})
	}
	g.rng.Shuffle(len(kills), func(i, j int) { kills[i], kills[j] = kills[j], kills[i] })

	var frames []Frame
	for _, k := range kills {
		if g.rng.Float64() < utilityChance {
			thrower := k.attackers[g.rng.Intn(len(k.attackers))]
			frames = append(frames, g.frame("utility", map[string]any{
				"type":     utilityTypes[g.rng.Intn(len(utilityTypes))],
				"playerId": thrower,
			}))
		}
		frames = append(frames, g.frame("kill", map[string]any{
			"attacker": k.attackers[g.rng.Intn(len(k.attackers))],
			"victim":   k.victims[k.victim],
			"weapon":   weapons[g.rng.Intn(len(weapons))],
			"headshot": g.rng.Float64() < headshotChance,
		}))
	}
	return frames
}

func (g *Generator) objectiveFrame(homeWins bool) Frame {
	action := objectiveActions[0]
	if !homeWins {
		action = objectiveActions[1]
	}
	if g.rng.Float64() < contestedChance {
		action = "contested"
	}
	return g.frame("objective", map[string]any{
		"location": sites[g.rng.Intn(len(sites))],
		"action":   action,
	})
}

// frame assembles one wire frame with a monotonic sequence number. The
// timestamp is left empty; senders stamp it at transmission time.
func (g *Generator) frame(typ string, data map[string]any) Frame {
	g.seq++
	return Frame{
		ID:       "sim-" + strconv.FormatInt(g.seq, 10),
		Type:     typ,
		Sequence: g.seq,
		Data:     data,
	}
}
