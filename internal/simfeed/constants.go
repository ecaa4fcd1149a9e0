package simfeed

import "time"

// Default configuration values.
const (
	DefaultAddr       = ":9001"
	DefaultPath       = "/feed"
	DefaultBaseURL    = "http://localhost:8080"
	DefaultRounds     = 24
	DefaultInterval   = 250 * time.Millisecond
	DefaultTimeout    = 30 * time.Second
	DefaultHomePrefix = "home"
	DefaultAwayPrefix = "away"
)

// Roster and pacing constants.
const (
	rosterSize       = 5
	headshotChance   = 0.25
	utilityChance    = 0.4
	objectiveChance  = 0.6
	contestedChance  = 0.2
	homeWinBias      = 0.55
	buyAmountMin     = 2000
	buyAmountSpread  = 4000
	roundWinReward   = 3250
	lateBackdate     = 800 * time.Millisecond
	intraRoundSpacer = 2 * time.Second
)

// Event vocabulary drawn on by the generator.
var (
	weapons          = []string{"rifle", "smg", "awp", "pistol", "shotgun"}
	sites            = []string{"site_a", "site_b", "mid", "ramp", "connector"}
	utilityTypes     = []string{"smoke", "flash", "molotov", "recon"}
	objectiveActions = []string{"captured", "lost"}
)
