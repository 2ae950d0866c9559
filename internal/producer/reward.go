package producer

import "github.com/unicriumnetwork/Unicrium-BlockChain/config"

// BlockReward computes the reward credited to a block's proposer.
//
// spec.md §4.10 gives block_reward = INITIAL_BLOCK_REWARD / 2^era with era =
// (height+1) / HALVING_INTERVAL, but spec.md's own halving invariant (§ "4.
// Halving", HALVING_INTERVAL=4, INITIAL_BLOCK_REWARD=8) requires four
// consecutive blocks per era starting at height 1: rewards 8,8,8,8,4,4,4,4,
// 2,2,2,2 for heights 1..12. That only holds for era = (newHeight-1) /
// HALVING_INTERVAL (equivalently tipHeight / HALVING_INTERVAL, since
// newHeight = tipHeight+1); the literal "(height+1)/HALVING_INTERVAL"
// reading would shift the first halving to height 4 instead of height 5.
// This implementation follows the invariant's worked example, not the
// prose formula (documented in DESIGN.md's Open Questions).
//
// The raw halved reward is then clamped so total_minted never exceeds
// MaxSupply: a reward that would overshoot is reduced to the remaining
// headroom, and once the cap is reached the reward is zero.
func BlockReward(rules config.ConsensusRules, newHeight uint64, totalMinted uint64) uint64 {
	if rules.HalvingInterval == 0 {
		return clampToSupply(rules, rules.InitialBlockReward, totalMinted)
	}

	tipHeight := newHeight - 1
	era := tipHeight / rules.HalvingInterval

	reward := rules.InitialBlockReward
	// Shifting right by era halves it; once era is large enough to shift
	// a uint64 to zero, the reward has fully decayed.
	if era >= 64 {
		reward = 0
	} else {
		reward >>= era
	}

	return clampToSupply(rules, reward, totalMinted)
}

func clampToSupply(rules config.ConsensusRules, reward uint64, totalMinted uint64) uint64 {
	if rules.MaxSupply == 0 {
		return reward
	}
	if totalMinted >= rules.MaxSupply {
		return 0
	}
	headroom := rules.MaxSupply - totalMinted
	if reward > headroom {
		return headroom
	}
	return reward
}
