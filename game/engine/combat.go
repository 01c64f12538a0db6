package engine

import "fmt"

// DefaultAttackDamage is dealt by every melee or ranged attack unless overridden
const DefaultAttackDamage = 1

// AttackResult reports the outcome of an attack request
type AttackResult struct {
	Success   bool   `json:"success"`
	Damage    int    `json:"damage"`
	WasLethal bool   `json:"was_lethal"`
	TargetID  string `json:"target_id,omitempty"`
	Forfeited bool   `json:"forfeited,omitempty"`
}

// SpellResult reports the outcome of a spell cast
type SpellResult struct {
	Success   bool     `json:"success"`
	SpellID   string   `json:"spell_id,omitempty"`
	HitIDs    []string `json:"hit_ids,omitempty"`
	KilledIDs []string `json:"killed_ids,omitempty"`
}

// ApplyDamage lowers HP, flooring at 0. A lethal hit flags the unit for
// removal but leaves it on the roster.
func ApplyDamage(u *Unit, amount int) bool {
	if amount < 0 {
		amount = 0
	}
	u.HP -= amount
	if u.HP <= 0 {
		u.HP = 0
		u.Status = StatusPendingRemoval
		return true
	}
	return false
}

func attackMessage(target Unit, damage int, lethal bool) string {
	if lethal {
		return fmt.Sprintf("%s destroyed!", target.Name)
	}
	return fmt.Sprintf("%s took %d damage.", target.Name, damage)
}

// EvaluateOutcome decides victory or defeat from roster membership only.
// Victory is checked first so it wins if both sides are empty.
func EvaluateOutcome(units []Unit, turn, maxTurns int) (GameStatus, string, bool) {
	switch {
	case CountFaction(units, Enemy) == 0:
		return StatusVictory, "Victory achieved!", true
	case CountFaction(units, Player) == 0:
		return StatusDefeat, "All units lost.", true
	case maxTurns > 0 && turn > maxTurns:
		return StatusDefeat, "Turn limit reached.", true
	}
	return StatusPlaying, "", false
}
