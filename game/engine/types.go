package engine

// Terrain represents the kind of ground a tile is made of
type Terrain string

const (
	Open   Terrain = "OPEN"
	Closed Terrain = "CLOSED"

	// Movement costs
	OpenMoveCost    = 1
	BlockedMoveCost = 999

	// Validation constants
	MaxLevelDimension = 64
	MaxUnitsPerLevel  = 128
)

// MoveCost returns the movement points needed to enter a tile of this terrain
func (t Terrain) MoveCost() int {
	if t == Closed {
		return BlockedMoveCost
	}
	return OpenMoveCost
}

// Position represents x,y coordinates
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Tile is a single grid square
type Tile struct {
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Terrain Terrain `json:"terrain"`
}

// Grid is the battlefield, indexed Tiles[y][x]
type Grid struct {
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Tiles  [][]Tile `json:"tiles"`
}

// UnitType is the closed set of unit archetypes
type UnitType string

const (
	Knight UnitType = "KNIGHT"
	Archer UnitType = "ARCHER"
	Mage   UnitType = "MAGE"
	Wizard UnitType = "WIZARD"
	Dummy  UnitType = "DUMMY"
)

// Valid reports whether t is a known unit type
func (t UnitType) Valid() bool {
	switch t {
	case Knight, Archer, Mage, Wizard, Dummy:
		return true
	}
	return false
}

// Faction partitions units into the two sides
type Faction string

const (
	Player Faction = "PLAYER"
	Enemy  Faction = "ENEMY"
)

// Opponent returns the opposing faction
func (f Faction) Opponent() Faction {
	if f == Player {
		return Enemy
	}
	return Player
}

// UnitStatus tracks deferred death
type UnitStatus string

const (
	StatusAlive          UnitStatus = "ALIVE"
	StatusPendingRemoval UnitStatus = "PENDING_REMOVAL"
	StatusRemoved        UnitStatus = "REMOVED"
)

// Facing is cosmetic and only ever changed by horizontal moves
type Facing string

const (
	FacingLeft  Facing = "LEFT"
	FacingRight Facing = "RIGHT"
)

// Spell is an area attack available to caster units
type Spell struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Range   int    `json:"range" yaml:"range"`
	Radius  int    `json:"radius" yaml:"radius"`
	Damage  int    `json:"damage" yaml:"damage"`
	VFXType string `json:"vfxType,omitempty" yaml:"vfxType,omitempty"`
}

// Unit is a single combatant. Field names follow the level editor's export format.
type Unit struct {
	ID              string     `json:"id" yaml:"id"`
	Name            string     `json:"name" yaml:"name"`
	Type            UnitType   `json:"type" yaml:"type"`
	Faction         Faction    `json:"faction" yaml:"faction"`
	Position        Position   `json:"position" yaml:"position"`
	HP              int        `json:"hp" yaml:"hp"`
	MaxHP           int        `json:"maxHp" yaml:"maxHp"`
	MoveRange       int        `json:"moveRange" yaml:"moveRange"`
	AttackRangeMin  int        `json:"attackRangeMin" yaml:"attackRangeMin"`
	AttackRangeMax  int        `json:"attackRangeMax" yaml:"attackRangeMax"`
	Spells          []Spell    `json:"spells,omitempty" yaml:"spells,omitempty"`
	HasMoved        bool       `json:"hasMoved" yaml:"hasMoved"`
	Status          UnitStatus `json:"status,omitempty" yaml:"status,omitempty"`
	Portrait        string     `json:"portrait,omitempty" yaml:"portrait,omitempty"`
	CastingPortrait string     `json:"castingPortrait,omitempty" yaml:"castingPortrait,omitempty"`
	Facing          Facing     `json:"facing,omitempty" yaml:"facing,omitempty"`
}

// IsLiving reports whether the unit still takes part in rules (occupancy, targeting).
// A unit on 0 HP awaiting removal is not living but is still on the roster.
func (u Unit) IsLiving() bool {
	if u.Status == StatusPendingRemoval || u.Status == StatusRemoved {
		return false
	}
	return u.HP > 0
}

// HasSpells reports whether the unit can open the spell menu
func (u Unit) HasSpells() bool {
	return len(u.Spells) > 0
}

// Spell returns the unit's spell with the given id
func (u Unit) Spell(id string) (Spell, bool) {
	for _, s := range u.Spells {
		if s.ID == id {
			return s, true
		}
	}
	return Spell{}, false
}

// Clone returns a deep copy of the unit
func (u Unit) Clone() Unit {
	if u.Spells != nil {
		u.Spells = append([]Spell(nil), u.Spells...)
	}
	return u
}

// GameStatus is the top-level lifecycle state
type GameStatus string

const (
	StatusMenu    GameStatus = "MENU"
	StatusPlaying GameStatus = "PLAYING"
	StatusVictory GameStatus = "VICTORY"
	StatusDefeat  GameStatus = "DEFEAT"
	StatusEditor  GameStatus = "EDITOR"
)

// InteractionMode is the current phase of player input handling
type InteractionMode string

const (
	ModeMovement        InteractionMode = "MOVEMENT"
	ModeActionSelect    InteractionMode = "ACTION_SELECT"
	ModeTargetingAttack InteractionMode = "TARGETING_ATTACK"
	ModeSpellMenu       InteractionMode = "SPELL_MENU"
	ModeTargetingSpell  InteractionMode = "TARGETING_SPELL"
)

// VisualEvent describes what the presentation layer should animate for the
// current step. It never carries rule information the engine has not applied.
type VisualEvent struct {
	MovingUnitID  string    `json:"moving_unit_id,omitempty"`
	AttackerID    string    `json:"attacker_id,omitempty"`
	TargetTile    *Position `json:"target_tile,omitempty"`
	DyingUnitIDs  []string  `json:"dying_unit_ids,omitempty"`
	CastingUnitID string    `json:"casting_unit_id,omitempty"`
	SpellEffect   string    `json:"spell_effect,omitempty"`
	CameraFocus   *Position `json:"camera_focus,omitempty"`
}

// GameState represents the complete observable game state
type GameState struct {
	Status         GameStatus      `json:"status"`
	Level          *LevelConfig    `json:"level,omitempty"`
	Grid           *Grid           `json:"grid,omitempty"`
	Units          []Unit          `json:"units"`
	Turn           int             `json:"turn"`
	ActiveFaction  Faction         `json:"active_faction"`
	Mode           InteractionMode `json:"mode"`
	SelectedUnitID string          `json:"selected_unit_id,omitempty"`
	SelectedSpell  *Spell          `json:"selected_spell,omitempty"`
	ReachableTiles []Position      `json:"reachable_tiles"`
	AttackRange    []Position      `json:"attack_range"`
	ActionTargets  []Position      `json:"action_targets"`
	Message        string          `json:"message"`
	Busy           bool            `json:"busy"`
	Visual         *VisualEvent    `json:"visual,omitempty"`

	// Undo aids for clients deciding whether to offer an undo control
	HistoryDepth int  `json:"history_depth"`
	PendingMove  bool `json:"pending_move"`
}

// UnitByID returns the roster entry with the given id
func (s *GameState) UnitByID(id string) *Unit {
	for i := range s.Units {
		if s.Units[i].ID == id {
			return &s.Units[i]
		}
	}
	return nil
}

// SelectedUnit returns the currently selected unit, if any
func (s *GameState) SelectedUnit() *Unit {
	if s.SelectedUnitID == "" {
		return nil
	}
	return s.UnitByID(s.SelectedUnitID)
}

// Clone returns a deep copy safe to hand to other goroutines
func (s *GameState) Clone() *GameState {
	c := *s
	c.Level = s.Level.Clone()
	c.Grid = s.Grid.Clone()
	c.Units = cloneUnits(s.Units)
	if s.SelectedSpell != nil {
		spell := *s.SelectedSpell
		c.SelectedSpell = &spell
	}
	c.ReachableTiles = clonePositions(s.ReachableTiles)
	c.AttackRange = clonePositions(s.AttackRange)
	c.ActionTargets = clonePositions(s.ActionTargets)
	if s.Visual != nil {
		v := *s.Visual
		v.DyingUnitIDs = append([]string(nil), s.Visual.DyingUnitIDs...)
		if s.Visual.TargetTile != nil {
			p := *s.Visual.TargetTile
			v.TargetTile = &p
		}
		if s.Visual.CameraFocus != nil {
			p := *s.Visual.CameraFocus
			v.CameraFocus = &p
		}
		c.Visual = &v
	}
	return &c
}

func cloneUnits(units []Unit) []Unit {
	if units == nil {
		return nil
	}
	out := make([]Unit, len(units))
	for i, u := range units {
		out[i] = u.Clone()
	}
	return out
}

func clonePositions(ps []Position) []Position {
	return append([]Position{}, ps...)
}
