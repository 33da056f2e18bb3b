package engine

// SpriteSet resolves the sprite names a slot is drawn with.
type SpriteSet interface {
	EmptySprite() string
	LockedSprite() string
	DisabledSprite() string
	ExpandableSprite(hovered bool) string
	FullSprite() string
	// RaritySprite returns the sprite of an occupied slot for a known rarity.
	RaritySprite(rarity int) (string, bool)
}

// SlotSprite picks the sprite for a cell. Occupied cells show the occupant's
// rarity; unknown rarities fall back to the generic full sprite.
func SlotSprite(set SpriteSet, cell CellView, hovered bool) string {
	if cell.Full() {
		r := cell.Occupant.Rarity()
		if r >= 0 && r <= MaxRarity {
			if name, ok := set.RaritySprite(r); ok {
				return name
			}
		}
		return set.FullSprite()
	}
	switch cell.State {
	case SlotLocked:
		return set.LockedSprite()
	case SlotDisabled:
		return set.DisabledSprite()
	case SlotExpandable:
		return set.ExpandableSprite(hovered)
	default:
		return set.EmptySprite()
	}
}

// StaticSprites is a SpriteSet read from layout configs.
type StaticSprites struct {
	Empty           string   `json:"empty" yaml:"empty"`
	Locked          string   `json:"locked" yaml:"locked"`
	Disabled        string   `json:"disabled" yaml:"disabled"`
	Expandable      string   `json:"expandable" yaml:"expandable"`
	ExpandableHover string   `json:"expandable_hover" yaml:"expandable_hover"`
	Full            string   `json:"full" yaml:"full"`
	Rarity          []string `json:"rarity" yaml:"rarity"`
}

// DefaultSprites names every sprite after its state.
func DefaultSprites() StaticSprites {
	return StaticSprites{
		Empty:           "slot_empty",
		Locked:          "slot_locked",
		Disabled:        "slot_disabled",
		Expandable:      "slot_expandable",
		ExpandableHover: "slot_expandable_hover",
		Full:            "slot_full",
		Rarity:          []string{"slot_common", "slot_rare", "slot_epic", "slot_legendary"},
	}
}

func (s StaticSprites) EmptySprite() string    { return s.Empty }
func (s StaticSprites) LockedSprite() string   { return s.Locked }
func (s StaticSprites) DisabledSprite() string { return s.Disabled }
func (s StaticSprites) FullSprite() string     { return s.Full }

func (s StaticSprites) ExpandableSprite(hovered bool) string {
	if hovered && s.ExpandableHover != "" {
		return s.ExpandableHover
	}
	return s.Expandable
}

func (s StaticSprites) RaritySprite(rarity int) (string, bool) {
	if rarity < 0 || rarity >= len(s.Rarity) || s.Rarity[rarity] == "" {
		return "", false
	}
	return s.Rarity[rarity], true
}
