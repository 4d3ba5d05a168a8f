package catalog

// Symbol is a single face of the insight dice.
type Symbol struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Keyword string `json:"keyword"`
	Meaning string `json:"meaning"`
}

// SeedSymbols provides the basic 16-symbol set.
func SeedSymbols() []Symbol {
	return []Symbol{
		{ID: "🔍", Name: "Magnifier", Keyword: "attention", Meaning: "Look closer at what you have been skimming over."},
		{ID: "🎩", Name: "Hat", Keyword: "role", Meaning: "The part you play and the masks you choose to wear."},
		{ID: "✏️", Name: "Pencil", Keyword: "authorship", Meaning: "You are still writing this chapter and can revise it."},
		{ID: "🗝️", Name: "Key", Keyword: "access", Meaning: "A solution already in your hands, waiting for the right door."},
		{ID: "🌉", Name: "Bridge", Keyword: "transition", Meaning: "Crossing from one state of life to another."},
		{ID: "🕯️", Name: "Candle", Keyword: "inner light", Meaning: "Quiet warmth that guides without forcing."},
		{ID: "⚓", Name: "Anchor", Keyword: "stability", Meaning: "What holds you in place, for better or worse."},
		{ID: "🧭", Name: "Compass", Keyword: "direction", Meaning: "Your inner sense of where north lies."},
		{ID: "🌊", Name: "Wave", Keyword: "emotion", Meaning: "Feelings that rise and fall and cannot be held still."},
		{ID: "🏔️", Name: "Mountain", Keyword: "challenge", Meaning: "A long climb that changes the one who climbs."},
		{ID: "🌱", Name: "Sprout", Keyword: "growth", Meaning: "Something new that needs patience and care."},
		{ID: "🪞", Name: "Mirror", Keyword: "reflection", Meaning: "What others show you about yourself."},
		{ID: "🕰️", Name: "Clock", Keyword: "timing", Meaning: "The rhythm of when, not only the question of what."},
		{ID: "🔥", Name: "Flame", Keyword: "passion", Meaning: "Energy that can warm or consume."},
		{ID: "🌙", Name: "Moon", Keyword: "intuition", Meaning: "Knowing that arrives before reasons do."},
		{ID: "🪶", Name: "Feather", Keyword: "lightness", Meaning: "Letting go of weight you no longer need to carry."},
	}
}
