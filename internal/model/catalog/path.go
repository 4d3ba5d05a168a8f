package catalog

// PathKey identifies one of the resolution paths offered after an interpretation.
type PathKey string

const (
	PathChange   PathKey = "change"
	PathStay     PathKey = "stay"
	PathPatience PathKey = "patience"
	PathExplore  PathKey = "explore"
)

// Path is a resolution framing the user can choose for their situation.
type Path struct {
	Key         PathKey `json:"key"`
	Title       string  `json:"title"`
	Emoji       string  `json:"emoji"`
	Description string  `json:"description"`
	Reflection  string  `json:"reflection"`
}

// SeedPaths returns the four paths in display order.
func SeedPaths() []Path {
	return []Path{
		{
			Key:         PathChange,
			Title:       "Path of Change",
			Emoji:       "🔄",
			Description: "Take an active step and transform the situation.",
			Reflection:  "Change begins with one honest look at what no longer serves you.",
		},
		{
			Key:         PathStay,
			Title:       "Path of Stability",
			Emoji:       "🛡️",
			Description: "Keep what works and strengthen the ground you stand on.",
			Reflection:  "Stability is a choice you renew, not a place you get stuck.",
		},
		{
			Key:         PathPatience,
			Title:       "Path of Patience",
			Emoji:       "🌱",
			Description: "Let the situation ripen and watch before acting.",
			Reflection:  "Waiting with attention is a form of action.",
		},
		{
			Key:         PathExplore,
			Title:       "Path of Exploration",
			Emoji:       "🧭",
			Description: "Gather new perspectives before committing to a direction.",
			Reflection:  "Curiosity opens doors that certainty keeps closed.",
		},
	}
}
