package catalog

// PositionKey names a slot in the six-dice spread.
type PositionKey string

const (
	PositionRoot   PositionKey = "root"
	PositionOuter  PositionKey = "outer"
	PositionInner  PositionKey = "inner"
	PositionShadow PositionKey = "shadow"
	PositionGift   PositionKey = "gift"
	PositionStep   PositionKey = "step"
)

// Position describes what a spread slot stands for.
type Position struct {
	Key      PositionKey `json:"key"`
	Title    string      `json:"title"`
	Question string      `json:"question"`
}

// SeedPositions returns the spread slots in draw order.
func SeedPositions() []Position {
	return []Position{
		{Key: PositionRoot, Title: "Root", Question: "What lies at the core of the situation?"},
		{Key: PositionOuter, Title: "Outer", Question: "What is happening around you?"},
		{Key: PositionInner, Title: "Inner", Question: "What is happening inside you?"},
		{Key: PositionShadow, Title: "Shadow", Question: "What are you not seeing or avoiding?"},
		{Key: PositionGift, Title: "Gift", Question: "What resource do you already have?"},
		{Key: PositionStep, Title: "Step Forward", Question: "What is the next step?"},
	}
}
