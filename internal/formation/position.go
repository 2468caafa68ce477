package formation

import "strings"

// Category is the broad role a position label belongs to.
type Category string

const (
	Goalkeeper Category = "goalkeeper"
	Defender   Category = "defender"
	Midfielder Category = "midfielder"
	Forward    Category = "forward"
	Unknown    Category = "unknown"
)

// Keywords are matched as substrings of the lowercased label, so sub-labels
// like "Lateral derecho" or "Mediocampista defensivo" classify too.
var keywords = []struct {
	cat   Category
	words []string
}{
	{Goalkeeper, []string{"portero", "arquero", "goalkeeper", "keeper"}},
	{Defender, []string{"defensa", "defender", "lateral", "central"}},
	{Midfielder, []string{"medio", "volante", "midfielder"}},
	{Forward, []string{"delantero", "atacante", "extremo", "punta", "forward", "striker"}},
}

// Classify maps a free-form position label to its category.
func Classify(label string) Category {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return Unknown
	}
	for _, k := range keywords {
		for _, w := range k.words {
			if strings.Contains(l, w) {
				return k.cat
			}
		}
	}
	return Unknown
}

// Compatible reports whether a player labelled playerPos may fill a slot
// labelled slotPos. Goalkeepers only swap with goalkeepers. Outfield slots
// accept any label carrying one of their category's keywords, so a
// "Mediocampista central" fits both midfield and defence. A slot whose
// category is not recognized accepts every outfield player.
func Compatible(slotPos, playerPos string) bool {
	slot := Classify(slotPos)
	if slot == Goalkeeper {
		return hasKeyword(playerPos, Goalkeeper)
	}
	if hasKeyword(playerPos, Goalkeeper) {
		return false
	}
	if slot == Unknown {
		return true
	}
	return hasKeyword(playerPos, slot)
}

func hasKeyword(label string, cat Category) bool {
	l := strings.ToLower(label)
	for _, k := range keywords {
		if k.cat != cat {
			continue
		}
		for _, w := range k.words {
			if strings.Contains(l, w) {
				return true
			}
		}
	}
	return false
}
