package formation

import (
	"testing"

	"github.com/playperu/matchday/internal/matchday"
)

func TestBuiltinTemplatesMatchRosterSize(t *testing.T) {
	c, err := NewCatalog()
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}

	for _, sport := range []matchday.SportType{matchday.SportEleven, matchday.SportIndoor} {
		templates := c.TemplatesFor(sport)
		if len(templates) == 0 {
			t.Fatalf("no templates for %s", sport)
		}
		for _, tpl := range templates {
			if len(tpl.Slots) != sport.Starters() {
				t.Errorf("%s: %d slots, want %d", tpl.Code, len(tpl.Slots), sport.Starters())
			}
			keepers := 0
			for _, s := range tpl.Slots {
				if Classify(s.Position) == Goalkeeper {
					keepers++
				}
			}
			if keepers != 1 {
				t.Errorf("%s: %d goalkeeper slots, want 1", tpl.Code, keepers)
			}
		}
	}
}

func TestSlotsForUnknownCode(t *testing.T) {
	c, _ := NewCatalog()

	if _, ok := c.SlotsFor("9-9-9"); ok {
		t.Fatal("expected unknown code to be not found")
	}
	slots, ok := c.SlotsFor("4-4-2")
	if !ok {
		t.Fatal("expected 4-4-2 to exist")
	}
	slots[0].Position = "changed"
	again, _ := c.SlotsFor("4-4-2")
	if again[0].Position != "Portero" {
		t.Fatal("catalog slots must not be aliased")
	}
}

func TestCustomTemplates(t *testing.T) {
	custom := matchday.FormationTemplate{
		Code:  "2-2-1-diamante",
		Name:  "Diamante",
		Sport: matchday.SportIndoor,
		Slots: []matchday.Slot{
			{X: 50, Y: 90, Position: "Portero"},
			{X: 30, Y: 65, Position: "Defensa"},
			{X: 70, Y: 65, Position: "Defensa"},
			{X: 50, Y: 45, Position: "Libre"},
			{X: 30, Y: 25, Position: "Delantero"},
			{X: 70, Y: 25, Position: "Delantero"},
		},
	}

	c, err := NewCatalog(custom)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	got, ok := c.Lookup("2-2-1-diamante")
	if !ok || !got.Custom {
		t.Fatalf("custom template not registered: %+v", got)
	}

	tests := []struct {
		name string
		tpl  matchday.FormationTemplate
	}{
		{"shadows builtin", matchday.FormationTemplate{Code: "1-2-2", Sport: matchday.SportIndoor, Slots: custom.Slots}},
		{"wrong size", matchday.FormationTemplate{Code: "x", Sport: matchday.SportEleven, Slots: custom.Slots}},
		{"no code", matchday.FormationTemplate{Sport: matchday.SportIndoor, Slots: custom.Slots}},
		{"off pitch", matchday.FormationTemplate{Code: "y", Sport: matchday.SportIndoor, Slots: append(custom.Slots[:5:5], matchday.Slot{X: 120, Y: 10})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.tpl)
			if !matchday.IsCode(err, matchday.CodeInvalidFormation) {
				t.Fatalf("err = %v, want INVALID_FORMATION", err)
			}
		})
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		slot, player string
		want         bool
	}{
		{"Portero", "Portero", true},
		{"Portero", "Delantero", false},
		{"Defensa", "Portero", false},
		{"Defensa", "Lateral izquierdo", true},
		{"Defensa", "Central", true},
		{"Defensa", "Delantero", false},
		{"Mediocampista", "Volante", true},
		{"Mediocampista", "Mediocampista central", true},
		{"Defensa", "Mediocampista central", true},
		{"Delantero", "Extremo", true},
		{"Delantero", "Punta", true},
		{"Delantero", "Defensa", false},
		{"Libre", "Defensa", true},
		{"Libre", "Delantero", true},
		{"Libre", "Portero", false},
		{"Defensa", "Libero", false},
	}

	for _, tt := range tests {
		if got := Compatible(tt.slot, tt.player); got != tt.want {
			t.Errorf("Compatible(%q, %q) = %v, want %v", tt.slot, tt.player, got, tt.want)
		}
	}
}
