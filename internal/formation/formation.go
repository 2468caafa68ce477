// Package formation holds the catalog of formation templates and the
// position-compatibility rule used when placing players on slots.
package formation

import (
	"slices"
	"strings"

	"github.com/playperu/matchday/internal/matchday"
)

const (
	posGoalkeeper = "Portero"
	posDefender   = "Defensa"
	posMidfielder = "Mediocampista"
	posForward    = "Delantero"
)

func builtins() []matchday.FormationTemplate {
	s := func(x, y float64, pos string) matchday.Slot {
		return matchday.Slot{X: x, Y: y, Position: pos}
	}
	return []matchday.FormationTemplate{
		{Code: "4-4-2", Name: "4-4-2 Clásica", Sport: matchday.SportEleven, Slots: []matchday.Slot{
			s(50, 95, posGoalkeeper),
			s(20, 75, posDefender), s(40, 75, posDefender), s(60, 75, posDefender), s(80, 75, posDefender),
			s(20, 50, posMidfielder), s(40, 50, posMidfielder), s(60, 50, posMidfielder), s(80, 50, posMidfielder),
			s(35, 20, posForward), s(65, 20, posForward),
		}},
		{Code: "4-3-3", Name: "4-3-3 Ofensiva", Sport: matchday.SportEleven, Slots: []matchday.Slot{
			s(50, 95, posGoalkeeper),
			s(20, 75, posDefender), s(40, 75, posDefender), s(60, 75, posDefender), s(80, 75, posDefender),
			s(30, 50, posMidfielder), s(50, 50, posMidfielder), s(70, 50, posMidfielder),
			s(20, 20, posForward), s(50, 15, posForward), s(80, 20, posForward),
		}},
		{Code: "3-5-2", Name: "3-5-2", Sport: matchday.SportEleven, Slots: []matchday.Slot{
			s(50, 95, posGoalkeeper),
			s(30, 75, posDefender), s(50, 75, posDefender), s(70, 75, posDefender),
			s(15, 50, posMidfielder), s(35, 50, posMidfielder), s(50, 50, posMidfielder), s(65, 50, posMidfielder), s(85, 50, posMidfielder),
			s(35, 20, posForward), s(65, 20, posForward),
		}},
		{Code: "4-2-3-1", Name: "4-2-3-1", Sport: matchday.SportEleven, Slots: []matchday.Slot{
			s(50, 95, posGoalkeeper),
			s(20, 75, posDefender), s(40, 75, posDefender), s(60, 75, posDefender), s(80, 75, posDefender),
			s(35, 60, posMidfielder), s(65, 60, posMidfielder),
			s(25, 35, posMidfielder), s(50, 35, posMidfielder), s(75, 35, posMidfielder),
			s(50, 15, posForward),
		}},
		{Code: "3-4-3", Name: "3-4-3", Sport: matchday.SportEleven, Slots: []matchday.Slot{
			s(50, 95, posGoalkeeper),
			s(30, 75, posDefender), s(50, 75, posDefender), s(70, 75, posDefender),
			s(20, 50, posMidfielder), s(40, 50, posMidfielder), s(60, 50, posMidfielder), s(80, 50, posMidfielder),
			s(25, 20, posForward), s(50, 15, posForward), s(75, 20, posForward),
		}},
		{Code: "1-2-2", Name: "1-2-2 Indoor", Sport: matchday.SportIndoor, Slots: []matchday.Slot{
			s(50, 90, posGoalkeeper),
			s(30, 65, posDefender), s(70, 65, posDefender),
			s(30, 35, posMidfielder), s(70, 35, posMidfielder),
			s(50, 15, posForward),
		}},
		{Code: "1-1-3", Name: "1-1-3 Indoor Ofensivo", Sport: matchday.SportIndoor, Slots: []matchday.Slot{
			s(50, 90, posGoalkeeper),
			s(50, 65, posDefender),
			s(25, 35, posForward), s(50, 30, posForward), s(75, 35, posForward), s(50, 10, posForward),
		}},
		{Code: "1-3-1", Name: "1-3-1 Indoor Defensivo", Sport: matchday.SportIndoor, Slots: []matchday.Slot{
			s(50, 90, posGoalkeeper),
			s(25, 65, posDefender), s(50, 65, posDefender), s(75, 65, posDefender),
			s(35, 30, posMidfielder),
			s(50, 15, posForward),
		}},
	}
}

// Catalog is immutable after construction and safe for concurrent reads.
type Catalog struct {
	templates []matchday.FormationTemplate
	byCode    map[string]int
}

// NewCatalog returns the built-in formations followed by custom, in order.
// Custom templates are validated against their sport's roster size and may
// not reuse an existing code.
func NewCatalog(custom ...matchday.FormationTemplate) (*Catalog, error) {
	c := &Catalog{byCode: make(map[string]int)}
	for _, t := range builtins() {
		c.add(t)
	}
	for _, t := range custom {
		if err := validateTemplate(t); err != nil {
			return nil, err
		}
		if _, ok := c.byCode[t.Code]; ok {
			return nil, matchday.Reject(matchday.CodeInvalidFormation, "formation %q already exists", t.Code)
		}
		t.Custom = true
		c.add(t)
	}
	return c, nil
}

func (c *Catalog) add(t matchday.FormationTemplate) {
	t.Slots = slices.Clone(t.Slots)
	c.byCode[t.Code] = len(c.templates)
	c.templates = append(c.templates, t)
}

func validateTemplate(t matchday.FormationTemplate) error {
	if strings.TrimSpace(t.Code) == "" {
		return matchday.Reject(matchday.CodeInvalidFormation, "formation code is required")
	}
	if !t.Sport.Valid() {
		return matchday.Reject(matchday.CodeInvalidFormation, "formation %q has unknown sport %q", t.Code, t.Sport)
	}
	if len(t.Slots) != t.Sport.Starters() {
		return matchday.Reject(matchday.CodeInvalidFormation,
			"formation %q has %d slots, want %d", t.Code, len(t.Slots), t.Sport.Starters())
	}
	for i, s := range t.Slots {
		if s.X < 0 || s.X > 100 || s.Y < 0 || s.Y > 100 {
			return matchday.Reject(matchday.CodeInvalidFormation, "formation %q slot %d is off the pitch", t.Code, i)
		}
	}
	return nil
}

// Lookup returns the template for code.
func (c *Catalog) Lookup(code string) (matchday.FormationTemplate, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return matchday.FormationTemplate{}, false
	}
	t := c.templates[i]
	t.Slots = slices.Clone(t.Slots)
	return t, true
}

// SlotsFor returns the ordered slots of a formation.
func (c *Catalog) SlotsFor(code string) ([]matchday.Slot, bool) {
	t, ok := c.Lookup(code)
	return t.Slots, ok
}

// TemplatesFor lists the formations available for a sport.
func (c *Catalog) TemplatesFor(sport matchday.SportType) []matchday.FormationTemplate {
	var out []matchday.FormationTemplate
	for _, t := range c.templates {
		if t.Sport == sport {
			t.Slots = slices.Clone(t.Slots)
			out = append(out, t)
		}
	}
	return out
}
