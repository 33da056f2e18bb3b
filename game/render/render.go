// Package render draws a board state as text for terminals and the plain
// text API view.
package render

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/gookit/color"

	"github.com/wricardo/placement-grid/game/engine"
)

// Glyphs for cells that hold no item.
const (
	GlyphEmpty      = "."
	GlyphLocked     = "#"
	GlyphDisabled   = "x"
	GlyphExpandable = "+"
	GlyphHeld       = "*"
)

var (
	colorFrame      = color.Style{color.FgGray}
	colorLocked     = color.Style{color.FgGray, color.OpBold}
	colorExpandable = color.Style{color.FgYellow, color.OpBold}
	colorValid      = color.Style{color.FgBlack, color.BgGreen}
	colorInvalid    = color.Style{color.FgWhite, color.BgRed, color.OpBold}
	colorHeld       = color.Style{color.FgMagenta, color.OpBold}

	rarityColors = []color.Style{
		{color.FgWhite},
		{color.FgBlue, color.OpBold},
		{color.FgMagenta, color.OpBold},
		{color.FgYellow, color.OpBold},
	}
)

// Renderer turns board states into text.
type Renderer struct {
	colored bool
}

// New returns a renderer. With colored unset the output is plain ASCII
// suitable for logs and HTTP responses.
func New(colored bool) *Renderer {
	return &Renderer{colored: colored}
}

// Board renders every grid, the pool and the item legend.
func (r *Renderer) Board(st engine.BoardState) string {
	glyphs := itemGlyphs(st.Items)

	var sb strings.Builder
	for i, gs := range st.Grids {
		if i > 0 {
			sb.WriteString("\n")
		}
		r.grid(&sb, gs, glyphs)
	}

	sb.WriteString("\n")
	r.pool(&sb, st, glyphs)

	if st.Drag != nil {
		fmt.Fprintf(&sb, "holding %s %s at (%.0f,%.0f)\n",
			r.paint(colorHeld, GlyphHeld), st.Drag.ItemID, st.Drag.Pointer.X, st.Drag.Pointer.Y)
	}
	switch {
	case st.Tokens != nil:
		fmt.Fprintf(&sb, "expansion tokens: %d\n", *st.Tokens)
	case st.ExpansionOpen:
		sb.WriteString("expansion: unlimited\n")
	}

	r.legend(&sb, st.Items, glyphs)
	return sb.String()
}

func (r *Renderer) grid(sb *strings.Builder, gs engine.GridState, glyphs map[string]string) {
	fmt.Fprintf(sb, "%s (%dx%d)\n", gs.ID, gs.SizeX, gs.SizeY)

	sb.WriteString("   ")
	for x := 0; x < gs.SizeX; x++ {
		sb.WriteString(r.paint(colorFrame, fmt.Sprintf("%2d", x)))
	}
	sb.WriteString("\n")

	for y, row := range gs.Cells {
		sb.WriteString(r.paint(colorFrame, fmt.Sprintf("%2d ", y)))
		for _, cell := range row {
			sb.WriteString(" ")
			sb.WriteString(r.cell(cell, glyphs))
		}
		sb.WriteString("\n")
	}
}

func (r *Renderer) cell(c engine.CellState, glyphs map[string]string) string {
	var glyph string
	style := colorFrame
	switch {
	case c.Full:
		glyph = glyphs[c.ItemID]
		style = rarityStyle(c.Rarity)
	case c.State == engine.SlotLocked:
		glyph, style = GlyphLocked, colorLocked
	case c.State == engine.SlotDisabled:
		glyph = GlyphDisabled
	case c.State == engine.SlotExpandable:
		glyph, style = GlyphExpandable, colorExpandable
	default:
		glyph = GlyphEmpty
	}

	switch c.Feedback {
	case engine.FeedbackValid:
		if !r.colored {
			return "o"
		}
		style = colorValid
	case engine.FeedbackInvalid:
		if !r.colored {
			return "!"
		}
		style = colorInvalid
	}
	return r.paint(style, glyph)
}

func (r *Renderer) pool(sb *strings.Builder, st engine.BoardState, glyphs map[string]string) {
	sb.WriteString("pool:")
	for _, slot := range st.PoolSlots {
		glyph := "_"
		if slot.ItemID != "" {
			glyph = glyphs[slot.ItemID]
		}
		suffix := ""
		if slot.Overflow {
			suffix = "+"
		}
		fmt.Fprintf(sb, " [%d%s:%s]", slot.Index, suffix, glyph)
	}
	sb.WriteString("\n")

	var unhoused []string
	for _, it := range st.Items {
		if it.Location == engine.LocationUnhoused {
			unhoused = append(unhoused, glyphs[it.ID])
		}
	}
	if len(unhoused) > 0 {
		fmt.Fprintf(sb, "unhoused: %s\n", strings.Join(unhoused, " "))
	}
}

func (r *Renderer) legend(sb *strings.Builder, items []engine.ItemState, glyphs map[string]string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("items:\n")
	for _, it := range items {
		where := string(it.Location)
		switch {
		case it.Anchor != nil:
			where = fmt.Sprintf("%s %s@(%d,%d)", where, it.GridID, it.Anchor.X, it.Anchor.Y)
		case it.PoolSlot != nil:
			where = fmt.Sprintf("%s slot %d", where, *it.PoolSlot)
		}
		fmt.Fprintf(sb, "  %s %-12s %s r%d rot%d %s\n",
			r.paint(rarityStyle(it.Rarity), glyphs[it.ID]), it.Name, it.ID, it.Rarity, it.Rotation*90, where)
	}
}

func (r *Renderer) paint(style color.Style, s string) string {
	if !r.colored {
		return s
	}
	return style.Sprint(s)
}

func rarityStyle(rarity int) color.Style {
	if rarity >= 0 && rarity < len(rarityColors) {
		return rarityColors[rarity]
	}
	return color.Style{color.FgCyan}
}

// itemGlyphs assigns each item a single character in board order: the first
// letter of its name, upper-cased for the first item to use it and
// lower-cased for the second. Later clashes fall back to digits.
func itemGlyphs(items []engine.ItemState) map[string]string {
	used := make(map[string]bool)
	out := make(map[string]string, len(items))
	next := 0
	for _, it := range items {
		var candidates []string
		for _, ch := range it.Name {
			if unicode.IsLetter(ch) {
				candidates = append(candidates, string(unicode.ToUpper(ch)), string(unicode.ToLower(ch)))
				break
			}
		}
		glyph := ""
		for _, c := range candidates {
			if !used[c] {
				glyph = c
				break
			}
		}
		for glyph == "" {
			c := fmt.Sprintf("%d", next%10)
			next++
			if !used[c] || next > 10 {
				glyph = c
			}
		}
		used[glyph] = true
		out[it.ID] = glyph
	}
	return out
}
