// Package graph renders a slot graph as a Mermaid flowchart.
package graph

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/slotflow/internal/render"
	"github.com/aretw0/slotflow/pkg/domain"
)

// GraphOverlay contains session data to visualize on the graph.
type GraphOverlay struct {
	// AnsweredSlots are the slots whose value is stored in the context.
	AnsweredSlots []string
	// CurrentSlot is the slot awaiting an answer.
	CurrentSlot string
}

// OverlayFromContext builds the overlay of a stored session context.
func OverlayFromContext(g *domain.Graph, c *domain.Context) *GraphOverlay {
	if c == nil {
		return nil
	}
	o := &GraphOverlay{}
	if c.AwaitingAnswer() {
		o.CurrentSlot = c.CurrentSlot()
	}
	for _, group := range g.Groups {
		for _, slot := range group.Slots {
			if _, ok := c.Get(slot.ID); ok {
				o.AnsweredSlots = append(o.AnsweredSlots, slot.ID)
			}
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of g. Each intent group is a
// subgraph entered through a circle node; slot shapes follow what they expect:
//
//   - entity answer: [/Parallelogram/]
//   - any input: [Rectangle]
//   - no jump target (ends the dialogue): ([Stadium])
//
// Solid arrows are jumps to a slot, dotted arrows jumps to another group,
// and dynamic jump targets point to a {{hexagon}} holding the expression.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, group := range g.Groups {
		entry := entryID(group.Name)
		fmt.Fprintf(&sb, "    %s((\"%s\"))\n", entry, label(group.Name))
		fmt.Fprintf(&sb, "    subgraph %s [\"%s\"]\n", groupID(group.Name), label(group.Name))
		for _, slot := range group.Slots {
			sb.WriteString("        " + slotNode(slot) + "\n")
		}
		sb.WriteString("    end\n")

		writeEntryArrows(&sb, entry, group)
	}

	for _, group := range g.Groups {
		for _, slot := range group.Slots {
			writeJump(&sb, g, slot)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef answered fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.AnsweredSlots {
			if _, _, ok := g.Slot(id); !ok || seen[id] || id == overlay.CurrentSlot {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s answered;\n", slotID(id))
		}
		if _, _, ok := g.Slot(overlay.CurrentSlot); ok {
			fmt.Fprintf(&sb, "    class %s current;\n", slotID(overlay.CurrentSlot))
		}
	}

	return sb.String()
}

func slotNode(slot domain.SlotDefinition) string {
	text := label(slot.ID)
	if !slot.Requires.AcceptsAny() {
		text += " <br/> " + label(slot.Requires.Entity)
	}

	opener, closer := "[", "]"
	switch {
	case slot.JumpTo == "":
		opener, closer = "([", "])"
	case !slot.Requires.AcceptsAny():
		opener, closer = "[/", "/]"
	}
	return fmt.Sprintf("%s%s\"%s\"%s", slotID(slot.ID), opener, text, closer)
}

// writeEntryArrows links the group entry to every slot that can be entered
// first: guarded slots in order, up to the first unguarded one.
func writeEntryArrows(sb *strings.Builder, entry string, group domain.IntentGroup) {
	for _, slot := range group.Slots {
		if slot.Guard == "" {
			fmt.Fprintf(sb, "    %s --> %s\n", entry, slotID(slot.ID))
			return
		}
		fmt.Fprintf(sb, "    %s -- \"%s\" --> %s\n", entry, label(slot.Guard), slotID(slot.ID))
	}
}

func writeJump(sb *strings.Builder, g *domain.Graph, slot domain.SlotDefinition) {
	from := slotID(slot.ID)
	target := strings.TrimSpace(slot.JumpTo)
	if target == "" {
		return
	}

	if render.IsDynamic(target) || strings.Contains(target, "{{") {
		dyn := "dyn_" + from
		fmt.Fprintf(sb, "    %s{{\"%s\"}}\n", dyn, label(target))
		fmt.Fprintf(sb, "    %s -.-> %s\n", from, dyn)
		return
	}

	for _, group := range g.Groups {
		if len(group.Slots) > 0 && strings.Contains(group.Name, target) {
			fmt.Fprintf(sb, "    %s -.-> %s\n", from, entryID(group.Name))
			return
		}
	}
	if _, _, ok := g.Slot(target); ok {
		fmt.Fprintf(sb, "    %s --> %s\n", from, slotID(target))
		return
	}
	if _, ok := g.Group(domain.NoneIntent); ok {
		fmt.Fprintf(sb, "    %s -. \"%s?\" .-> %s\n", from, label(target), entryID(domain.NoneIntent))
	}
}

var unsafeID = regexp.MustCompile(`[^A-Za-z0-9_]`)

func sanitizeMermaidID(id string) string {
	return unsafeID.ReplaceAllString(id, "_")
}

func slotID(id string) string   { return "slot_" + sanitizeMermaidID(id) }
func groupID(name string) string { return "group_" + sanitizeMermaidID(name) }
func entryID(name string) string { return "intent_" + sanitizeMermaidID(name) }

// label escapes double quotes for use inside a quoted Mermaid label.
func label(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
