// ABOUTME: Card dispatch engine: one element builder per card type.
// ABOUTME: Binds each interactive card to the Action its click performs.

package chat

import (
	"context"
	"log/slog"
	"strings"
)

// DefaultPlaceholderImage replaces medicine images that are missing or fail
// to load.
const DefaultPlaceholderImage = "/static/images/medicine/medicine-placeholder.jpg"

// Highlight groups.
const (
	GroupHospital    = "hospital-card"
	GroupLab         = "lab-card"
	GroupVisitType   = "visit-type-card"
	GroupTestPackage = "test-package-card"
)

// Closing notes on confirmation cards.
const (
	BookingClosingNote     = "You'll receive a confirmation message shortly."
	TestBookingClosingNote = "You'll receive a confirmation message with detailed instructions."
)

// RecommendedBadge marks a recommended test package.
const RecommendedBadge = "⭐ Recommended"

// CardEngine renders card bubbles.
type CardEngine struct {
	messages         *MessageRenderer
	selection        *Selection
	registry         *Registry
	placeholderImage string
	logger           *slog.Logger
}

// RenderCards appends one bubble holding text (when non-blank) and a
// container with every card. A confirmation card among them clears every
// selection and every highlight.
func (e *CardEngine) RenderCards(ctx context.Context, sender Sender, cards []Card, text, agentID string) {
	text = strings.TrimSpace(text)
	msg := e.messages.newMessage(sender, text, agentID)
	msg.Cards = cards

	bubble, body := e.messages.shell(msg)
	if text != "" {
		body.Add(&Element{Tag: TagText, Classes: []string{"message-content"}, Text: text})
	}

	container := &Element{Tag: TagCards, Classes: []string{"cards-container"}}
	terminal := false
	for _, card := range cards {
		el, done := e.build(card)
		container.Add(el)
		terminal = terminal || done
	}
	body.Add(container)
	body.Add(e.messages.timestamp(msg))

	e.messages.commit(ctx, msg, bubble)
	e.retire(e.registry.Own(bubble.ID, boundIDs(container)))

	if terminal {
		e.ClearSelections()
	}
}

// retire drops the highlight of cards that are no longer clickable, along
// with any selection they hold.
func (e *CardEngine) retire(retired []Binding) {
	for _, b := range retired {
		e.messages.view.SetClass(b.ID, ClassSelected, false)
		if b.Action.Kind != ActionSelect {
			continue
		}
		if current, ok := e.selection.Get(b.Action.Category); ok && current == b.Action.ItemID {
			e.selection.Clear(b.Action.Category)
		}
	}
	if len(retired) > 0 {
		e.logger.Debug("retired card bindings", "count", len(retired))
	}
}

func boundIDs(root *Element) []string {
	var ids []string
	root.Walk(func(el *Element) bool {
		if el.Action != nil {
			ids = append(ids, el.ID)
		}
		return true
	})
	return ids
}

// ClearSelections empties the selection store and removes every highlight.
func (e *CardEngine) ClearSelections() {
	e.selection.ClearAll()
	for _, id := range e.registry.Highlightable() {
		e.messages.view.SetClass(id, ClassSelected, false)
	}
}

// build returns the element for card and whether the card is a terminal
// confirmation.
func (e *CardEngine) build(card Card) (*Element, bool) {
	switch c := card.(type) {
	case *HospitalCard:
		return e.hospital(c), false
	case *LabCard:
		return e.lab(c), false
	case *VisitTypeCard:
		return e.visitType(c), false
	case *MedicineCard:
		return e.medicine(c), false
	case *PrescriptionMedicineCard:
		return e.prescription(c), false
	case *TestPackageCard:
		return e.testPackage(c), false
	case *ConfirmationCard:
		return e.confirmation(c), true
	case *QuickReplyCard:
		return e.quickReply(c), false
	case *GenericCard:
		return e.generic(&c.cardBase), false
	default:
		e.logger.Warn("unhandled card type", "type", card.Kind())
		return e.generic(card.base()), false
	}
}

func (e *CardEngine) card(base *cardBase, classes ...string) *Element {
	el := &Element{
		ID:      e.messages.newID(),
		Tag:     TagCard,
		Classes: append([]string{"message-card"}, classes...),
	}
	if base.Status != "" {
		el.Classes = append(el.Classes, base.Status)
	}
	return el
}

func (e *CardEngine) bind(el *Element, action Action) {
	el.Action = &action
	e.registry.Bind(el.ID, action)
}

// basics adds the title, description and meta shared by most cards.
func basics(el *Element, base *cardBase) {
	if base.Title != "" {
		el.Add(&Element{Tag: TagTitle, Classes: []string{"card-title"}, Text: base.Title})
	}
	if base.Description != "" {
		el.Add(&Element{Tag: TagDescription, Classes: []string{"card-description"}, Text: base.Description})
	}
	if base.Meta != "" {
		el.Add(&Element{Tag: TagMeta, Classes: []string{"card-meta"}, Text: base.Meta})
	}
}

func field(label, value string) *Element {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &Element{Tag: TagField, Classes: []string{"card-field"}, Label: label, Text: value}
}

func list(items []string, ordered bool, classes ...string) *Element {
	if len(items) == 0 {
		return nil
	}
	el := &Element{Tag: TagList, Classes: classes}
	if ordered {
		el.SetAttr(AttrOrdered, "true")
	}
	for _, item := range items {
		el.Add(&Element{Tag: TagItem, Text: item})
	}
	return el
}

func (e *CardEngine) hospital(c *HospitalCard) *Element {
	el := e.card(&c.cardBase, GroupHospital, "card-"+string(c.Type))
	basics(el, &c.cardBase)
	e.bind(el, Action{
		Kind:     ActionSelect,
		Text:     c.selectionText(),
		Card:     c,
		Category: CategoryHospital,
		ItemID:   c.ItemID(),
		Group:    GroupHospital,
	})
	return el
}

func (e *CardEngine) lab(c *LabCard) *Element {
	el := e.card(&c.cardBase, GroupLab, "card-"+string(c.Type))
	basics(el, &c.cardBase)
	if len(c.TestsAvailable) > 0 {
		el.Add(field("Tests Available", strings.Join(c.TestsAvailable, ", ")))
	}
	e.bind(el, Action{Kind: ActionPick, Text: c.selectionText(), Card: c, Group: GroupLab})
	return el
}

func (e *CardEngine) visitType(c *VisitTypeCard) *Element {
	el := e.card(&c.cardBase, GroupVisitType, "card-visit_type")
	basics(el, &c.cardBase)
	e.bind(el, Action{Kind: ActionPick, Text: c.selectionText(), Card: c, Group: GroupVisitType})
	return el
}

func (e *CardEngine) medicine(c *MedicineCard) *Element {
	el := e.card(&c.cardBase, "medicine-card")

	src := c.ImageURL
	if src == "" {
		src = e.placeholderImage
	}
	img := &Element{Tag: TagImage, Classes: []string{"medicine-image"}}
	img.SetAttr(AttrSrc, src).SetAttr(AttrAlt, c.Name()).SetAttr(AttrFallback, e.placeholderImage)
	el.Add(img)

	el.Add(&Element{Tag: TagTitle, Classes: []string{"medicine-name"}, Text: c.Name()})
	if c.Status != "" {
		el.Add(statusBadge(c.Status))
	}

	price := c.Price.String()
	if price == "" {
		price = "Price not available"
	}
	el.Add(&Element{Tag: TagMeta, Classes: []string{"medicine-price"}, Text: price})

	if c.Description != "" {
		el.Add(&Element{Tag: TagDescription, Classes: []string{"medicine-description"}, Text: c.Description})
	}
	if c.GenericAvailable {
		el.Add(&Element{Tag: TagNote, Classes: []string{"generic-available"}, Text: "Generic available"})
	}
	if len(c.Alternatives) > 0 {
		el.Add(field("Alternatives", strings.Join(c.Alternatives, ", ")))
	}

	e.bind(el, Action{Kind: ActionSubmit, Text: "I want to order " + c.Name(), Card: c})
	return el
}

func statusBadge(status string) *Element {
	text := status
	switch status {
	case StatusAvailable:
		text = "Available"
	case StatusUnavailable:
		text = "Unavailable"
	}
	return &Element{Tag: TagBadge, Classes: []string{"status-badge", status}, Text: text}
}

func (e *CardEngine) prescription(c *PrescriptionMedicineCard) *Element {
	el := e.card(&c.cardBase, "prescription-medicine-card")

	name := strings.TrimSpace(c.Name() + " " + c.Strength)
	header := &Element{Tag: TagHeader, Classes: []string{"prescription-header"}}
	header.Add(&Element{Tag: TagTitle, Classes: []string{"medicine-name"}, Text: name})
	if c.Status != "" {
		header.Add(statusBadge(c.Status))
	}
	el.Add(header)

	el.Add(
		field("Dosage", c.Dosage),
		field("Instructions", c.Instructions),
		field("Duration", c.Duration),
		field("Purpose", c.Purpose),
		field("Prescribed by", c.Prescriber),
	)
	if c.RefillsRemaining != nil {
		el.Add(&Element{Tag: TagField, Classes: []string{"card-field"}, Label: "Refills remaining", Text: c.RefillsRemaining.String()})
	}
	el.Add(field("Price", c.Price.String()))
	if c.PrescriptionRequired != nil {
		text := "Prescription not required"
		if *c.PrescriptionRequired {
			text = "Prescription required"
		}
		el.Add(&Element{Tag: TagNote, Classes: []string{"prescription-required"}, Text: text})
	}

	if len(c.Actions) > 0 {
		actions := &Element{Tag: TagSection, Classes: []string{"prescription-actions"}}
		for _, a := range c.Actions {
			btn := &Element{
				ID:      e.messages.newID(),
				Tag:     TagButton,
				Classes: []string{"prescription-action-btn", a.Type},
				Text:    a.Text,
			}
			e.bind(btn, Action{Kind: ActionSubmit, Text: prescriptionMessage(a, c.Name()), Card: c})
			actions.Add(btn)
		}
		el.Add(actions)
	}
	return el
}

func prescriptionMessage(a CardAction, name string) string {
	switch a.Type {
	case ActionAddToCart:
		return "Add " + name + " to cart"
	case ActionFindAlternatives:
		return "Find alternatives for " + name
	case ActionViewGenerics:
		return "Show generic alternatives for " + name
	default:
		return a.Text
	}
}

func (e *CardEngine) testPackage(c *TestPackageCard) *Element {
	el := e.card(&c.cardBase, GroupTestPackage, "card-test_package")
	if c.Recommended {
		el.Classes = append(el.Classes, "recommended")
	}
	el.Add(&Element{Tag: TagTitle, Classes: []string{"card-title"}, Text: c.Title})
	if c.Subtitle != "" {
		el.Add(&Element{Tag: TagSubtitle, Classes: []string{"card-subtitle"}, Text: c.Subtitle})
	}
	el.Add(list(c.Details, false, "card-details"))
	if c.Recommended {
		el.Add(&Element{Tag: TagBadge, Classes: []string{"recommended-badge"}, Text: RecommendedBadge})
	}
	e.bind(el, Action{Kind: ActionPick, Text: "I want the " + c.Title, Card: c, Group: GroupTestPackage})
	return el
}

// confirmationLayout holds the per-variant wording of confirmation cards.
type confirmationLayout struct {
	class        string
	icon         string
	defaultTitle string
	detailsTitle string
	closingNote  string
}

var confirmationLayouts = map[Kind]confirmationLayout{
	KindBookingConfirmation: {
		class:        "booking-confirmation-card",
		icon:         "✓",
		defaultTitle: "Appointment Confirmed",
		detailsTitle: "Appointment Details",
		closingNote:  BookingClosingNote,
	},
	KindTestBookingConfirmation: {
		class:        "test-booking-confirmation-card",
		icon:         "🩺",
		defaultTitle: "Test Booking Confirmed",
		detailsTitle: "Test Booking Details",
		closingNote:  TestBookingClosingNote,
	},
	KindLabBookingConfirmation: {
		class:        "lab-booking-confirmation-card",
		icon:         "🔬",
		defaultTitle: "Lab Test Booked Successfully",
		detailsTitle: "Booking Details",
	},
}

func (e *CardEngine) confirmation(c *ConfirmationCard) *Element {
	layout, ok := confirmationLayouts[c.Type]
	if !ok {
		layout = confirmationLayouts[KindBookingConfirmation]
	}

	el := e.card(&c.cardBase, layout.class)
	el.SetAttr(AttrInteractive, "false")

	title := c.Title
	if title == "" {
		title = layout.defaultTitle
	}
	header := &Element{Tag: TagHeader, Classes: []string{"confirmation-header"}}
	header.Add(
		&Element{Tag: TagAvatar, Classes: []string{"confirmation-icon"}, Text: layout.icon},
		&Element{Tag: TagTitle, Classes: []string{"confirmation-title"}, Text: title},
	)
	el.Add(header)

	if c.Description != "" {
		el.Add(&Element{Tag: TagDescription, Classes: []string{"card-description"}, Text: c.Description})
	}
	el.Add(field("Appointment ID", c.AppointmentID))
	el.Add(field("Booking ID", c.BookingID))

	if !c.Details.Empty() {
		section := &Element{Tag: TagSection, Classes: []string{"confirmation-details"}}
		section.Add(&Element{Tag: TagSubtitle, Text: layout.detailsTitle})
		for _, row := range c.Details.Rows {
			section.Add(&Element{Tag: TagField, Classes: []string{"card-field"}, Label: row.Label, Text: row.Value})
		}
		section.Add(list(c.Details.Lines, false, "details-list"))
		el.Add(section)
	}

	if len(c.Instructions) > 0 {
		section := &Element{Tag: TagSection, Classes: []string{"confirmation-instructions"}}
		section.Add(&Element{Tag: TagSubtitle, Text: "Important Instructions:"})
		section.Add(list(c.Instructions, true, "instructions-list"))
		el.Add(section)
	}
	if len(c.NextSteps) > 0 {
		section := &Element{Tag: TagSection, Classes: []string{"confirmation-next-steps"}}
		section.Add(&Element{Tag: TagSubtitle, Text: "Next Steps:"})
		section.Add(list(c.NextSteps, true, "next-steps-list"))
		el.Add(section)
	}

	if layout.closingNote != "" {
		el.Add(&Element{Tag: TagNote, Classes: []string{"confirmation-footer"}, Text: layout.closingNote})
	}
	return el
}

func (e *CardEngine) quickReply(c *QuickReplyCard) *Element {
	el := e.card(&c.cardBase, "quick-reply-card")
	basics(el, &c.cardBase)
	e.bind(el, Action{Kind: ActionQuickReply, Text: c.selectionText(), Card: c})
	return el
}

func (e *CardEngine) generic(base *cardBase) *Element {
	el := e.card(base, "generic-card")
	basics(el, base)
	return el
}
