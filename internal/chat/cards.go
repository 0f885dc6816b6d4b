// ABOUTME: Typed card payloads produced by the conversation service.
// ABOUTME: Decodes the wire "type" tag into a closed set of card structs.

package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind is the wire "type" tag of a card.
type Kind string

const (
	KindHospital                Kind = "hospital"
	KindHospitalSelection       Kind = "hospital_selection"
	KindLab                     Kind = "lab"
	KindLabSelection            Kind = "lab_selection"
	KindVisitType               Kind = "visit_type"
	KindMedicine                Kind = "medicine"
	KindPrescriptionMedicine    Kind = "prescription_medicine"
	KindTestPackage             Kind = "test_package"
	KindBookingConfirmation     Kind = "booking_confirmation"
	KindTestBookingConfirmation Kind = "test_booking_confirmation"
	KindLabBookingConfirmation  Kind = "lab_booking_confirmation"
	KindQuickReply              Kind = "quick_reply"
)

// Card is a decoded card payload. The set of implementations is closed:
// HospitalCard, LabCard, VisitTypeCard, MedicineCard,
// PrescriptionMedicineCard, TestPackageCard, ConfirmationCard,
// QuickReplyCard and GenericCard.
type Card interface {
	// Kind returns the wire type tag.
	Kind() Kind
	// Data returns the card exactly as the service sent it.
	Data() json.RawMessage

	base() *cardBase
}

// Status values carried by cards that can be unavailable.
const (
	StatusAvailable   = "available"
	StatusUnavailable = "unavailable"
)

type cardBase struct {
	Type          Kind   `json:"type"`
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
	Meta          string `json:"meta,omitempty"`
	SelectionText string `json:"selection_text,omitempty"`
	Status        string `json:"status,omitempty"`

	raw json.RawMessage
}

func (b *cardBase) Kind() Kind            { return b.Type }
func (b *cardBase) Data() json.RawMessage { return b.raw }
func (b *cardBase) base() *cardBase       { return b }

// selectionText is the message sent when the card is picked.
func (b *cardBase) selectionText() string {
	if b.SelectionText != "" {
		return b.SelectionText
	}
	return b.Title
}

// HospitalCard offers a hospital. Picking it stores the hospital selection.
type HospitalCard struct {
	cardBase
	HospitalID string `json:"hospital_id,omitempty"`
}

// ItemID is the id stored in the hospital selection. Cards without a
// hospital_id fall back to their title.
func (c *HospitalCard) ItemID() string {
	if c.HospitalID != "" {
		return c.HospitalID
	}
	return c.Title
}

// LabCard offers a diagnostic lab.
type LabCard struct {
	cardBase
	LabID          string   `json:"lab_id,omitempty"`
	TestsAvailable []string `json:"tests_available,omitempty"`
}

// VisitTypeCard offers a home or lab visit.
type VisitTypeCard struct {
	cardBase
	VisitType string `json:"visit_type,omitempty"`
}

// MedicineCard offers a medicine for ordering.
type MedicineCard struct {
	cardBase
	MedicineName     string     `json:"medicine_name,omitempty"`
	Price            FlexString `json:"price,omitempty"`
	ImageURL         string     `json:"image_url,omitempty"`
	GenericAvailable bool       `json:"generic_available,omitempty"`
	Alternatives     []string   `json:"alternatives,omitempty"`
}

// Name returns the medicine name, falling back to the title.
func (c *MedicineCard) Name() string {
	if c.MedicineName != "" {
		return c.MedicineName
	}
	return c.Title
}

// CardAction is a sub-button on a prescription card.
type CardAction struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Prescription action types with synthesized messages.
const (
	ActionAddToCart        = "add_to_cart"
	ActionFindAlternatives = "find_alternatives"
	ActionViewGenerics     = "view_generics"
)

// PrescriptionMedicineCard describes a prescribed medicine with its own
// action buttons.
type PrescriptionMedicineCard struct {
	cardBase
	MedicineName         string       `json:"medicine_name,omitempty"`
	Strength             string       `json:"strength,omitempty"`
	Dosage               string       `json:"dosage,omitempty"`
	Instructions         string       `json:"instructions,omitempty"`
	Duration             string       `json:"duration,omitempty"`
	Purpose              string       `json:"purpose,omitempty"`
	Prescriber           string       `json:"prescriber,omitempty"`
	RefillsRemaining     *FlexString  `json:"refills_remaining,omitempty"`
	Price                FlexString   `json:"price,omitempty"`
	PrescriptionRequired *bool        `json:"prescription_required,omitempty"`
	Actions              []CardAction `json:"actions,omitempty"`
}

// Name returns the medicine name, falling back to the title.
func (c *PrescriptionMedicineCard) Name() string {
	if c.MedicineName != "" {
		return c.MedicineName
	}
	return c.Title
}

// TestPackageCard offers a bundle of lab tests.
type TestPackageCard struct {
	cardBase
	Subtitle    string   `json:"subtitle,omitempty"`
	Details     []string `json:"details,omitempty"`
	Recommended bool     `json:"recommended,omitempty"`
}

// ConfirmationCard is a terminal booking confirmation. Rendering one clears
// every selection.
type ConfirmationCard struct {
	cardBase
	AppointmentID string              `json:"appointment_id,omitempty"`
	BookingID     string              `json:"booking_id,omitempty"`
	Details       ConfirmationDetails `json:"details,omitempty"`
	Instructions  []string            `json:"instructions,omitempty"`
	NextSteps     []string            `json:"next_steps,omitempty"`
}

// QuickReplyCard sends its text as if the user had typed it.
type QuickReplyCard struct {
	cardBase
}

// GenericCard renders any card type this client does not know.
type GenericCard struct {
	cardBase
}

// DetailRow is one label/value pair of a confirmation card.
type DetailRow struct {
	Label string
	Value string
}

// ConfirmationDetails holds either labelled rows (a JSON object, in key
// order) or plain lines (a JSON array).
type ConfirmationDetails struct {
	Rows  []DetailRow
	Lines []string
}

// Empty reports whether there is nothing to show.
func (d ConfirmationDetails) Empty() bool {
	return len(d.Rows) == 0 && len(d.Lines) == 0
}

// UnmarshalJSON accepts an object or an array and keeps object key order.
func (d *ConfirmationDetails) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '[':
		var items []any
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("decoding detail lines: %w", err)
		}
		for _, item := range items {
			d.Lines = append(d.Lines, formatScalar(item))
		}
		return nil
	case '{':
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("decoding detail rows: %w", err)
		}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("decoding detail label: %w", err)
			}
			label, _ := tok.(string)
			var value any
			if err := dec.Decode(&value); err != nil {
				return fmt.Errorf("decoding detail %q: %w", label, err)
			}
			d.Rows = append(d.Rows, DetailRow{Label: label, Value: formatScalar(value)})
		}
		return nil
	default:
		return fmt.Errorf("details must be an object or array, got %q", trimmed[:1])
	}
}

// MarshalJSON writes rows as an object and lines as an array.
func (d ConfirmationDetails) MarshalJSON() ([]byte, error) {
	if len(d.Rows) == 0 {
		if d.Lines == nil {
			return []byte("null"), nil
		}
		return json.Marshal(d.Lines)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, row := range d.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(row.Label)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(row.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FlexString accepts a JSON string, number or boolean. The service sends
// prices and refill counts either way.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexString(formatScalar(v))
	return nil
}

// String returns the value as text.
func (f FlexString) String() string { return string(f) }

func formatScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// DecodeCard decodes one card payload into its typed struct. Unknown types
// decode to *GenericCard.
func DecodeCard(data []byte) (Card, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decoding card type: %w", err)
	}

	var card Card
	switch head.Type {
	case KindHospital, KindHospitalSelection:
		card = &HospitalCard{}
	case KindLab, KindLabSelection:
		card = &LabCard{}
	case KindVisitType:
		card = &VisitTypeCard{}
	case KindMedicine:
		card = &MedicineCard{}
	case KindPrescriptionMedicine:
		card = &PrescriptionMedicineCard{}
	case KindTestPackage:
		card = &TestPackageCard{}
	case KindBookingConfirmation, KindTestBookingConfirmation, KindLabBookingConfirmation:
		card = &ConfirmationCard{}
	case KindQuickReply:
		card = &QuickReplyCard{}
	default:
		card = &GenericCard{}
	}

	if err := json.Unmarshal(data, card); err != nil {
		return nil, fmt.Errorf("decoding %s card: %w", head.Type, err)
	}
	card.base().raw = append(json.RawMessage(nil), data...)
	return card, nil
}

// genericFallback salvages whatever common fields it can from a card that
// failed to decode.
func genericFallback(data []byte) *GenericCard {
	card := &GenericCard{}
	var loose map[string]any
	if err := json.Unmarshal(data, &loose); err == nil {
		card.Type = Kind(formatScalar(loose["type"]))
		card.Title = formatScalar(loose["title"])
		card.Description = formatScalar(loose["description"])
		card.Meta = formatScalar(loose["meta"])
	}
	card.raw = append(json.RawMessage(nil), data...)
	return card
}

// CardList decodes a JSON array of cards. A card that fails to decode is
// kept as a *GenericCard so the rest of the list still renders.
type CardList []Card

// UnmarshalJSON implements json.Unmarshaler.
func (l *CardList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("decoding cards: %w", err)
	}
	cards := make(CardList, 0, len(raws))
	for _, raw := range raws {
		card, err := DecodeCard(raw)
		if err != nil {
			cards = append(cards, genericFallback(raw))
			continue
		}
		cards = append(cards, card)
	}
	*l = cards
	return nil
}

// MarshalJSON writes each card's original payload.
func (l CardList) MarshalJSON() ([]byte, error) {
	raws := make([]json.RawMessage, 0, len(l))
	for _, card := range l {
		data := card.Data()
		if len(data) == 0 {
			b, err := json.Marshal(card)
			if err != nil {
				return nil, err
			}
			data = b
		}
		raws = append(raws, data)
	}
	return json.Marshal(raws)
}
