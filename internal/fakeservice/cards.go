// ABOUTME: Card payloads returned by the fake conversation service
// ABOUTME: Hospitals, labs, visit types, packages, medicines and confirmations

package fakeservice

import (
	"fmt"
	"strings"
	"time"
)

type hospitalCard struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Meta          string `json:"meta"`
	SelectionText string `json:"selection_text"`
	HospitalID    string `json:"hospital_id"`
}

type labCard struct {
	Type           string   `json:"type"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Meta           string   `json:"meta"`
	SelectionText  string   `json:"selection_text"`
	LabID          string   `json:"lab_id"`
	TestsAvailable []string `json:"tests_available"`
}

type visitTypeCard struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Meta          string `json:"meta"`
	SelectionText string `json:"selection_text"`
	VisitType     string `json:"visit_type"`
}

type testPackageCard struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle"`
	Details     []string `json:"details"`
	Recommended bool     `json:"recommended,omitempty"`
}

type medicineCard struct {
	Type             string   `json:"type"`
	MedicineName     string   `json:"medicine_name"`
	Status           string   `json:"status"`
	Price            string   `json:"price"`
	ImageURL         string   `json:"image_url,omitempty"`
	Description      string   `json:"description"`
	GenericAvailable bool     `json:"generic_available"`
	Alternatives     []string `json:"alternatives,omitempty"`
	SelectionText    string   `json:"selection_text"`
}

type prescriptionAction struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type prescriptionCard struct {
	Type                 string               `json:"type"`
	MedicineName         string               `json:"medicine_name"`
	Strength             string               `json:"strength"`
	Dosage               string               `json:"dosage"`
	Instructions         string               `json:"instructions"`
	Duration             string               `json:"duration"`
	Purpose              string               `json:"purpose"`
	Prescriber           string               `json:"prescriber"`
	RefillsRemaining     int                  `json:"refills_remaining"`
	Price                int                  `json:"price"`
	PrescriptionRequired bool                 `json:"prescription_required"`
	Actions              []prescriptionAction `json:"actions"`
}

type quickReplyCard struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	SelectionText string `json:"selection_text"`
}

// appointmentDetails keeps the field order of the booking card.
type appointmentDetails struct {
	Department string `json:"Department"`
	Hospital   string `json:"Hospital"`
	Doctor     string `json:"Doctor"`
	Date       string `json:"Date"`
	Time       string `json:"Time"`
}

type bookingConfirmation struct {
	Type          string             `json:"type"`
	Title         string             `json:"title"`
	AppointmentID string             `json:"appointment_id"`
	Details       appointmentDetails `json:"details"`
	Instructions  []string           `json:"instructions"`
	Meta          string             `json:"meta"`
}

type labBookingConfirmation struct {
	Type      string   `json:"type"`
	Title     string   `json:"title"`
	BookingID string   `json:"booking_id"`
	Details   []string `json:"details"`
	NextSteps []string `json:"next_steps"`
}

func hospitalCards() []any {
	return []any{
		hospitalCard{
			Type:          "hospital",
			Title:         "Apollo Hospital",
			Description:   "Multi-specialty hospital with emergency services, ICU, and all major departments",
			Meta:          "📍 Delhi • ⭐ 4.5 • 🚑 24/7 Emergency",
			SelectionText: "Apollo Hospital",
			HospitalID:    "apollo_delhi",
		},
		hospitalCard{
			Type:          "hospital",
			Title:         "Max Super Specialty Hospital",
			Description:   "Advanced cardiac care, neurosciences, oncology with latest medical technology",
			Meta:          "📍 Delhi • ⭐ 4.6 • 💰 Cashless Available",
			SelectionText: "Max Super Specialty Hospital",
			HospitalID:    "max_delhi",
		},
		hospitalCard{
			Type:          "hospital",
			Title:         "Fortis Escorts Heart Institute",
			Description:   "World-class cardiac care center with renowned cardiologists and cardiac surgeons",
			Meta:          "📍 Delhi • ⭐ 4.7 • ❤️ Cardiac Specialist",
			SelectionText: "Fortis Escorts Heart Institute",
			HospitalID:    "fortis_cardiac",
		},
	}
}

var labsByCity = map[string][]labCard{
	"delhi": {
		{
			Title:          "Dr. Lal PathLabs",
			Description:    "NABL accredited lab with home collection service",
			Meta:           "📍 Delhi • ⭐ 4.5 • 🏠 Home Visit Available",
			SelectionText:  "Dr. Lal PathLabs",
			LabID:          "lal_delhi",
			TestsAvailable: []string{"Blood Tests", "Thyroid", "Diabetes", "Liver Function", "Kidney Function"},
		},
		{
			Title:          "Thyrocare Technologies",
			Description:    "Advanced testing with same-day reports for most tests",
			Meta:           "📍 Delhi • ⭐ 4.4 • ⚡ Same Day Reports",
			SelectionText:  "Thyrocare",
			LabID:          "thyrocare_delhi",
			TestsAvailable: []string{"Full Body Checkup", "Hormone Tests", "Vitamin Tests", "Cardiac Tests"},
		},
		{
			Title:          "SRL Diagnostics",
			Description:    "Comprehensive diagnostic services with digital reports",
			Meta:           "📍 Delhi • ⭐ 4.6 • 📱 Digital Reports",
			SelectionText:  "SRL Diagnostics",
			LabID:          "srl_delhi",
			TestsAvailable: []string{"Blood Tests", "Urine Tests", "Pathology", "Radiology"},
		},
	},
	"mumbai": {
		{
			Title:          "Suburban Diagnostics",
			Description:    "Leading diagnostic chain with multiple collection centers",
			Meta:           "📍 Mumbai • ⭐ 4.5 • 🏠 Home Visit Available",
			SelectionText:  "Suburban Diagnostics",
			LabID:          "suburban_mumbai",
			TestsAvailable: []string{"Blood Tests", "Thyroid", "Diabetes", "Full Body Checkup"},
		},
		{
			Title:          "Metropolis Healthcare",
			Description:    "Advanced laboratory testing with quality assurance",
			Meta:           "📍 Mumbai • ⭐ 4.6 • 🔬 Advanced Testing",
			SelectionText:  "Metropolis",
			LabID:          "metropolis_mumbai",
			TestsAvailable: []string{"Blood Tests", "Genetic Tests", "Oncology Tests", "Infectious Diseases"},
		},
	},
	"bangalore": {
		{
			Title:          "Aster Labs",
			Description:    "Comprehensive diagnostic services with quick turnaround",
			Meta:           "📍 Bangalore • ⭐ 4.4 • ⚡ Quick Results",
			SelectionText:  "Aster Labs",
			LabID:          "aster_bangalore",
			TestsAvailable: []string{"Blood Tests", "Thyroid", "Diabetes", "Liver Function"},
		},
		{
			Title:          "Apollo Diagnostics",
			Description:    "Trusted diagnostic services from Apollo healthcare group",
			Meta:           "📍 Bangalore • ⭐ 4.5 • 🏥 Hospital Network",
			SelectionText:  "Apollo Diagnostics",
			LabID:          "apollo_diagnostics_bangalore",
			TestsAvailable: []string{"Blood Tests", "Full Body Checkup", "Specialized Tests"},
		},
	},
}

// labCards returns the labs of the first city named in text, Delhi otherwise.
func labCards(text string) []any {
	city := "delhi"
	for name := range labsByCity {
		if strings.Contains(text, name) {
			city = name
			break
		}
	}
	labs := labsByCity[city]
	cards := make([]any, 0, len(labs))
	for _, lab := range labs {
		lab.Type = "lab"
		cards = append(cards, lab)
	}
	return cards
}

func visitTypeCards() []any {
	return []any{
		visitTypeCard{
			Type:          "visit_type",
			Title:         "🏠 Home Visit",
			Description:   "Get tests done at your home by trained technicians",
			Meta:          "Extra ₹200 charge • Same day slots available",
			SelectionText: "Home Visit",
			VisitType:     "home",
		},
		visitTypeCard{
			Type:          "visit_type",
			Title:         "🏥 Lab Visit",
			Description:   "Visit the lab for your tests at your convenience",
			Meta:          "No extra charge • Flexible timing",
			SelectionText: "Lab Visit",
			VisitType:     "lab",
		},
	}
}

func testPackageCards() []any {
	return []any{
		testPackageCard{
			Type:     "test_package",
			Title:    "Basic Health Checkup",
			Subtitle: "₹999 | 40+ parameters",
			Details: []string{
				"Ideal for: Routine annual health monitoring",
				"Complete Blood Count (CBC)",
				"Blood Sugar (Fasting & PP)",
				"Lipid Profile",
			},
		},
		testPackageCard{
			Type:     "test_package",
			Title:    "Full Body Checkup",
			Subtitle: "₹2,499 | 80+ parameters",
			Details: []string{
				"Ideal for: Comprehensive health assessment",
				"All Basic Health tests",
				"Thyroid Profile (T3, T4, TSH)",
				"Vitamin D & B12",
				"HbA1c (Diabetes marker)",
			},
			Recommended: true,
		},
		testPackageCard{
			Type:     "test_package",
			Title:    "Executive Health Checkup",
			Subtitle: "₹4,999 | 120+ parameters",
			Details: []string{
				"Ideal for: Complete preventive screening",
				"All Full Body tests",
				"Cardiac Risk Markers",
				"Cancer Markers",
			},
		},
	}
}

type medicine struct {
	name        string
	available   bool
	price       int
	unit        string
	image       string
	description string
}

var inventory = []medicine{
	{"Paracetamol", true, 20, "strip", "crocin.jpg", "Pain reliever and fever reducer"},
	{"Ibuprofen", true, 35, "strip", "", "Non-steroidal anti-inflammatory drug"},
	{"Dolo", false, 25, "strip", "crocin.jpg", "Paracetamol 650mg tablet for pain and fever"},
	{"Amoxicillin", false, 150, "strip", "moxkind.jpg", "Broad-spectrum antibiotic"},
	{"Cetirizine", true, 25, "strip", "montair.jpg", "Antihistamine for allergies"},
	{"Metformin", true, 80, "strip", "glycomet.jpg", "Diabetes medication"},
	{"Vitamin C", true, 30, "strip", "becosules.jpg", "Immune system support"},
}

// medicineCards returns cards for the medicines named in text, or the
// common fever medicines when none are.
func (s *Service) medicineCards(text string) []any {
	var picked []medicine
	for _, m := range inventory {
		if strings.Contains(text, strings.ToLower(m.name)) {
			picked = append(picked, m)
		}
	}
	if len(picked) == 0 {
		picked = inventory[:3]
	}

	cards := make([]any, 0, len(picked))
	for _, m := range picked {
		status := "available"
		if !m.available {
			status = "unavailable"
		}
		card := medicineCard{
			Type:             "medicine",
			MedicineName:     m.name,
			Status:           status,
			Price:            fmt.Sprintf("₹%d/%s", m.price, m.unit),
			Description:      m.description,
			GenericAvailable: true,
			SelectionText:    m.name,
		}
		if m.image != "" && s.imageBase != "" {
			card.ImageURL = s.imageBase + "/" + m.image
		}
		if !m.available {
			card.Alternatives = []string{"Paracetamol", "Ibuprofen"}
		}
		cards = append(cards, card)
	}
	return cards
}

func prescriptionCards() []any {
	return []any{
		prescriptionCard{
			Type:                 "prescription_medicine",
			MedicineName:         "Amoxicillin",
			Strength:             "500mg",
			Dosage:               "1 capsule",
			Instructions:         "Three times daily after meals",
			Duration:             "5 days",
			Purpose:              "Bacterial infection",
			Prescriber:           "Dr. Sharma",
			RefillsRemaining:     0,
			Price:                150,
			PrescriptionRequired: true,
			Actions: []prescriptionAction{
				{Type: "add_to_cart", Text: "Add to cart"},
				{Type: "view_generics", Text: "View generics"},
			},
		},
		prescriptionCard{
			Type:                 "prescription_medicine",
			MedicineName:         "Cetirizine",
			Strength:             "10mg",
			Dosage:               "1 tablet",
			Instructions:         "Once daily at bedtime",
			Duration:             "10 days",
			Purpose:              "Allergic rhinitis",
			Prescriber:           "Dr. Sharma",
			RefillsRemaining:     2,
			Price:                25,
			PrescriptionRequired: false,
			Actions: []prescriptionAction{
				{Type: "add_to_cart", Text: "Add to cart"},
				{Type: "find_alternatives", Text: "Find alternatives"},
			},
		},
	}
}

func quickReplyCards(options ...string) []any {
	cards := make([]any, 0, len(options))
	for _, o := range options {
		cards = append(cards, quickReplyCard{Type: "quick_reply", Title: o, SelectionText: o})
	}
	return cards
}

func (s *Service) bookingConfirmation(hospital string) bookingConfirmation {
	id := fmt.Sprintf("APPT-%04d-%s", s.nextBooking(), s.now().Format("0102"))
	return bookingConfirmation{
		Type:          "booking_confirmation",
		Title:         "✅ Appointment Confirmed!",
		AppointmentID: id,
		Details: appointmentDetails{
			Department: "General Medicine",
			Hospital:   hospital,
			Doctor:     "Dr. Sharma",
			Date:       s.now().Add(24 * time.Hour).Format("January 02, 2006"),
			Time:       "10:00 AM",
		},
		Instructions: []string{
			"📍 Arrive 15 minutes early for registration",
			"📄 Bring your ID and insurance card",
			"💊 Bring current medications list",
		},
		Meta: "Appointment ID: " + id + " • ⏰ Duration: 30 mins",
	}
}

func (s *Service) labBookingConfirmation(pkg string) labBookingConfirmation {
	return labBookingConfirmation{
		Type:      "lab_booking_confirmation",
		Title:     "✅ Lab Test Booked Successfully",
		BookingID: fmt.Sprintf("LAB-%05d", 10000+s.nextBooking()),
		Details: []string{
			"Test/Package: " + pkg,
			"Time: Morning (7 AM - 12 PM)",
		},
		NextSteps: []string{
			"Technician will call 30 mins before visit (for home visits)",
			"Keep your ID proof ready",
			"Fasting required for some tests (8-12 hours)",
			"Results will be available in 24-48 hours via email/SMS",
		},
	}
}
