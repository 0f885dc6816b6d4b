// ABOUTME: Scripted stand-in for the remote conversation service
// ABOUTME: Routes messages and card picks to agents by keyword and replies with cards

package fakeservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/2389/wellness-client/internal/chat"
)

// Agents the fake service answers as.
const (
	AgentOrchestrator = "orchestrator"
	AgentSymptom      = "symptom"
	AgentScheduling   = "scheduling"
	AgentPharmacy     = "pharmacy"
	AgentLabTest      = "lab_test"
)

// FailPhrase makes the service answer 500, for exercising the client's
// fallback path.
const FailPhrase = "simulate error"

// Options configures a Service.
type Options struct {
	// Delay is added before every /chat reply.
	Delay time.Duration
	// ImageBase prefixes medicine image file names. Empty sends no images.
	ImageBase string
	Logger    *slog.Logger
	Now       func() time.Time
}

// Service answers /chat and /health.
type Service struct {
	delay     time.Duration
	imageBase string
	logger    *slog.Logger
	now       func() time.Time

	bookings atomic.Int64
	requests atomic.Int64
}

// reply is the wire response. Cards hold the typed payloads from cards.go.
type reply struct {
	Response         string   `json:"response"`
	Agent            string   `json:"agent"`
	Cards            []any    `json:"cards,omitempty"`
	SuggestedReplies []string `json:"suggested_replies,omitempty"`
	Confirmed        *bool    `json:"confirmed,omitempty"`
	Timestamp        string   `json:"timestamp"`
}

// New creates a Service.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		delay:     opts.Delay,
		imageBase: strings.TrimSuffix(opts.ImageBase, "/"),
		logger:    logger.With("component", "fakeservice"),
		now:       now,
	}
}

// Handler returns the service's routes.
func (s *Service) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	return r
}

// Requests returns how many /chat requests have been answered.
func (s *Service) Requests() int64 {
	return s.requests.Load()
}

func (s *Service) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "message is required"})
		return
	}
	s.requests.Add(1)

	logger := s.logger.With("current_agent", req.CurrentAgent, "suggested", req.IsSuggestedReply)
	logger.Info("chat request", "message", req.Message, "has_card", len(req.CardData) > 0)

	if err := s.wait(r.Context()); err != nil {
		return
	}

	if strings.Contains(strings.ToLower(req.Message), FailPhrase) {
		logger.Warn("failing on request")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "agent unavailable"})
		return
	}

	resp := s.answer(&req)
	resp.Timestamp = s.now().Format(time.RFC3339)
	logger.Debug("chat reply", "agent", resp.Agent, "cards", len(resp.Cards))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Service) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return nil
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// picked is the part of a card payload the router looks at.
type picked struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	SelectionText string `json:"selection_text"`
	MedicineName  string `json:"medicine_name"`
}

func (p picked) name() string {
	switch {
	case p.MedicineName != "":
		return p.MedicineName
	case p.SelectionText != "":
		return p.SelectionText
	}
	return p.Title
}

// answer computes the reply to req.
func (s *Service) answer(req *chat.Request) *reply {
	if len(req.CardData) > 0 {
		var card picked
		if err := json.Unmarshal(req.CardData, &card); err == nil {
			if resp := s.replyToPick(card); resp != nil {
				return resp
			}
		}
	}
	return s.replyToText(strings.ToLower(req.Message))
}

func (s *Service) replyToPick(card picked) *reply {
	switch card.Type {
	case "hospital", "hospital_selection":
		return &reply{
			Response:  fmt.Sprintf("Excellent! I've scheduled your appointment at %s.", card.name()),
			Agent:     AgentScheduling,
			Cards:     []any{s.bookingConfirmation(card.name())},
			Confirmed: confirmed(),
		}
	case "lab", "lab_selection":
		return &reply{
			Response: fmt.Sprintf("%s it is. How would you like to give your samples?", card.name()),
			Agent:    AgentLabTest,
			Cards:    visitTypeCards(),
		}
	case "visit_type":
		return &reply{
			Response: "Got it. Which test package would you like?",
			Agent:    AgentLabTest,
			Cards:    testPackageCards(),
		}
	case "test_package":
		return &reply{
			Response:  fmt.Sprintf("Your %s is booked.", card.name()),
			Agent:     AgentLabTest,
			Cards:     []any{s.labBookingConfirmation(card.name())},
			Confirmed: confirmed(),
		}
	case "medicine":
		return &reply{
			Response:         fmt.Sprintf("Added %s to your cart.", card.name()),
			Agent:            AgentPharmacy,
			SuggestedReplies: []string{"Checkout", "Continue shopping"},
		}
	}
	return nil
}

var (
	labWords         = []string{"lab", "test", "checkup", "blood", "diagnostic"}
	schedulingWords  = []string{"appointment", "book", "hospital", "doctor", "schedule"}
	pharmacyWords    = []string{"medicine", "pharmacy", "tablet", "pill", "order", "buy", "paracetamol", "ibuprofen", "cetirizine"}
	symptomWords     = []string{"fever", "cough", "cold", "headache", "pain", "sick", "symptom", "nausea"}
	greetingWords    = []string{"hi", "hello", "hey"}
	alternativeWords = []string{"alternative", "generic"}
)

func (s *Service) replyToText(text string) *reply {
	switch {
	case strings.HasPrefix(text, "add ") && strings.HasSuffix(text, " to cart"):
		name := strings.TrimSuffix(strings.TrimPrefix(text, "add "), " to cart")
		return &reply{
			Response:         fmt.Sprintf("Added %s to your cart.", name),
			Agent:            AgentPharmacy,
			SuggestedReplies: []string{"Checkout", "Continue shopping"},
		}
	case containsAny(text, alternativeWords):
		return &reply{
			Response: "Here are some alternatives that are in stock:",
			Agent:    AgentPharmacy,
			Cards:    s.medicineCards("paracetamol ibuprofen"),
		}
	case strings.Contains(text, "prescription"):
		return &reply{
			Response: "Here is your current prescription:",
			Agent:    AgentPharmacy,
			Cards:    prescriptionCards(),
		}
	case containsAny(text, labWords):
		return &reply{
			Response: "Here are diagnostic labs near you:",
			Agent:    AgentLabTest,
			Cards:    labCards(text),
		}
	case containsAny(text, schedulingWords):
		return &reply{
			Response: "Here are hospitals near you:",
			Agent:    AgentScheduling,
			Cards:    hospitalCards(),
		}
	case containsAny(text, pharmacyWords):
		return &reply{
			Response: "Here's what I found in our pharmacy:",
			Agent:    AgentPharmacy,
			Cards:    s.medicineCards(text),
		}
	case containsAny(text, symptomWords):
		return &reply{
			Response: "I'm sorry you're not feeling well. **Rest**, stay hydrated, and monitor your temperature. " +
				"If symptoms persist for more than 3 days, please see a doctor.",
			Agent:            AgentSymptom,
			SuggestedReplies: []string{"Book an appointment", "Order medicine", "Book a lab test"},
		}
	case containsWord(text, greetingWords):
		return &reply{
			Response: "Hello! What can I help you with today?",
			Agent:    AgentOrchestrator,
			Cards:    quickReplyCards("I have a fever", "Book an appointment", "Book a lab test"),
		}
	}
	return &reply{
		Response:         "I can help with symptoms, appointments, medicines and lab tests.",
		Agent:            AgentOrchestrator,
		SuggestedReplies: []string{"Book an appointment", "Order medicine"},
	}
}

func (s *Service) nextBooking() int64 {
	return s.bookings.Add(1)
}

func confirmed() *bool {
	v := true
	return &v
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// containsWord matches whole words only, so "hi" does not match "this".
func containsWord(text string, words []string) bool {
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z')
	}) {
		for _, w := range words {
			if field == w {
				return true
			}
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
