// Package seed populates a hub journal with demo sessions for local
// development. Every scenario drives the real engine through the ordinary
// command path, so seeded journals replay exactly like live ones.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/louisbranch/gathering.place/internal/hub/domain/command"
	"github.com/louisbranch/gathering.place/internal/hub/domain/document"
	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
	"github.com/louisbranch/gathering.place/internal/hub/domain/proposal"
	"github.com/louisbranch/gathering.place/internal/hub/domain/resource"
	"github.com/louisbranch/gathering.place/internal/hub/domain/round"
	"github.com/louisbranch/gathering.place/internal/hub/domain/session"
	"github.com/louisbranch/gathering.place/internal/hub/engine"
	"github.com/louisbranch/gathering.place/internal/hub/storage"
	"github.com/louisbranch/gathering.place/internal/hub/storage/memory"
	"github.com/louisbranch/gathering.place/internal/hub/storage/sqlite"
	"github.com/louisbranch/gathering.place/internal/random"
)

// Config holds seed tool configuration.
type Config struct {
	SQLitePath string
	Driver     string
	Scenario   string
	Seed       int64
	Verbose    bool
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{SQLitePath: "hub.db", Driver: "sqlite"}
}

// Scenario is one scripted demo session.
type Scenario struct {
	Name string
	Info string
	run  func(context.Context, *seeder) error
}

// Scenarios lists the available demo scripts in run order.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name: "council",
			Info: "a social session: chat, dice, and a party decision put to a vote",
			run:  runCouncil,
		},
		{
			Name: "chronicle",
			Info: "shared session notes edited concurrently by two participants",
			run:  runChronicle,
		},
		{
			Name: "skirmish",
			Info: "an initiative round declared and resolved in priority order",
			run:  runSkirmish,
		},
		{
			Name: "ledger",
			Info: "party treasury transactions with GM approval rulings",
			run:  runLedger,
		},
	}
}

// Run seeds the configured journal with demo sessions and reports each
// created session id on out.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	selected, err := selectScenarios(cfg.Scenario)
	if err != nil {
		return err
	}

	seedValue := cfg.Seed
	if seedValue == 0 {
		seedValue, err = random.NewSeed()
		if err != nil {
			return fmt.Errorf("mint seed: %w", err)
		}
	}

	registries, err := engine.BuildRegistries()
	if err != nil {
		return fmt.Errorf("build registries: %w", err)
	}
	store, err := openStore(cfg, registries)
	if err != nil {
		return err
	}
	defer store.Close()

	eng, err := engine.New(store, registries, nil, engine.Config{})
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer eng.Close()

	s := &seeder{
		eng:     eng,
		rng:     rand.New(rand.NewSource(seedValue)),
		out:     out,
		verbose: cfg.Verbose,
	}

	fmt.Fprintf(out, "seeding with seed %d\n", seedValue)
	for _, scenario := range selected {
		s.sessionID = fmt.Sprintf("demo-%s-%04d", scenario.Name, s.rng.Intn(10000))
		if err := scenario.run(ctx, s); err != nil {
			return fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		fmt.Fprintf(out, "seeded %s (%s)\n", s.sessionID, scenario.Name)
	}
	return nil
}

func selectScenarios(name string) ([]Scenario, error) {
	all := Scenarios()
	name = strings.TrimSpace(name)
	if name == "" {
		return all, nil
	}
	for _, scenario := range all {
		if scenario.Name == name {
			return []Scenario{scenario}, nil
		}
	}
	return nil, fmt.Errorf("unknown scenario %q", name)
}

func openStore(cfg Config, registries engine.Registries) (storage.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "sqlite", "":
		store, err := sqlite.Open(cfg.SQLitePath, registries.Events)
		if err != nil {
			return nil, fmt.Errorf("open sqlite journal: %w", err)
		}
		return store, nil
	case "memory":
		return memory.NewStore(registries.Events), nil
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

// seeder drives one engine through scripted sessions.
type seeder struct {
	eng       *engine.Engine
	rng       *rand.Rand
	out       io.Writer
	verbose   bool
	sessionID string
	gmID      string
}

func (s *seeder) logf(format string, args ...any) {
	if s.verbose {
		fmt.Fprintf(s.out, "  "+format+"\n", args...)
	}
}

// submit pushes one command through the engine and fails on any rejection,
// so a drifted script surfaces immediately instead of seeding partial state.
func (s *seeder) submit(ctx context.Context, cmd command.Command, payload any) (engine.Result, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return engine.Result{}, fmt.Errorf("marshal %s payload: %w", cmd.Type, err)
	}
	cmd.SessionID = s.sessionID
	cmd.PayloadJSON = raw

	result, err := s.eng.Submit(ctx, cmd)
	if err != nil {
		return engine.Result{}, fmt.Errorf("submit %s: %w", cmd.Type, err)
	}
	if len(result.Rejections) > 0 {
		rejection := result.Rejections[0]
		return engine.Result{}, fmt.Errorf("%s rejected: %s (%s)", cmd.Type, rejection.Message, rejection.Code)
	}
	if len(result.Events) > 0 {
		s.logf("%s -> seq %d", cmd.Type, result.Events[len(result.Events)-1].Seq)
	}
	return result, nil
}

func (s *seeder) asSystem(cmdType command.Type) command.Command {
	return command.Command{Type: cmdType, ActorType: command.ActorTypeSystem}
}

func (s *seeder) asGM(cmdType command.Type) command.Command {
	return command.Command{Type: cmdType, ActorType: command.ActorTypeGM, ActorID: s.gmID}
}

func (s *seeder) asPlayer(cmdType command.Type, participantID string) command.Command {
	return command.Command{Type: cmdType, ActorType: command.ActorTypeParticipant, ActorID: participantID}
}

// openTable creates the session, seats a GM plus the named players, and
// activates it. Player seat ids are derived from the display names.
func (s *seeder) openTable(ctx context.Context, name string, capacity int, players ...string) ([]string, error) {
	_, err := s.submit(ctx, s.asSystem("session.create"), session.CreatePayload{
		SessionID:       s.sessionID,
		Name:            name,
		Capacity:        capacity,
		AllowSpectators: true,
	})
	if err != nil {
		return nil, err
	}

	s.gmID = "seat-gm"
	_, err = s.submit(ctx, command.Command{
		Type:      "participant.join",
		ActorType: command.ActorTypeGM,
		ActorID:   s.gmID,
	}, participant.JoinPayload{
		ParticipantID: s.gmID,
		DisplayName:   "Mara",
		Role:          string(participant.RoleGM),
	})
	if err != nil {
		return nil, err
	}

	seats := make([]string, 0, len(players))
	for _, display := range players {
		seatID := "seat-" + strings.ToLower(display)
		_, err = s.submit(ctx, command.Command{
			Type:      "participant.join",
			ActorType: command.ActorTypeParticipant,
			ActorID:   seatID,
		}, participant.JoinPayload{
			ParticipantID: seatID,
			DisplayName:   display,
			CharacterID:   "char-" + strings.ToLower(display),
			Role:          string(participant.RolePlayer),
		})
		if err != nil {
			return nil, err
		}
		seats = append(seats, seatID)
	}

	_, err = s.submit(ctx, s.asGM("session.set_status"), session.StatusPayload{
		Status: string(session.StatusActive),
	})
	if err != nil {
		return nil, err
	}
	return seats, nil
}

func runCouncil(ctx context.Context, s *seeder) error {
	seats, err := s.openTable(ctx, "Council at the Ember Inn", 4, "Tamsin", "Orrin", "Bryn")
	if err != nil {
		return err
	}

	changes := []session.StateChangePayload{
		{Kind: string(session.ChangeLocationSet), Value: "The Ember Inn, common room"},
		{Kind: string(session.ChangeWeatherSet), Value: "rain against the shutters"},
		{Kind: string(session.ChangeNPCAdded), Value: "Innkeeper Holt"},
	}
	for _, change := range changes {
		if _, err := s.submit(ctx, s.asGM("session.change_state"), change); err != nil {
			return err
		}
	}

	lines := []struct {
		seat string
		body string
	}{
		{s.gmID, "Holt slides a folded map across the counter."},
		{seats[0], "I check the map for the pass through the Greyspine."},
		{seats[1], "Someone is watching us from the corner table."},
	}
	for i, line := range lines {
		cmd := s.asPlayer("session.post_message", line.seat)
		if line.seat == s.gmID {
			cmd = s.asGM("session.post_message")
		}
		_, err := s.submit(ctx, cmd, session.MessagePayload{
			MessageID: fmt.Sprintf("msg-%d", i+1),
			Body:      line.body,
		})
		if err != nil {
			return err
		}
	}

	_, err = s.submit(ctx, s.asPlayer("session.roll_dice", seats[1]), session.RollPayload{
		Spec: "2d6+1",
		Seed: s.rng.Int63(),
	})
	if err != nil {
		return err
	}

	_, err = s.submit(ctx, s.asGM("proposal.create"), proposal.CreatePayload{
		ProposalID:     "prop-road",
		Topic:          "Which road does the party take at dawn?",
		Options:        []string{"the Greyspine pass", "the river barge", "wait out the rain"},
		Mode:           string(proposal.ModeMajority),
		DeadlineUnixMS: time.Now().Add(10 * time.Minute).UnixMilli(),
	})
	if err != nil {
		return err
	}

	votes := map[string]string{
		s.gmID:   "the river barge",
		seats[0]: "the Greyspine pass",
		seats[1]: "the river barge",
		seats[2]: "the river barge",
	}
	for _, seat := range append([]string{s.gmID}, seats...) {
		cmd := s.asPlayer("proposal.vote", seat)
		if seat == s.gmID {
			cmd = s.asGM("proposal.vote")
		}
		_, err := s.submit(ctx, cmd, proposal.VotePayload{
			ProposalID: "prop-road",
			OptionID:   votes[seat],
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func runChronicle(ctx context.Context, s *seeder) error {
	seats, err := s.openTable(ctx, "The Chronicle Table", 4, "Tamsin", "Orrin")
	if err != nil {
		return err
	}

	_, err = s.submit(ctx, s.asGM("document.create"), document.CreatePayload{
		DocumentID: "doc-notes",
		Title:      "Session Notes",
		Content:    "Day 12. ",
	})
	if err != nil {
		return err
	}

	_, err = s.submit(ctx, s.asPlayer("document.edit", seats[0]), document.EditPayload{
		DocumentID:    "doc-notes",
		ClientVersion: 0,
		Op:            document.Op{Kind: document.OpInsert, Position: 8, Text: "The party reached the ford. "},
	})
	if err != nil {
		return err
	}

	// Stale concurrent edit: authored against version 0, transformed across
	// the edit above before it lands.
	_, err = s.submit(ctx, s.asPlayer("document.edit", seats[1]), document.EditPayload{
		DocumentID:    "doc-notes",
		ClientVersion: 0,
		Op:            document.Op{Kind: document.OpInsert, Position: 8, Text: "Rain all morning. "},
	})
	if err != nil {
		return err
	}

	_, err = s.submit(ctx, s.asGM("document.edit"), document.EditPayload{
		DocumentID:    "doc-notes",
		ClientVersion: 2,
		Op:            document.Op{Kind: document.OpDelete, Position: 0, Length: 4},
	})
	return err
}

func runSkirmish(ctx context.Context, s *seeder) error {
	seats, err := s.openTable(ctx, "Skirmish at the Ford", 4, "Tamsin", "Orrin", "Bryn")
	if err != nil {
		return err
	}

	entries := []round.Entry{
		{CharacterID: "char-tamsin", ParticipantID: seats[0], Initiative: 18},
		{CharacterID: "char-orrin", ParticipantID: seats[1], Initiative: 9},
		{CharacterID: "char-bryn", ParticipantID: seats[2], Initiative: 14},
	}
	_, err = s.submit(ctx, s.asGM("round.start"), round.StartPayload{
		RoundID:        "round-1",
		Entries:        entries,
		DeadlineUnixMS: time.Now().Add(10 * time.Minute).UnixMilli(),
	})
	if err != nil {
		return err
	}

	declarations := []struct {
		seat      string
		character string
		action    string
		target    string
	}{
		{seats[1], "char-orrin", "loose an arrow", "raider captain"},
		{seats[0], "char-tamsin", "charge the line", "raider captain"},
		{seats[2], "char-bryn", "raise a shield wall", ""},
	}
	for _, decl := range declarations {
		_, err := s.submit(ctx, s.asPlayer("round.declare_action", decl.seat), round.DeclarePayload{
			RoundID:     "round-1",
			CharacterID: decl.character,
			Action:      decl.action,
			Target:      decl.target,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func runLedger(ctx context.Context, s *seeder) error {
	seats, err := s.openTable(ctx, "The Quartermaster's Ledger", 4, "Tamsin", "Orrin")
	if err != nil {
		return err
	}

	_, err = s.submit(ctx, s.asGM("resource.create"), resource.CreatePayload{
		ResourceID:       "party-gold",
		Kind:             string(resource.KindCurrency),
		Quantity:         120,
		RequiresApproval: true,
	})
	if err != nil {
		return err
	}
	_, err = s.submit(ctx, s.asGM("resource.create"), resource.CreatePayload{
		ResourceID: "rations",
		Kind:       string(resource.KindItem),
		Quantity:   10,
	})
	if err != nil {
		return err
	}

	// Approval-free pool settles immediately.
	_, err = s.submit(ctx, s.asPlayer("resource.request", seats[0]), resource.RequestPayload{
		TransactionID: "tx-rations",
		ResourceID:    "rations",
		Delta:         -2,
		Reason:        "evening meal",
	})
	if err != nil {
		return err
	}

	rulings := []struct {
		tx       string
		delta    int64
		reason   string
		decision resource.Decision
		quantity int64
	}{
		{"tx-armor", -80, "repair the shield wall", resource.DecisionApprove, 0},
		{"tx-horses", -60, "stable fees", resource.DecisionPartial, 30},
		{"tx-wine", -15, "celebration wine", resource.DecisionDeny, 0},
	}
	for _, ruling := range rulings {
		_, err := s.submit(ctx, s.asPlayer("resource.request", seats[1]), resource.RequestPayload{
			TransactionID: ruling.tx,
			ResourceID:    "party-gold",
			Delta:         ruling.delta,
			Reason:        ruling.reason,
		})
		if err != nil {
			return err
		}
		_, err = s.submit(ctx, s.asGM("resource.decide"), resource.DecidePayload{
			TransactionID: ruling.tx,
			Decision:      string(ruling.decision),
			Quantity:      ruling.quantity,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
