// Package announce renders the system lines the hub posts into a session
// transcript (joins, departures, consensus results, round resolutions) in the
// participant's negotiated locale. Message bodies live in the embedded
// locale catalogs; this package only negotiates tags and formats.
package announce

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/louisbranch/gathering.place/internal/platform/i18n/catalog"
)

var supportedTags = []language.Tag{
	language.English,
	language.MustParse("pt-BR"),
}

// catalogLocales pairs supportedTags with embedded catalog locale ids.
var catalogLocales = []string{
	catalog.BaseLocale,
	"pt-BR",
}

var tagMatcher = language.NewMatcher(supportedTags)
var supportedTagSet = make(map[string]language.Tag, len(supportedTags))

func init() {
	for _, tag := range supportedTags {
		supportedTagSet[tag.String()] = tag
	}
}

// Supported returns the list of supported language tags.
func Supported() []language.Tag {
	tags := make([]language.Tag, len(supportedTags))
	copy(tags, supportedTags)
	return tags
}

// Default returns the language tag used when negotiation fails.
func Default() language.Tag {
	return language.English
}

// Negotiate picks the best supported tag for a locale preference string. The
// value may be a single tag ("pt-BR") or an Accept-Language list
// ("pt-BR,pt;q=0.9,en;q=0.8"). Unknown or empty preferences fall back to the
// default tag.
func Negotiate(locale string) language.Tag {
	trimmed := strings.TrimSpace(locale)
	if trimmed == "" {
		return Default()
	}
	if tag, ok := parseTag(trimmed); ok {
		return tag
	}
	if tags, _, err := language.ParseAcceptLanguage(trimmed); err == nil && len(tags) > 0 {
		_, index, _ := tagMatcher.Match(tags...)
		return supportedTags[index]
	}
	return Default()
}

func parseTag(value string) (language.Tag, bool) {
	parsed, err := language.Parse(value)
	if err != nil {
		return language.Tag{}, false
	}
	if tag, ok := supportedTagSet[parsed.String()]; ok {
		return tag, true
	}
	return language.Tag{}, false
}

// CatalogLocale maps a negotiated tag to its embedded catalog locale id.
func CatalogLocale(tag language.Tag) string {
	_, index, _ := tagMatcher.Match(tag)
	return catalogLocales[index]
}

// ErrorMessage returns the player-facing message for a wire error code in the
// given locale, falling back to the generic unknown-error message when the
// code has no localized entry.
func ErrorMessage(tag language.Tag, code string) string {
	locale := CatalogLocale(tag)
	key := "errors." + strings.ToLower(strings.TrimSpace(code))
	if value, ok := catalog.Default().Message(locale, key); ok {
		return value
	}
	value, _ := catalog.Default().Message(locale, "errors.unknown")
	return value
}

const (
	keySystemLabel             = "hub.system_label"
	keyWelcome                 = "hub.welcome"
	keyWelcomeUnnamed          = "hub.welcome_unnamed"
	keyParticipantJoined       = "hub.participant_joined"
	keyParticipantLeft         = "hub.participant_left"
	keyParticipantDisconnected = "hub.participant_disconnected"
	keyParticipantReconnected  = "hub.participant_reconnected"
	keyConsensusReached        = "hub.consensus_reached"
	keyConsensusFailed         = "hub.consensus_failed"
	keyProposalExpired         = "hub.proposal_expired"
	keyRoundStarted            = "hub.round_started"
	keyRoundResolved           = "hub.round_resolved"
	keySessionStarted          = "hub.session_started"
	keySessionPaused           = "hub.session_paused"
	keySessionResumed          = "hub.session_resumed"
	keySessionEnded            = "hub.session_ended"
)

// Renderer formats system lines for one negotiated locale.
type Renderer struct {
	tag     language.Tag
	printer *message.Printer
}

// NewRenderer returns a renderer for the given tag.
func NewRenderer(tag language.Tag) Renderer {
	return Renderer{tag: tag, printer: message.NewPrinter(tag)}
}

// ForLocale negotiates a locale preference string and returns its renderer.
func ForLocale(locale string) Renderer {
	return NewRenderer(Negotiate(locale))
}

// Tag returns the renderer's negotiated tag.
func (r Renderer) Tag() language.Tag {
	return r.tag
}

// SystemLabel returns the author label shown on system lines.
func (r Renderer) SystemLabel() string {
	return r.printer.Sprintf(keySystemLabel)
}

// Welcome greets a participant after a successful join.
func (r Renderer) Welcome(sessionName string) string {
	name := strings.TrimSpace(sessionName)
	if name == "" {
		return r.printer.Sprintf(keyWelcomeUnnamed)
	}
	return r.printer.Sprintf(keyWelcome, name)
}

// ParticipantJoined announces a participant taking a seat.
func (r Renderer) ParticipantJoined(displayName string) string {
	return r.printer.Sprintf(keyParticipantJoined, displayName)
}

// ParticipantLeft announces a participant leaving.
func (r Renderer) ParticipantLeft(displayName string) string {
	return r.printer.Sprintf(keyParticipantLeft, displayName)
}

// ParticipantDisconnected announces a connection loss grace window.
func (r Renderer) ParticipantDisconnected(displayName string) string {
	return r.printer.Sprintf(keyParticipantDisconnected, displayName)
}

// ParticipantReconnected announces a reconnect inside the grace window.
func (r Renderer) ParticipantReconnected(displayName string) string {
	return r.printer.Sprintf(keyParticipantReconnected, displayName)
}

// ConsensusReached announces a proposal resolving with a winning option.
func (r Renderer) ConsensusReached(topic, option string) string {
	return r.printer.Sprintf(keyConsensusReached, topic, option)
}

// ConsensusFailed announces a proposal resolving without a winner.
func (r Renderer) ConsensusFailed(topic string) string {
	return r.printer.Sprintf(keyConsensusFailed, topic)
}

// ProposalExpired announces a proposal closing at its deadline undecided.
func (r Renderer) ProposalExpired(topic string) string {
	return r.printer.Sprintf(keyProposalExpired, topic)
}

// RoundStarted announces a declaration window opening.
func (r Renderer) RoundStarted() string {
	return r.printer.Sprintf(keyRoundStarted)
}

// RoundResolved announces a round resolving.
func (r Renderer) RoundResolved() string {
	return r.printer.Sprintf(keyRoundResolved)
}

// SessionStarted announces the session going live for the first time.
func (r Renderer) SessionStarted() string {
	return r.printer.Sprintf(keySessionStarted)
}

// SessionPaused announces the session pausing.
func (r Renderer) SessionPaused() string {
	return r.printer.Sprintf(keySessionPaused)
}

// SessionResumed announces the session resuming.
func (r Renderer) SessionResumed() string {
	return r.printer.Sprintf(keySessionResumed)
}

// SessionEnded announces the session ending.
func (r Renderer) SessionEnded() string {
	return r.printer.Sprintf(keySessionEnded)
}
