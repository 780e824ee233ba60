package router

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/hrygo/secretary/plugin/ai/handler"
	"github.com/hrygo/secretary/plugin/ai/tool"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

var (
	// messagingVerbs match at the start of a word.
	messagingVerbs = []string{"напиши", "отправь", "скажи", "жаз", "жібер", "write", "send"}
	// messagingFillers are skipped when looking for the recipient after the verb.
	messagingFillers = map[string]bool{
		"в": true, "на": true, "по": true, "сообщение": true, "смс": true,
		"whatsapp": true, "ватсап": true, "уатсап": true, "message": true, "to": true, "a": true,
	}
	contentLeads = []string{"что", "чтобы", "that", "about", "деп"}

	cancelVerbs   = []string{"удали", "удалить", "отмени", "отменить", "убери", "жой", "болдырма", "алып таста"}
	cancelNouns   = []string{"встреч", "кездесу"}
	scheduleCues  = []string{"организуй встречу", "запланируй", "договорись о встрече", "согласуй время", "кездесу ұйымдастыр"}
	recallCues    = []string{"о чем договорились", "о чём договорились", "что было", "вспомни", "напомни о чем", "напомни, о чем", "еске түсір", "не келістік"}
	attendeeLeads = map[string]bool{"с": true, "со": true, "with": true}
)

// RuleMatcher is the deterministic classifier used when the model is unavailable or unparsable.
type RuleMatcher struct{}

func NewRuleMatcher() *RuleMatcher {
	return &RuleMatcher{}
}

type token struct {
	text  string // lowercase
	start int
	end   int
}

func tokenize(message string) []token {
	idx := wordRe.FindAllStringIndex(message, -1)
	tokens := make([]token, len(idx))
	for i, span := range idx {
		tokens[i] = token{text: strings.ToLower(message[span[0]:span[1]]), start: span[0], end: span[1]}
	}
	return tokens
}

// MatchMessaging detects a message-sending request by a verb at the start of a word.
func (m *RuleMatcher) MatchMessaging(message string, confidence float64) (ClassifiedIntent, bool) {
	tokens := tokenize(message)
	for i, tk := range tokens {
		if !hasAnyPrefix(tk.text, messagingVerbs) {
			continue
		}
		args := tool.Args{
			"action":           "send_message",
			"content":          message,
			"original_message": message,
		}
		for j := i + 1; j < len(tokens); j++ {
			if messagingFillers[tokens[j].text] {
				continue
			}
			args["recipient"] = message[tokens[j].start:tokens[j].end]
			if content := contentAfter(message, tokens[j].end); content != "" {
				args["content"] = content
			}
			break
		}
		return ClassifiedIntent{Intent: IntentMessaging, Confidence: confidence, Args: args}, true
	}
	return ClassifiedIntent{}, false
}

func contentAfter(message string, pos int) string {
	rest := strings.TrimLeft(message[pos:], " ,:;-")
	lower := strings.ToLower(rest)
	for _, lead := range contentLeads {
		if strings.HasPrefix(lower, lead+" ") {
			rest = rest[len(lead)+1:]
			break
		}
	}
	return strings.TrimSpace(rest)
}

func hasAnyPrefix(word string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(word, p) {
			return true
		}
	}
	return false
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func enabledIDs(handlers []handler.Handler) map[string]bool {
	ids := make(map[string]bool, len(handlers))
	for _, h := range handlers {
		ids[h.ID()] = true
	}
	return ids
}

// attendeeAfterWith returns the word following "с"/"with", if any.
func attendeeAfterWith(message string) string {
	tokens := tokenize(message)
	for i := 0; i+1 < len(tokens); i++ {
		if attendeeLeads[tokens[i].text] {
			return message[tokens[i+1].start:tokens[i+1].end]
		}
	}
	return ""
}

// Match classifies a message with priority rules first and keyword scoring second.
// It always returns at least one intent.
func (m *RuleMatcher) Match(message string, handlers []handler.Handler) *ClassificationResult {
	lower := strings.ToLower(message)
	enabled := enabledIDs(handlers)
	base := tool.Args{"original_message": message}
	single := func(reason, id string, conf float64, args tool.Args) *ClassificationResult {
		return &ClassificationResult{
			Reasoning: reason,
			Intents:   []ClassifiedIntent{{Intent: id, Confidence: conf, Args: args}},
			Source:    SourceRules,
		}
	}

	if containsAny(lower, cancelVerbs) && containsAny(lower, cancelNouns) {
		return single("cancel rule", IntentCancelMeeting, 0.9, base.Clone())
	}
	if enabled[IntentMessaging] {
		if in, ok := m.MatchMessaging(message, 0.95); ok {
			return &ClassificationResult{Reasoning: "messaging rule", Intents: []ClassifiedIntent{in}, Source: SourceRules}
		}
	}
	if enabled[IntentScheduleMeeting] && containsAny(lower, scheduleCues) {
		args := base.Clone()
		if who := attendeeAfterWith(message); who != "" {
			args["attendee"] = who
		}
		return single("scheduling rule", IntentScheduleMeeting, 0.8, args)
	}
	if containsAny(lower, recallCues) {
		args := base.Clone()
		args["query"] = message
		return single("recall rule", IntentRecall, 0.7, args)
	}

	type scored struct {
		id    string
		score int
	}
	var hits []scored
	for _, h := range handlers {
		score := 0
		for _, kw := range h.Keywords() {
			if strings.Contains(lower, strings.ToLower(kw)) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{id: h.ID(), score: score})
		}
	}
	if len(hits) == 0 {
		return unknownResult("no rule matched")
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	result := &ClassificationResult{Reasoning: "keyword match", Source: SourceRules}
	for _, hit := range hits {
		result.Intents = append(result.Intents, ClassifiedIntent{
			Intent:     hit.id,
			Confidence: math.Min(0.3+0.1*float64(hit.score), 0.7),
			Args:       base.Clone(),
		})
	}
	return result
}
