package urgency

import "regexp"

// =============================================================================
// Scoring Tables
// =============================================================================
//
// All weights live here as data; the scorer is a generic loop over them.
// Keywords match against the lower-cased subject+body haystack. Panic
// patterns match against the original-case text.

// keywordEntry is one weighted keyword. A non-empty reason is recorded when
// the keyword matches; by convention only weights >= 20 carry one.
type keywordEntry struct {
	keyword string
	weight  int
	reason  string
}

// lexicalKeywords covers direct urgency vocabulary, including negative
// weights for de-escalation phrases.
var lexicalKeywords = []keywordEntry{
	{"urgent", 30, "contains 'urgent'"},
	{"emergency", 30, "contains 'emergency'"},
	{"asap", 30, "needs response asap"},
	{"immediately", 25, "demands immediate action"},
	{"critical", 25, "marked as critical"},
	{"important", 20, "marked as important"},
	{"deadline", 20, "mentions a deadline"},
	{"blocking", 20, "reports blocking issue"},
	{"blocked", 20, "reports being blocked"},
	{"stuck", 15, ""},
	{"broken", 15, ""},
	{"error", 15, ""},
	{"crash", 15, ""},
	{"failing", 15, ""},
	{"soon", 10, ""},
	{"overdue", 10, ""},
	{"reminder", 10, ""},
	{"no rush", -10, ""},
	{"no hurry", -10, ""},
	{"whenever", -10, ""},
	{"when you have time", -10, ""},
	{"nice to have", -10, ""},
	{"low priority", -10, ""},
}

// impactKeywords covers business-impact vocabulary.
var impactKeywords = []keywordEntry{
	{"security breach", 30, "possible security breach"},
	{"data loss", 30, "possible data loss"},
	{"production down", 30, "production reported down"},
	{"outage", 25, "service outage reported"},
	{"losing money", 25, "revenue impact reported"},
	{"revenue", 20, "revenue mentioned"},
	{"sla", 20, "SLA mentioned"},
	{"lawsuit", 20, "legal exposure mentioned"},
	{"churn", 20, "customer churn risk"},
	{"angry customer", 20, "angry customer"},
	{"customer", 15, ""},
	{"client", 15, ""},
	{"complaint", 15, ""},
	{"escalation", 15, ""},
	{"contract", 10, ""},
	{"invoice", 10, ""},
}

// panicPattern matches emotional-tone signals against the original-case
// text. Each contributes weight x min(matchCount, 3): the cap keeps one
// spammy message from dominating the score.
type panicPattern struct {
	re     *regexp.Regexp
	weight int
	reason string
}

var panicPatterns = []panicPattern{
	{regexp.MustCompile(`!{2,}`), 10, "repeated exclamation marks"},
	{regexp.MustCompile(`\bHELP\b`), 15, "all-caps cry for help"},
	{regexp.MustCompile(`\bURGENT\b`), 15, "all-caps URGENT"},
	{regexp.MustCompile(`\bASAP\b`), 15, "all-caps ASAP"},
	{regexp.MustCompile(`\bCRITICAL\b`), 15, "all-caps CRITICAL"},
	{regexp.MustCompile(`\bEMERGENCY\b`), 15, "all-caps EMERGENCY"},
	{regexp.MustCompile(`\b[A-Z]{6,}\b`), 5, "extended all-caps run"},
	{regexp.MustCompile(`(?i)please\b.{0,40}\bhelp`), 10, "pleads for help"},
	{regexp.MustCompile(`(?i)\bcall me\b`), 10, "asks for a call"},
	{regexp.MustCompile(`(?i)\bphone\b`), 5, "asks for a phone contact"},
}

// timePattern matches time-sensitivity phrases against the haystack; each
// contributes a flat weight and a reason when present.
type timePattern struct {
	re     *regexp.Regexp
	weight int
	reason string
}

var timePatterns = []timePattern{
	{regexp.MustCompile(`\bright now\b`), 15, "needs attention right now"},
	{regexp.MustCompile(`\btoday\b`), 10, "due today"},
	{regexp.MustCompile(`\btonight\b`), 10, "due tonight"},
	{regexp.MustCompile(`\bend of day\b`), 10, "due end of day"},
	{regexp.MustCompile(`\beod\b`), 10, "due end of day"},
	{regexp.MustCompile(`\bby tomorrow\b`), 10, "due by tomorrow"},
	{regexp.MustCompile(`\b\d+\s*(?:minutes?|mins?|hours?|hrs?)\b`), 10, "mentions a concrete time window"},
}

const (
	// compoundBonus is added once when compoundThreshold distinct
	// positive-weight keywords matched across the keyword tables.
	compoundBonus     = 15
	compoundThreshold = 3

	maxReasons  = 5
	maxKeywords = 10

	// Priority tier thresholds on the clamped score.
	urgentThreshold = 60
	highThreshold   = 35
	normalThreshold = 15
)
