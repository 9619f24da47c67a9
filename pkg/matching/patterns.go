package matching

import "regexp"

// electionPatterns recognize election and reconfirmation processes. These
// stage records never map to a canonical proposal and are kept out of the
// fuzzy candidate pool entirely.
var electionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)security council.*election`),
	regexp.MustCompile(`(?i)reconfirmation.*council`),
	regexp.MustCompile(`(?i)d\.a\.o\..*elections`),
	regexp.MustCompile(`(?i)domain allocator election`),
	regexp.MustCompile(`(?i)council election`),
	regexp.MustCompile(`(?i)ardc.*election`),
	regexp.MustCompile(`(?i)advisor elections`),
	regexp.MustCompile(`(?i)election of.*members`),
	regexp.MustCompile(`(?i)election of.*manager`),
}

// recurringProgramPatterns recognize per-protocol rounds of recurring grant
// programs (STIP/LTIPP). Like elections, they have no canonical proposal.
var recurringProgramPatterns = []*regexp.Regexp{
	regexp.MustCompile(`STIP Proposal - Round 1$`),
	regexp.MustCompile(`STIP Addendum$`),
	regexp.MustCompile(`LTIPP Council Recommended Proposal$`),
	regexp.MustCompile(`STIP Bridge Challenge$`),
	regexp.MustCompile(`LTIPP \[Post Council Feedback\]$`),
}

// IsElectionTitle reports whether the title names an election process.
func IsElectionTitle(title string) bool {
	if title == "" {
		return false
	}
	for _, p := range electionPatterns {
		if p.MatchString(title) {
			return true
		}
	}
	return false
}

// IsRecurringProgramTitle reports whether the title is a per-protocol round
// of a recurring grant program.
func IsRecurringProgramTitle(title string) bool {
	if title == "" {
		return false
	}
	for _, p := range recurringProgramPatterns {
		if p.MatchString(title) {
			return true
		}
	}
	return false
}

// ShouldSkipTitle combines the two skip classes.
func ShouldSkipTitle(title string) bool {
	return IsElectionTitle(title) || IsRecurringProgramTitle(title)
}
