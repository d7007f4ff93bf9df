package cardmatcher

// SuggestionAction is the recommended next step for a reviewed statement.
type SuggestionAction string

const (
	ActionLinkExisting SuggestionAction = "link_existing"
	ActionCreateNew    SuggestionAction = "create_new"
	ActionReview       SuggestionAction = "review"
)

// CardOption is one selectable card in a suggestion list.
type CardOption struct {
	Card        *CardMatch `json:"card"`
	Preselected bool       `json:"preselected"`
}

// Suggestions is the reviewer-facing outcome of matching: what to do, which
// cards to offer, and whether creating a new record is on the table.
type Suggestions struct {
	Recommended    SuggestionAction `json:"recommended"`
	Options        []CardOption     `json:"options"`
	AllowCreateNew bool             `json:"allow_create_new"`
}

// GenerateCardSuggestions turns a match set into reviewer suggestions.
//
// An exact match preselects the winner and recommends linking. Strong
// matches are offered without a preselection: the score is high enough to
// shortlist but not to choose for the user. Possible matches are capped and
// paired with a create-new recommendation when creation is safe.
func (m *Matcher) GenerateCardSuggestions(set *MatchSet, safeToCreate bool) *Suggestions {
	switch {
	case len(set.Exact) > 0:
		options := make([]CardOption, 0, len(set.Exact))
		for i, match := range set.Exact {
			options = append(options, CardOption{Card: match, Preselected: i == 0})
		}
		return &Suggestions{
			Recommended:    ActionLinkExisting,
			Options:        options,
			AllowCreateNew: false,
		}

	case len(set.Strong) > 0:
		options := make([]CardOption, 0, len(set.Strong))
		for _, match := range set.Strong {
			options = append(options, CardOption{Card: match})
		}
		return &Suggestions{
			Recommended:    ActionReview,
			Options:        options,
			AllowCreateNew: true,
		}

	case len(set.Possible) > 0:
		limit := m.config.MaxPossibleSuggestions
		if limit > len(set.Possible) {
			limit = len(set.Possible)
		}
		options := make([]CardOption, 0, limit)
		for _, match := range set.Possible[:limit] {
			options = append(options, CardOption{Card: match})
		}
		recommended := ActionReview
		if safeToCreate {
			recommended = ActionCreateNew
		}
		return &Suggestions{
			Recommended:    recommended,
			Options:        options,
			AllowCreateNew: true,
		}
	}

	if safeToCreate {
		return &Suggestions{Recommended: ActionCreateNew, AllowCreateNew: true}
	}
	return &Suggestions{Recommended: ActionReview, AllowCreateNew: true}
}
