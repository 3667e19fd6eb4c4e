package model

// Element describes one DOM node in the interaction chain attached to an
// event. Elements are created in a single batch alongside their parent event;
// Order preserves the position each descriptor held in the submitted chain.
type Element struct {
	ID        int64      `json:"id"`
	EventID   string     `json:"event_id"`
	TeamID    int64      `json:"team_id"`
	TagName   string     `json:"tag_name"`
	Text      string     `json:"text,omitempty"`
	Href      string     `json:"href,omitempty"`
	AttrID    string     `json:"attr_id,omitempty"`
	NthChild  *int       `json:"nth_child,omitempty"`
	NthOfType *int       `json:"nth_of_type,omitempty"`
	// Attributes holds every attr__-prefixed key from the SDK descriptor,
	// with the prefix stripped.
	Attributes Properties `json:"attributes,omitempty"`
	Order      int        `json:"order"`
}
