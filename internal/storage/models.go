package storage

// Item is one diary post as it appears in a feed file.
type Item struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Text        string `json:"text"`
	Place       string `json:"place,omitempty"`
	GeneratedAt string `json:"generated_at,omitempty"`
	Image       string `json:"image,omitempty"`
	ImagePrompt string `json:"image_prompt,omitempty"`
	// Detail holds backend debug output for generated entries.
	Detail map[string]any `json:"detail,omitempty"`
}

// Feed is the canonical form every accepted feed shape is normalized into.
// Items is never nil once a Feed has been produced by the normalizer.
type Feed struct {
	UpdatedAt string `json:"updated_at,omitempty"`
	Place     string `json:"place,omitempty"`
	Items     []Item `json:"items"`
}

// ShareEntry maps a generation prompt, or a date/place pair, to an image.
type ShareEntry struct {
	Prompt string `json:"prompt,omitempty"`
	Date   string `json:"date,omitempty"`
	Place  string `json:"place,omitempty"`
	Image  string `json:"image"`
}

// Key returns the archive key for the entry: the prompt when present,
// otherwise the composite date/place key.
func (e ShareEntry) Key() string {
	if e.Prompt != "" {
		return e.Prompt
	}
	return CompositeKey(e.Date, e.Place)
}

// CompositeKey builds the date/place lookup key used by the share index.
func CompositeKey(date, place string) string {
	return date + "|" + place
}
