package docstore

// Metadata carries the citation fields attached to a passage.
type Metadata struct {
	Title        string `yaml:"title" json:"title"`
	ChapterLabel string `yaml:"chapter" json:"chapter"`
	Author       string `yaml:"author" json:"author"`
	PageRange    string `yaml:"pages" json:"pages"`
	Section      string `yaml:"section" json:"section"`
	SourceCorpus string `yaml:"corpus" json:"corpus"`
	Language     string `yaml:"language" json:"language"`
	Version      string `yaml:"version" json:"version"`
}

// Passage is a stored unit of corpus text. Immutable once added to a Store.
type Passage struct {
	ID      string   `yaml:"id" json:"id"`
	Content string   `yaml:"content" json:"content"`
	Meta    Metadata `yaml:"meta" json:"meta"`
}

// RetrievedSource is one ranked search hit. It references a stored passage
// and lives only for the duration of a single query.
type RetrievedSource struct {
	Passage *Passage `json:"passage"`
	Score   float64  `json:"score"`
	Excerpt string   `json:"excerpt"`
}

// fields returns the metadata values that participate in lexical scoring.
func (m Metadata) fields() []string {
	return []string{
		m.Title,
		m.ChapterLabel,
		m.Author,
		m.PageRange,
		m.Section,
		m.SourceCorpus,
		m.Language,
		m.Version,
	}
}
