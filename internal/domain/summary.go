package domain

type Transcript struct {
	VideoURL string `json:"videoUrl"`
	Title    string `json:"title"`
	Channel  string `json:"channel"`
	Text     string `json:"transcript"`
}

type SummaryResult struct {
	Summary   string            `json:"summary"`
	Metadata  map[string]string `json:"metadata"`
	Remaining int               `json:"remaining"`
	Unlimited bool              `json:"unlimited"`
}

type Credential struct {
	Token    string
	Identity string
}
