package semanticscholar

// Strukturen für die Antworten der Semantic Scholar Graph API (v1).

type apiAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type apiJournal struct {
	Name string `json:"name"`
}

type apiVenue struct {
	ID string `json:"id"`
}

type apiPaper struct {
	PaperID          string         `json:"paperId"`
	Title            string         `json:"title"`
	Abstract         *string        `json:"abstract"`
	Year             *int           `json:"year"`
	Venue            string         `json:"venue"`
	PublicationVenue *apiVenue      `json:"publicationVenue"`
	Journal          *apiJournal    `json:"journal"`
	CitationCount    *int           `json:"citationCount"`
	ReferenceCount   *int           `json:"referenceCount"`
	URL              string         `json:"url"`
	ExternalIDs      map[string]any `json:"externalIds"`
	FieldsOfStudy    []string       `json:"fieldsOfStudy"`
	Authors          []apiAuthor    `json:"authors"`
}

// searchResponse ist die Antwort von /paper/search.
type searchResponse struct {
	Total  int        `json:"total"`
	Offset int        `json:"offset"`
	Next   *int       `json:"next"`
	Data   []apiPaper `json:"data"`
}

type citationItem struct {
	IsInfluential bool     `json:"isInfluential"`
	CitingPaper   apiPaper `json:"citingPaper"`
}

type referenceItem struct {
	IsInfluential bool     `json:"isInfluential"`
	CitedPaper    apiPaper `json:"citedPaper"`
}

type citationsResponse struct {
	Data []citationItem `json:"data"`
}

type referencesResponse struct {
	Data []referenceItem `json:"data"`
}

type authorResponse struct {
	AuthorID     string   `json:"authorId"`
	Name         string   `json:"name"`
	Affiliations []string `json:"affiliations"`
	HIndex       *int     `json:"hIndex"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
