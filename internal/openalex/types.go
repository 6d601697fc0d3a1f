package openalex

// Work is the subset of an OpenAlex work record the enrichment path reads.
type Work struct {
	ID              string         `json:"id"`
	DOI             string         `json:"doi"`
	DisplayName     string         `json:"display_name"`
	PublicationDate string         `json:"publication_date"`
	Type            string         `json:"type"`
	CitedByCount    int            `json:"cited_by_count"`
	CountsByYear    []CountsByYear `json:"counts_by_year"`
	OpenAccess      *OpenAccess    `json:"open_access"`
	IDs             WorkIDs        `json:"ids"`
}

// CountsByYear is one year of citation activity for a work.
type CountsByYear struct {
	Year         int `json:"year"`
	CitedByCount int `json:"cited_by_count"`
}

// OpenAccess describes a work's open access status.
type OpenAccess struct {
	IsOA  bool   `json:"is_oa"`
	OAURL string `json:"oa_url"`
}

// WorkIDs holds the external identifiers OpenAlex knows for a work.
type WorkIDs struct {
	OpenAlex string `json:"openalex"`
	DOI      string `json:"doi"`
	PMID     string `json:"pmid"`
}

// SearchResponse is the envelope of a works search.
type SearchResponse struct {
	Meta    SearchMeta `json:"meta"`
	Results []Work     `json:"results"`
}

// SearchMeta carries search pagination info.
type SearchMeta struct {
	Count   int `json:"count"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// RecentCitations sums the work's citation activity over the last n years
// of recorded counts. Used as a recency-weighted alternative to the total.
func (w *Work) RecentCitations(years int) int {
	if years <= 0 {
		return 0
	}
	total := 0
	for i, c := range w.CountsByYear {
		if i >= years {
			break
		}
		total += c.CitedByCount
	}
	return total
}
