package comparison

// NoResultNote marks rows synthesized for items the model did not answer.
var NoResultNote = "no result returned by the model"

// NothingToCompareSummary is returned when alignment yields no items.
var NothingToCompareSummary = "nothing to compare: no characteristics were extracted from the documents"

// Item is one characteristic of one product, as seen by both documents.
type Item struct {
	ProductName        string   `json:"product_name"`
	Characteristic     string   `json:"characteristic"`
	TZValue            *string  `json:"tz_value"`
	PassportValue      *string  `json:"passport_value"`
	TZReferences       []string `json:"tz_references"`
	PassportReferences []string `json:"passport_references"`
}

// Row is the verdict for a single Item.
type Row struct {
	Characteristic string  `json:"characteristic"`
	TZValue        *string `json:"tz_value"`
	PassportValue  *string `json:"passport_value"`
	TZQuote        *string `json:"tz_quote"`
	PassportQuote  *string `json:"passport_quote"`
	IsMatch        bool    `json:"is_match"`
	Note           *string `json:"note"`
}

// Result is the overall verdict for a pair of documents.
type Result struct {
	Match       bool   `json:"match"`
	Summary     string `json:"summary"`
	Comparisons []Row  `json:"comparisons"`
}

// ChunkResult is the reconciled output of one reasoning call.
type ChunkResult struct {
	Rows         []Row
	Summary      string
	Repaired     bool
	Placeholders int
}
