package index

// Posting records that a document contains a term, with the raw occurrence
// count inside that document. One posting exists per (term, document) pair
// with Frequency > 0; removal deletes the posting outright.
type Posting struct {
	DocID     string `json:"doc_id"`
	Frequency int    `json:"frequency"`
}

// PostingList is a set of postings for one term, sorted by DocID.
type PostingList []Posting

// TermEntry pairs a term with its full posting list, used for snapshots.
type TermEntry struct {
	Term     string
	Postings PostingList
}
