package game

// CommitmentKind discriminates the two commitment variants.
type CommitmentKind string

const (
	CommitResource CommitmentKind = "resource_transfer"
	CommitBudget   CommitmentKind = "budget_transfer"
)

// Commitment is one atomic promise inside a deal: either a resource
// quantity or a budget amount moving from one side to the other.
type Commitment struct {
	Kind       CommitmentKind `json:"kind"`
	ResourceID string         `json:"resource_id,omitempty"`
	Amount     int            `json:"amount"`
}

// DealStatus tracks the deal lifecycle.
type DealStatus string

const (
	DealProposed DealStatus = "proposed"
	DealAccepted DealStatus = "accepted"
	DealActive   DealStatus = "active"
	DealRejected DealStatus = "rejected"
	DealExpired  DealStatus = "expired"
)

// Deal is a proposed or active agreement between two countries. Each side
// carries an ordered commitment list; execution applies both lists
// atomically or not at all.
type Deal struct {
	ID                  string       `json:"id"`
	GameID              string       `json:"game_id"`
	ProposerID          string       `json:"proposer_id"`
	ReceiverID          string       `json:"receiver_id"`
	ProposerCommitments []Commitment `json:"proposer_commitments"`
	ReceiverCommitments []Commitment `json:"receiver_commitments"`
	Status              DealStatus   `json:"status"`
	TurnCreated         int          `json:"turn_created"`
	TurnExpires         int          `json:"turn_expires"`
}
