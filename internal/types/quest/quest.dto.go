package quest

import "lifeQuestAPI/internal/types/ledger"

type SubmitProgressRequest struct {
	Metrics map[string]float64 `json:"metrics"`
}

// SubmitProgressResponse carries the updated instance plus the ledger entry
// when this submission completed the quest. Reward is nil on every other
// submission, including repeats against an already-completed instance.
type SubmitProgressResponse struct {
	Instance *QuestInstance      `json:"instance"`
	Reward   *ledger.LedgerEntry `json:"reward,omitempty"`
}

type QuestBoardResponse struct {
	Date   string                  `json:"date"`
	Week   string                  `json:"week"`
	Daily  []*InstanceWithTemplate `json:"daily"`
	Weekly []*InstanceWithTemplate `json:"weekly"`
	Bonus  *InstanceWithTemplate   `json:"bonus,omitempty"`
}

type RerollBonusResponse struct {
	Bonus *InstanceWithTemplate `json:"bonus"`
}
