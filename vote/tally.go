package vote

import (
	"sort"

	"github.com/discord-votebot/db/model"
)

// PointCount is the tally of one vote point.
type PointCount struct {
	Point *model.VotePoint
	Count int
}

// Ranking is the tally of a whole vote, count descending. Equal counts keep
// point order and are reported as ties, no tie-break is applied.
type Ranking []PointCount

// Tied reports whether the top two entries share the same count.
func (r Ranking) Tied() bool {
	return len(r) >= 2 && r[0].Count == r[1].Count
}

// TallyVote computes the ranking of a vote from the per-point rosters of
// qualifying users who reacted, after single-choice retraction has been
// applied. eligible is the full qualifying-user roster; it is only consulted
// for default accounting, where every eligible user who reacted to no point
// at all is credited to the first point. The second return value reports
// whether a configured win threshold has been reached.
//
// The function is pure: same inputs, same ranking, no side effects, so
// finalization may call it repeatedly.
func TallyVote(vote *model.Vote, rosters map[string]map[string]struct{}, eligible []string) (Ranking, bool) {
	counts := make([]int, len(vote.Points))
	for i, point := range vote.Points {
		counts[i] = len(rosters[point.EmojiKey()])
	}

	if vote.HasDefault && len(vote.Points) >= 2 {
		voted := make(map[string]struct{})
		for _, point := range vote.Points {
			for userId := range rosters[point.EmojiKey()] {
				voted[userId] = struct{}{}
			}
		}
		for _, userId := range eligible {
			if _, ok := voted[userId]; !ok {
				counts[0]++
			}
		}
	}

	thresholdMet := false
	if vote.WinThreshold > 0 && len(vote.Points) == 2 {
		thresholdMet = counts[0] >= vote.WinThreshold || counts[1] >= vote.WinThreshold
	}

	ranking := make(Ranking, 0, len(vote.Points))
	for i, point := range vote.Points {
		ranking = append(ranking, PointCount{Point: point, Count: counts[i]})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Count > ranking[j].Count
	})
	return ranking, thresholdMet
}
