package usecase

import (
	"sort"

	"github.com/kirillkom/workspace-search/internal/core/domain"
)

// fuseRRF merges the two method rankings with Reciprocal Rank Fusion:
// score(c) = Σ 1/(K + rank_m(c)) over the methods that returned c. A candidate
// absent from a method simply contributes no term for it. The function is pure
// and fully deterministic: ties on score fall back to the candidate's best
// rank in either list, then to the unit id.
func fuseRRF(vectorResults, lexicalResults []domain.TextUnit, rrfK int) []domain.RankedCandidate {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[string]domain.RankedCandidate, len(vectorResults)+len(lexicalResults))
	for i, unit := range vectorResults {
		candidate := acc[unit.ID]
		candidate.Unit = preferRicherUnit(candidate.Unit, unit)
		candidate.VectorRank = i + 1
		acc[unit.ID] = candidate
	}
	for i, unit := range lexicalResults {
		candidate := acc[unit.ID]
		candidate.Unit = preferRicherUnit(candidate.Unit, unit)
		candidate.LexicalRank = i + 1
		acc[unit.ID] = candidate
	}

	out := make([]domain.RankedCandidate, 0, len(acc))
	for _, candidate := range acc {
		var score float64
		if candidate.VectorRank > 0 {
			score += 1.0 / float64(rrfK+candidate.VectorRank)
		}
		if candidate.LexicalRank > 0 {
			score += 1.0 / float64(rrfK+candidate.LexicalRank)
		}
		candidate.Score = score
		candidate.Unit.Score = score
		out = append(out, candidate)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if bi, bj := out[i].BestRank(), out[j].BestRank(); bi != bj {
			return bi < bj
		}
		return out[i].Unit.ID < out[j].Unit.ID
	})

	return out
}

func candidateUnits(candidates []domain.RankedCandidate) []domain.TextUnit {
	out := make([]domain.TextUnit, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Unit)
	}
	return out
}

func trimUnits(units []domain.TextUnit, limit int) []domain.TextUnit {
	if limit <= 0 || len(units) <= limit {
		return units
	}
	return units[:limit]
}

// preferRicherUnit keeps whichever copy of a unit carries more hydrated
// fields; the two indexes may store different payload subsets.
func preferRicherUnit(current, candidate domain.TextUnit) domain.TextUnit {
	if current.ID == "" {
		return candidate
	}
	if current.Content == "" && candidate.Content != "" {
		current.Content = candidate.Content
	}
	if current.DocumentID == "" && candidate.DocumentID != "" {
		current.DocumentID = candidate.DocumentID
	}
	if current.SourceType == "" && candidate.SourceType != "" {
		current.SourceType = candidate.SourceType
	}
	if current.Metadata == nil && candidate.Metadata != nil {
		current.Metadata = candidate.Metadata
	}
	if current.CreatedAt.IsZero() && !candidate.CreatedAt.IsZero() {
		current.CreatedAt = candidate.CreatedAt
	}
	return current
}
