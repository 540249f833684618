package research

import "sort"

// CompetitionValue maps a competition bucket onto the 1..3 scale used for
// averaging and scoring. Unknown is treated as medium.
func CompetitionValue(c Competition) float64 {
	switch c {
	case CompetitionLow:
		return 1
	case CompetitionHigh:
		return 3
	default:
		return 2
	}
}

// BucketCompetition converts an averaged 1..3 competition value back into a
// bucket: <1.5 low, <2.5 medium, else high.
func BucketCompetition(avg float64) Competition {
	switch {
	case avg < 1.5:
		return CompetitionLow
	case avg < 2.5:
		return CompetitionMedium
	default:
		return CompetitionHigh
	}
}

// Recompute rederives every metric that depends on cluster membership:
// keyword ordering, total and average search volume, and the competition
// bucket. It is the only code path allowed to derive these; every membership
// mutation must call it.
func (c *Cluster) Recompute() {
	sort.SliceStable(c.Keywords, func(i, j int) bool {
		if c.Keywords[i].SearchVolume != c.Keywords[j].SearchVolume {
			return c.Keywords[i].SearchVolume > c.Keywords[j].SearchVolume
		}
		return c.Keywords[i].Text < c.Keywords[j].Text
	})

	c.TotalSearchVolume = 0
	if len(c.Keywords) == 0 {
		c.AvgSearchVolume = 0
		c.AvgCompetition = CompetitionUnknown
		return
	}

	compSum := 0.0
	for _, kw := range c.Keywords {
		c.TotalSearchVolume += kw.SearchVolume
		compSum += CompetitionValue(kw.Competition)
	}
	c.AvgSearchVolume = float64(c.TotalSearchVolume) / float64(len(c.Keywords))
	c.AvgCompetition = BucketCompetition(compSum / float64(len(c.Keywords)))
}

// ContainsKeyword reports whether the cluster already holds the keyword,
// compared in canonical form.
func (c *Cluster) ContainsKeyword(text string) bool {
	canon := CanonicalText(text)
	for _, kw := range c.Keywords {
		if CanonicalText(kw.Text) == canon {
			return true
		}
	}
	return false
}

// RemoveKeyword drops the keyword (canonical comparison) and recomputes.
// It reports whether a keyword was removed.
func (c *Cluster) RemoveKeyword(text string) bool {
	canon := CanonicalText(text)
	for i, kw := range c.Keywords {
		if CanonicalText(kw.Text) == canon {
			c.Keywords = append(c.Keywords[:i], c.Keywords[i+1:]...)
			c.Recompute()
			return true
		}
	}
	return false
}
