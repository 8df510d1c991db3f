package member

import "github.com/antzucaro/matchr"

// minSuggestScore is the lowest Jaro-Winkler similarity worth showing.
const minSuggestScore = 0.75

// Suggestion is a likely member for a name Resolve could not match.
type Suggestion struct {
	Member *Member
	Alias  string
	Score  float64
}

// Suggest finds the alias or handle most similar to name. It is only a hint
// for manual review; counters never depend on it.
func (d *Directory) Suggest(name string) (Suggestion, bool) {
	query := normalize(name)
	if query == "" {
		return Suggestion{}, false
	}

	var best Suggestion
	for _, m := range d.members {
		candidates := append([]string{m.Handle}, m.Aliases...)
		for _, c := range candidates {
			key := normalize(c)
			if key == "" {
				continue
			}
			score := matchr.JaroWinkler(query, key, false)
			if score > best.Score {
				best = Suggestion{Member: m, Alias: c, Score: score}
			}
		}
	}

	if best.Member == nil || best.Score < minSuggestScore {
		return Suggestion{}, false
	}
	return best, true
}
