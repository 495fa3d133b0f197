package testsession

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
)

// seedFor derives a stable seed from the session token so a resumed
// client sees the same shuffle on every fetch.
func seedFor(token string, salt uint) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s:%d", token, salt)
	return int64(h.Sum64())
}

// questionOrder is the order answers are laid out in when a session starts.
func questionOrder(def *TestDefinition, token string) []QuestionRef {
	out := append([]QuestionRef(nil), def.Questions...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].QuestionID < out[j].QuestionID
	})
	if def.ShuffleQuestions {
		r := rand.New(rand.NewSource(seedFor(token, 0)))
		r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	return out
}

func optionOrder(q *Question, token string, shuffle bool) []OptionView {
	opts := append([]Option(nil), q.Options...)
	sort.SliceStable(opts, func(i, j int) bool {
		if opts[i].DisplayOrder != opts[j].DisplayOrder {
			return opts[i].DisplayOrder < opts[j].DisplayOrder
		}
		return opts[i].ID < opts[j].ID
	})
	if shuffle {
		r := rand.New(rand.NewSource(seedFor(token, q.ID)))
		r.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
	}
	views := make([]OptionView, 0, len(opts))
	for _, o := range opts {
		views = append(views, OptionView{OptionID: o.ID, Text: o.Text})
	}
	return views
}
