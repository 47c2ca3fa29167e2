package render

import (
	"github.com/emirpasic/gods/maps/treemap"

	"seedhttpd/api/internal/cob"
	"seedhttpd/api/internal/identity"
)

type Reaction struct {
	Emoji    string            `json:"emoji"`
	Authors  []Author          `json:"authors"`
	Location *cob.CodeLocation `json:"location,omitempty"`
}

// groupReactions folds (author, emoji) pairs into one group per emoji. Groups
// come out in byte order of the emoji; authors keep encounter order and are
// not deduplicated.
func groupReactions(reactions []cob.Reaction, location *cob.CodeLocation, aliases Aliases) []Reaction {
	byEmoji := treemap.NewWithStringComparator()
	for _, r := range reactions {
		var ids []identity.PublicKey
		if existing, ok := byEmoji.Get(r.Emoji); ok {
			ids = existing.([]identity.PublicKey)
		}
		byEmoji.Put(r.Emoji, append(ids, r.Author))
	}

	out := make([]Reaction, 0, byEmoji.Size())
	it := byEmoji.Iterator()
	for it.Next() {
		out = append(out, Reaction{
			Emoji:    it.Key().(string),
			Authors:  authors(it.Value().([]identity.PublicKey), aliases),
			Location: location,
		})
	}
	return out
}

// locatedReactions buckets reactions by code location before grouping. The
// unanchored bucket comes first, the rest follow in location order.
func locatedReactions(reactions []cob.Reaction, aliases Aliases) []Reaction {
	type bucket struct {
		location  *cob.CodeLocation
		reactions []cob.Reaction
	}
	byLocation := treemap.NewWith(func(a, b interface{}) int {
		return cob.CompareLocations(a.(*cob.CodeLocation), b.(*cob.CodeLocation))
	})
	for _, r := range reactions {
		b := &bucket{location: r.Location}
		if existing, ok := byLocation.Get(r.Location); ok {
			b = existing.(*bucket)
		}
		b.reactions = append(b.reactions, r)
		byLocation.Put(r.Location, b)
	}

	out := make([]Reaction, 0)
	it := byLocation.Iterator()
	for it.Next() {
		b := it.Value().(*bucket)
		out = append(out, groupReactions(b.reactions, b.location, aliases)...)
	}
	return out
}
