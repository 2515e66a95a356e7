package perspective

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/crudkit/internal/model"
)

// sortableMaxLength bounds the char fields offered as sort keys; longer ones are free-form notes.
const sortableMaxLength = 100

var (
	listCache   sync.Map
	detailCache sync.Map
	deriveGroup singleflight.Group
)

// ListPerspectives derives the collection perspectives of a model from its field declarations.
// Results are cached per declaration.
func ListPerspectives(meta *model.Meta) []Perspective {
	if meta == nil {
		return nil
	}
	return cached(&listCache, fmt.Sprintf("list:%p", meta), func() []Perspective { return deriveList(meta) })
}

// DetailPerspectives derives one related perspective per reverse relation of a model.
func DetailPerspectives(meta *model.Meta) []Perspective {
	if meta == nil {
		return nil
	}
	return cached(&detailCache, fmt.Sprintf("detail:%p", meta), func() []Perspective { return deriveDetail(meta) })
}

func cached(cache *sync.Map, key string, derive func() []Perspective) []Perspective {
	if v, ok := cache.Load(key); ok {
		return clone(v.([]Perspective))
	}
	v, _, _ := deriveGroup.Do(key, func() (any, error) {
		ps := derive()
		cache.Store(key, ps)
		return ps, nil
	})
	return clone(v.([]Perspective))
}

func clone(ps []Perspective) []Perspective {
	out := make([]Perspective, len(ps))
	copy(out, ps)
	return out
}

func deriveList(meta *model.Meta) []Perspective {
	var out []Perspective
	for _, f := range meta.Fields {
		switch {
		case f.Kind == model.KindForeignKey && !f.ParentLink:
			out = append(out, Grouping(f.Name, f.VerboseName+"別一覧", f.Name))
		case f.Kind == model.KindInteger && f.HasChoices():
			out = append(out, Grouping(f.Name, f.VerboseName+"別一覧", f.Name))
		case f.Kind == model.KindBoolean:
			out = append(out, Grouping(f.Name, f.VerboseName+"別一覧", f.Name))
		case f.Kind == model.KindChar && f.MaxLength <= sortableMaxLength:
			out = append(out, Sort(f.Name, f.VerboseName+"でソート", f.Name))
		}
	}
	return out
}

func deriveDetail(meta *model.Meta) []Perspective {
	var out []Perspective
	for _, r := range meta.Relations {
		if r.ParentLink {
			continue
		}
		out = append(out, Related(r.Name, r.RelatedVerboseName+"一覧", r.Accessor))
	}
	return out
}
