package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/odyssey-erp/crudkit/internal/store"
)

type seedBook struct {
	title     string
	status    int64
	published time.Time
	price     float64
}

type seedAuthor struct {
	name  string
	born  time.Time
	books []seedBook
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

var (
	seedPublishers = []store.Values{
		{"name": "青空書房", "url": "https://example.com/aozora"},
		{"name": "春陽堂", "url": ""},
	}

	seedAuthors = []seedAuthor{
		{name: "夏目漱石", born: day(1867, time.February, 9), books: []seedBook{
			{"吾輩は猫である", StatusPublished, day(2023, time.November, 1), 880},
			{"坊っちゃん", StatusPublished, day(2024, time.February, 15), 660},
			{"こころ", StatusOutOfPrint, day(2024, time.April, 10), 770},
		}},
		{name: "森鴎外", born: day(1862, time.February, 17), books: []seedBook{
			{"舞姫", StatusPublished, day(2024, time.March, 5), 550},
			{"高瀬舟", StatusDraft, time.Time{}, 0},
		}},
	}
)

// Seed fills empty stores with a few publishers, authors and books. Stores that already hold
// authors are left untouched.
func Seed(ctx context.Context, s *Stores) (int, error) {
	n, err := s.Authors.Count(ctx, store.Query{})
	if err != nil {
		return 0, fmt.Errorf("catalog: seed: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	created := 0
	err = s.Tx.InTx(ctx, func(ctx context.Context) error {
		var publisherIDs []int64
		for _, values := range seedPublishers {
			p, err := s.Publishers.Create(ctx, values)
			if err != nil {
				return fmt.Errorf("publisher %v: %w", values["name"], err)
			}
			publisherIDs = append(publisherIDs, p.ID)
		}
		for i, sa := range seedAuthors {
			a, err := s.Authors.Create(ctx, store.Values{"name": sa.name, "born_on": sa.born})
			if err != nil {
				return fmt.Errorf("author %s: %w", sa.name, err)
			}
			for _, sb := range sa.books {
				values := store.Values{
					"author":    a.ID,
					"publisher": publisherIDs[i%len(publisherIDs)],
					"title":     sb.title,
					"status":    sb.status,
					"in_stock":  sb.status == StatusPublished,
				}
				if !sb.published.IsZero() {
					values["published_on"] = sb.published
				}
				if sb.price > 0 {
					values["price"] = sb.price
				}
				if _, err := s.Books.Create(ctx, values); err != nil {
					return fmt.Errorf("book %s: %w", sb.title, err)
				}
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("catalog: seed: %w", err)
	}
	return created, nil
}
