package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/crudkit/internal/model"
	"github.com/odyssey-erp/crudkit/internal/platform/db"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/store"
	"github.com/odyssey-erp/crudkit/internal/store/memstore"
	"github.com/odyssey-erp/crudkit/internal/store/pgstore"
)

//go:embed schema.sql
var schema string

// BookStore is everything the book views need from storage.
type BookStore interface {
	store.Store[Book]
	store.Reorderer
	store.DateBounds
}

// Stores groups the catalog tables.
type Stores struct {
	Publishers store.Store[Publisher]
	Authors    store.Store[Author]
	Books      BookStore
	Tx         store.Transactor
}

// NewMemoryStores keeps the catalog in process memory.
func NewMemoryStores() *Stores {
	s := &Stores{}
	books := memstore.New(memstore.Config[Book]{Make: bookFromValues, SortField: "position"})
	referencedBy := func(field string) func(ctx context.Context, pk int64) []string {
		return func(ctx context.Context, pk int64) []string {
			n, err := books.Count(ctx, store.Query{Filters: map[string]any{field: pk}})
			if err != nil || n == 0 {
				return nil
			}
			return []string{bookMeta.VerboseName}
		}
	}
	publishers := memstore.New(memstore.Config[Publisher]{Make: publisherFromValues, Protect: referencedBy("publisher")})
	authors := memstore.New(memstore.Config[Author]{Make: authorFromValues, Protect: referencedBy("author")})
	s.Publishers = publishers
	s.Authors = authors
	s.Books = &linkedBooks{BookStore: books, authors: authors, publishers: publishers}
	s.Tx = memstore.NewTransactor(publishers, authors, books)
	return s
}

// NewPostgresStores reads and writes the catalog tables created by Migrate.
func NewPostgresStores(pool *pgxpool.Pool) (*Stores, error) {
	bookDependent := func(column string) []pgstore.Dependent {
		return []pgstore.Dependent{{Table: "catalog_books", Column: column, Label: bookMeta.VerboseName}}
	}
	publishers, err := pgstore.New(pool, pgstore.Config[Publisher]{
		Table:        "catalog_publishers",
		Meta:         publisherMeta,
		Columns:      []string{"id", "name", "url"},
		Scan:         scanPublisher,
		DefaultOrder: []string{"name"},
		Dependents:   bookDependent("publisher"),
	})
	if err != nil {
		return nil, err
	}
	authors, err := pgstore.New(pool, pgstore.Config[Author]{
		Table:        "catalog_authors",
		Meta:         authorMeta,
		Columns:      []string{"id", "name", "born_on"},
		Scan:         scanAuthor,
		DefaultOrder: []string{"name"},
		Dependents:   bookDependent("author"),
	})
	if err != nil {
		return nil, err
	}
	books, err := pgstore.New(pool, pgstore.Config[Book]{
		Table:        "catalog_books",
		Meta:         bookMeta,
		Columns:      []string{"id", "author", "publisher", "title", "status", "in_stock", "published_on", "price", "position"},
		Scan:         scanBook,
		DefaultOrder: []string{"position"},
		SortColumn:   "position",
	})
	if err != nil {
		return nil, err
	}
	return &Stores{
		Publishers: publishers,
		Authors:    authors,
		Books:      &linkedBooks{BookStore: books, authors: authors, publishers: publishers},
		Tx:         db.NewTransactor(pool),
	}, nil
}

// Migrate creates the catalog tables when they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("catalog: migrate: %w", err)
	}
	return nil
}

func publisherFromValues(pk int64, v store.Values) (Publisher, error) {
	p := Publisher{ID: pk}
	p.Name, _ = v["name"].(string)
	p.URL, _ = v["url"].(string)
	return p, nil
}

func authorFromValues(pk int64, v store.Values) (Author, error) {
	a := Author{ID: pk}
	a.Name, _ = v["name"].(string)
	a.BornOn, _ = v["born_on"].(time.Time)
	return a, nil
}

func bookFromValues(pk int64, v store.Values) (Book, error) {
	authorID, ok := v["author"].(int64)
	if !ok {
		return Book{}, fmt.Errorf("catalog: book %d has no author", pk)
	}
	b := Book{ID: pk, Author: authorRef(authorID)}
	if id, ok := v["publisher"].(int64); ok {
		ref := publisherRef(id)
		b.Publisher = &ref
	}
	b.Title, _ = v["title"].(string)
	b.Status, _ = v["status"].(int64)
	b.InStock, _ = v["in_stock"].(bool)
	b.PublishedOn, _ = v["published_on"].(time.Time)
	if price, ok := v["price"].(float64); ok {
		b.Price = &price
	}
	switch pos := v["position"].(type) {
	case int:
		b.Position = int64(pos)
	case int64:
		b.Position = pos
	}
	return b, nil
}

func scanPublisher(row pgx.Row) (Publisher, error) {
	var p Publisher
	err := row.Scan(&p.ID, &p.Name, &p.URL)
	return p, err
}

func scanAuthor(row pgx.Row) (Author, error) {
	var (
		a    Author
		born *time.Time
	)
	if err := row.Scan(&a.ID, &a.Name, &born); err != nil {
		return a, err
	}
	if born != nil {
		a.BornOn = *born
	}
	return a, nil
}

func scanBook(row pgx.Row) (Book, error) {
	var (
		b           Book
		authorID    int64
		publisherID *int64
		published   *time.Time
	)
	err := row.Scan(&b.ID, &authorID, &publisherID, &b.Title, &b.Status, &b.InStock, &published, &b.Price, &b.Position)
	if err != nil {
		return b, err
	}
	b.Author = authorRef(authorID)
	if publisherID != nil {
		ref := publisherRef(*publisherID)
		b.Publisher = &ref
	}
	if published != nil {
		b.PublishedOn = *published
	}
	return b, nil
}

// linkedBooks names the author and publisher of every book it returns.
type linkedBooks struct {
	BookStore
	authors    store.Reader[Author]
	publishers store.Reader[Publisher]
}

func (s *linkedBooks) List(ctx context.Context, q store.Query) ([]Book, error) {
	rows, err := s.BookStore.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return rows, s.link(ctx, rows)
}

func (s *linkedBooks) Get(ctx context.Context, pk int64) (Book, error) {
	return s.one(ctx)(s.BookStore.Get(ctx, pk))
}

func (s *linkedBooks) Create(ctx context.Context, values store.Values) (Book, error) {
	return s.one(ctx)(s.BookStore.Create(ctx, values))
}

func (s *linkedBooks) Update(ctx context.Context, pk int64, values store.Values) (Book, error) {
	return s.one(ctx)(s.BookStore.Update(ctx, pk, values))
}

func (s *linkedBooks) one(ctx context.Context) func(Book, error) (Book, error) {
	return func(b Book, err error) (Book, error) {
		if err != nil {
			return b, err
		}
		rows := []Book{b}
		err = s.link(ctx, rows)
		return rows[0], err
	}
}

func (s *linkedBooks) link(ctx context.Context, rows []Book) error {
	authors := map[int64]string{}
	publishers := map[int64]string{}
	for i := range rows {
		name, err := nameOf(ctx, s.authors, authors, rows[i].Author.ID)
		if err != nil {
			return err
		}
		rows[i].Author.Name = name
		if p := rows[i].Publisher; p != nil {
			if p.Name, err = nameOf(ctx, s.publishers, publishers, p.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// nameOf loads the display name of row id, remembering it in seen. Missing rows have no name.
func nameOf[T model.Record](ctx context.Context, r store.Reader[T], seen map[int64]string, id int64) (string, error) {
	if name, ok := seen[id]; ok {
		return name, nil
	}
	row, err := r.Get(ctx, id)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		seen[id] = ""
		return "", nil
	case err != nil:
		return "", fmt.Errorf("catalog: link %d: %w", id, err)
	}
	name := fmt.Sprint(row)
	seen[id] = name
	return name, nil
}
