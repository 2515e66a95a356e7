// Package catalog is a small publishing domain (publishers, authors and books) served through
// every generic view kind. It runs on PostgreSQL or, without a DSN, in memory.
package catalog

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/crudkit/internal/actions"
	"github.com/odyssey-erp/crudkit/internal/model"
)

// Prefix is where the catalog is mounted.
const Prefix = "/catalog"

// Book statuses.
const (
	StatusDraft      int64 = 1
	StatusPublished  int64 = 2
	StatusOutOfPrint int64 = 3
)

var (
	publisherMeta = &model.Meta{
		Name:        "publisher",
		VerboseName: "出版社",
		Fields: []model.Field{
			{Name: "id", VerboseName: "ID", Kind: model.KindInteger, AutoCreated: true},
			{Name: "name", VerboseName: "名前", Kind: model.KindChar, MaxLength: 100, Required: true},
			{Name: "url", VerboseName: "URL", Kind: model.KindURL, MaxLength: 200},
		},
		Relations: []model.Relation{
			{Name: "book", Accessor: "books", RelatedVerboseName: "本", Kind: model.OneToMany},
		},
	}

	authorMeta = &model.Meta{
		Name:        "author",
		VerboseName: "著者",
		Fields: []model.Field{
			{Name: "id", VerboseName: "ID", Kind: model.KindInteger, AutoCreated: true},
			{Name: "name", VerboseName: "名前", Kind: model.KindChar, MaxLength: 50, Required: true},
			{Name: "born_on", VerboseName: "生年月日", Kind: model.KindDate},
		},
		Relations: []model.Relation{
			{Name: "book", Accessor: "books", RelatedVerboseName: "本", Kind: model.OneToMany},
		},
	}

	authorField = model.Field{Name: "author", VerboseName: "著者", Kind: model.KindForeignKey, Required: true}

	bookMeta = &model.Meta{
		Name:        "book",
		VerboseName: "本",
		Fields: []model.Field{
			{Name: "id", VerboseName: "ID", Kind: model.KindInteger, AutoCreated: true},
			authorField,
			{Name: "publisher", VerboseName: "出版社", Kind: model.KindForeignKey},
			{Name: "title", VerboseName: "タイトル", Kind: model.KindChar, MaxLength: 100, Required: true},
			{Name: "status", VerboseName: "状態", Kind: model.KindInteger, Required: true, Choices: []model.Choice{
				{Value: StatusDraft, Label: "執筆中"},
				{Value: StatusPublished, Label: "刊行中"},
				{Value: StatusOutOfPrint, Label: "絶版"},
			}},
			{Name: "in_stock", VerboseName: "在庫あり", Kind: model.KindBoolean},
			{Name: "published_on", VerboseName: "発行日", Kind: model.KindDate},
			{Name: "price", VerboseName: "価格", Kind: model.KindDecimal, Validate: "gte=0"},
			{Name: "position", VerboseName: "並び順", Kind: model.KindInteger, AutoCreated: true},
		},
	}
)

func path(format string, args ...any) string {
	return Prefix + fmt.Sprintf(format, args...)
}

// PublisherModel describes publishers.
type PublisherModel struct{}

func (PublisherModel) Meta() *model.Meta { return publisherMeta }
func (PublisherModel) ListURL() string   { return path("/publishers/") }
func (PublisherModel) AddURL() string    { return path("/publishers/add/") }

// AuthorModel describes authors.
type AuthorModel struct{}

func (AuthorModel) Meta() *model.Meta { return authorMeta }
func (AuthorModel) ListURL() string   { return path("/authors/") }
func (AuthorModel) AddURL() string    { return path("/authors/add/") }

// BookModel describes books. It opts into every model capability.
type BookModel struct{}

func (BookModel) Meta() *model.Meta      { return bookMeta }
func (BookModel) ListURL() string        { return path("/books/") }
func (BookModel) AddURL() string         { return path("/books/add/") }
func (BookModel) BulkAddURL() string     { return path("/books/bulk-add/") }
func (BookModel) SortURL() string        { return path("/books/sort/") }
func (BookModel) FilterURL() string      { return path("/books/search/") }
func (BookModel) LatestYearURL() string  { return path("/books/latest-year/") }
func (BookModel) LatestMonthURL() string { return path("/books/latest-month/") }

// MonthURL is the monthly archive page of books.
func (BookModel) MonthURL(year int, month time.Month) string {
	return path("/books/archive/%d/%d/", year, int(month))
}

// YearURL is the yearly archive page of books.
func (BookModel) YearURL(year int) string {
	return path("/books/archive/%d/", year)
}

// Publisher is a stored publisher.
type Publisher struct {
	ID   int64
	Name string
	URL  string
}

func (p Publisher) PK() int64           { return p.ID }
func (p Publisher) String() string      { return p.Name }
func (p Publisher) AbsoluteURL() string { return path("/publishers/%d/", p.ID) }
func (p Publisher) EditURL() string     { return path("/publishers/%d/edit/", p.ID) }
func (p Publisher) DeleteURL() string   { return path("/publishers/%d/delete/", p.ID) }

func (p Publisher) FieldValue(name string) any {
	switch name {
	case "id":
		return p.ID
	case "name":
		return p.Name
	case "url":
		return p.URL
	}
	return nil
}

// Author is a stored author.
type Author struct {
	ID     int64
	Name   string
	BornOn time.Time
}

func (a Author) PK() int64           { return a.ID }
func (a Author) String() string      { return a.Name }
func (a Author) AbsoluteURL() string { return path("/authors/%d/", a.ID) }
func (a Author) EditURL() string     { return path("/authors/%d/edit/", a.ID) }
func (a Author) DeleteURL() string   { return path("/authors/%d/delete/", a.ID) }

// BooksURL lists the books of the author.
func (a Author) BooksURL() string { return path("/authors/%d/books/", a.ID) }

func (a Author) FieldValue(name string) any {
	switch name {
	case "id":
		return a.ID
	case "name":
		return a.Name
	case "born_on":
		if a.BornOn.IsZero() {
			return nil
		}
		return a.BornOn
	}
	return nil
}

// Actions adds a link to the author's books to each row.
func (a Author) Actions() []actions.Action {
	return []actions.Action{actions.Link("本一覧", a.BooksURL())}
}

// Ref points at a linked row. It is displayed by name once resolved.
type Ref struct {
	ID   int64
	Name string
	// Base is the list page of the linked model.
	Base string
}

func (r Ref) PK() int64 { return r.ID }

func (r Ref) String() string {
	if r.Name == "" {
		return fmt.Sprintf("#%d", r.ID)
	}
	return r.Name
}

func (r Ref) AbsoluteURL() string { return fmt.Sprintf("%s%d/", r.Base, r.ID) }

func (r Ref) FieldValue(name string) any {
	if name == "id" {
		return r.ID
	}
	return nil
}

// Book is a stored book. Author and Publisher are filled in by name when loaded through Stores.
type Book struct {
	ID          int64
	Author      Ref
	Publisher   *Ref
	Title       string
	Status      int64
	InStock     bool
	PublishedOn time.Time
	Price       *float64
	Position    int64
}

func (b Book) PK() int64           { return b.ID }
func (b Book) String() string      { return b.Title }
func (b Book) AbsoluteURL() string { return path("/books/%d/", b.ID) }
func (b Book) EditURL() string     { return path("/books/%d/edit/", b.ID) }
func (b Book) DeleteURL() string   { return path("/books/%d/delete/", b.ID) }
func (b Book) CopyURL() string     { return path("/books/%d/copy/", b.ID) }

// StatusURL switches the book to status.
func (b Book) StatusURL(status int64) string { return path("/books/%d/status/%d/", b.ID, status) }

func (b Book) FieldValue(name string) any {
	switch name {
	case "id":
		return b.ID
	case "author":
		return b.Author
	case "publisher":
		if b.Publisher == nil {
			return nil
		}
		return *b.Publisher
	case "title":
		return b.Title
	case "status":
		return b.Status
	case "in_stock":
		return b.InStock
	case "published_on":
		if b.PublishedOn.IsZero() {
			return nil
		}
		return b.PublishedOn
	case "price":
		if b.Price == nil {
			return nil
		}
		return *b.Price
	case "position":
		return b.Position
	}
	return nil
}

// EditActions offers a button for every status the book is not in.
func (b Book) EditActions() []actions.Action {
	field, _ := bookMeta.Field("status")
	out := make([]actions.Action, 0, len(field.Choices))
	for _, c := range field.Choices {
		status := c.Value.(int64)
		if status == b.Status {
			continue
		}
		out = append(out, actions.Post(c.Label+"にする", b.StatusURL(status)))
	}
	return out
}

func authorRef(id int64) Ref    { return Ref{ID: id, Base: path("/authors/")} }
func publisherRef(id int64) Ref { return Ref{ID: id, Base: path("/publishers/")} }
