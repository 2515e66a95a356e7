package generic

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/crudkit/internal/menu"
	"github.com/odyssey-erp/crudkit/internal/model"
	"github.com/odyssey-erp/crudkit/internal/perspective"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/store"
)

const defaultDateField = "date"

// Archive describes the period an archive page shows and its neighbours.
type Archive struct {
	Start time.Time
	// Label is the period as displayed, e.g. 2024年4月.
	Label       string
	ThisURL     string
	PreviousURL string
	// NextURL is empty when the next period starts after today.
	NextURL string
}

// ArchiveConfig configures a MonthArchiveView or YearArchiveView.
type ArchiveConfig[T model.Record] struct {
	Options
	Store     store.Reader[T]
	DateField string
	// MonthURL is required by month archives.
	MonthURL func(year int, month time.Month) string
	// YearURL is required by year archives.
	YearURL            func(year int) string
	Perspectives       []perspective.Perspective
	DefaultPerspective string
	Summaries          []Summary
}

type archiveView[T model.Record] struct {
	base
	cfg          ArchiveConfig[T]
	perspectives []perspective.Perspective
	columns      []model.Field
}

func newArchiveView[T model.Record](deps Deps, cfg ArchiveConfig[T], kind menu.ViewKind, template string) (archiveView[T], error) {
	if err := requireModel(cfg.Options); err != nil {
		return archiveView[T]{}, err
	}
	if err := requireStore(cfg.Store != nil, "archive store"); err != nil {
		return archiveView[T]{}, err
	}
	if cfg.DateField == "" {
		cfg.DateField = defaultDateField
	}
	meta := cfg.Model.Meta()
	f, ok := meta.Field(cfg.DateField)
	if !ok || (f.Kind != model.KindDate && f.Kind != model.KindDateTime) {
		return archiveView[T]{}, fmt.Errorf("generic: %s has no date field %q: %w", meta.Name, cfg.DateField, shared.ErrImproperlyConfigured)
	}
	b, err := newBase(deps, cfg.Options, kind, template)
	if err != nil {
		return archiveView[T]{}, err
	}
	ps := cfg.Perspectives
	if len(ps) == 0 {
		ps = perspective.ListPerspectives(meta)
	}
	return archiveView[T]{base: b, cfg: cfg, perspectives: ps, columns: meta.FormFields()}, nil
}

func (v *archiveView[T]) today() time.Time {
	now := v.deps.Now().In(v.deps.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, v.deps.Location)
}

func (v *archiveView[T]) serve(w http.ResponseWriter, r *http.Request, start, end time.Time, archive *Archive) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	q := store.Query{DateField: v.cfg.DateField, From: start, To: end, OrderBy: []string{v.cfg.DateField}}
	sel := perspective.Resolve(v.perspectives, r.URL.Query().Get(perspective.QueryParam), v.cfg.DefaultPerspective, v.listName())
	page, err := listPage(v.base, r, v.cfg.Store, q, sel, 0)
	if err != nil {
		v.fail(w, r, "archive rows", err)
		return
	}
	page.Archive = archive
	page.Columns = v.columns
	page.Summaries = v.cfg.Summaries
	v.render(w, r, http.StatusOK, archive.Label+" "+sel.ObjectName, page)
}

// MonthArchiveView lists the rows dated within one month, read from the year and month route
// parameters.
type MonthArchiveView[T model.Record] struct {
	archiveView[T]
}

// NewMonthArchiveView builds a MonthArchiveView.
func NewMonthArchiveView[T model.Record](deps Deps, cfg ArchiveConfig[T]) (*MonthArchiveView[T], error) {
	if cfg.MonthURL == nil {
		return nil, fmt.Errorf("generic: month archive needs a month url builder: %w", shared.ErrImproperlyConfigured)
	}
	av, err := newArchiveView(deps, cfg, menu.ViewMonthArchive, "pages/generic/archive_month.html")
	if err != nil {
		return nil, err
	}
	return &MonthArchiveView[T]{av}, nil
}

func (v *MonthArchiveView[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	year, ok := parseYear(chi.URLParam(r, "year"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		http.NotFound(w, r)
		return
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, v.deps.Location)
	end := start.AddDate(0, 1, 0)
	prev := start.AddDate(0, -1, 0)
	archive := &Archive{
		Start:       start,
		Label:       fmt.Sprintf("%d年%d月", start.Year(), int(start.Month())),
		ThisURL:     v.cfg.MonthURL(start.Year(), start.Month()),
		PreviousURL: v.cfg.MonthURL(prev.Year(), prev.Month()),
	}
	if !end.After(v.today()) {
		archive.NextURL = v.cfg.MonthURL(end.Year(), end.Month())
	}
	v.serve(w, r, start, end, archive)
}

// YearArchiveView lists the rows dated within one year, read from the year route parameter.
type YearArchiveView[T model.Record] struct {
	archiveView[T]
}

// NewYearArchiveView builds a YearArchiveView.
func NewYearArchiveView[T model.Record](deps Deps, cfg ArchiveConfig[T]) (*YearArchiveView[T], error) {
	if cfg.YearURL == nil {
		return nil, fmt.Errorf("generic: year archive needs a year url builder: %w", shared.ErrImproperlyConfigured)
	}
	av, err := newArchiveView(deps, cfg, menu.ViewYearArchive, "pages/generic/archive_year.html")
	if err != nil {
		return nil, err
	}
	return &YearArchiveView[T]{av}, nil
}

func (v *YearArchiveView[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	year, ok := parseYear(chi.URLParam(r, "year"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, v.deps.Location)
	end := start.AddDate(1, 0, 0)
	archive := &Archive{
		Start:       start,
		Label:       fmt.Sprintf("%d年", year),
		ThisURL:     v.cfg.YearURL(year),
		PreviousURL: v.cfg.YearURL(year - 1),
	}
	if !end.After(v.today()) {
		archive.NextURL = v.cfg.YearURL(year + 1)
	}
	v.serve(w, r, start, end, archive)
}

func parseYear(raw string) (int, bool) {
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1 || year > 9999 {
		return 0, false
	}
	return year, true
}

// LatestConfig configures the latest month and latest year redirects.
type LatestConfig struct {
	// Navbar must not carry a menu; redirects render nothing.
	Navbar    menu.Navbar
	Bounds    store.DateBounds
	DateField string
	MonthURL  func(year int, month time.Month) string
	YearURL   func(year int) string
}

// LatestRedirect sends the visitor to the archive page of the most recent row, or of today when
// there are no rows.
type LatestRedirect struct {
	deps   Deps
	cfg    LatestConfig
	target func(t time.Time) string
}

// NewLatestMonthRedirect builds a redirect to the latest month archive.
func NewLatestMonthRedirect(deps Deps, cfg LatestConfig) (*LatestRedirect, error) {
	if cfg.MonthURL == nil {
		return nil, fmt.Errorf("generic: latest month redirect needs a month url builder: %w", shared.ErrImproperlyConfigured)
	}
	return newLatestRedirect(deps, cfg, func(t time.Time) string { return cfg.MonthURL(t.Year(), t.Month()) })
}

// NewLatestYearRedirect builds a redirect to the latest year archive.
func NewLatestYearRedirect(deps Deps, cfg LatestConfig) (*LatestRedirect, error) {
	if cfg.YearURL == nil {
		return nil, fmt.Errorf("generic: latest year redirect needs a year url builder: %w", shared.ErrImproperlyConfigured)
	}
	return newLatestRedirect(deps, cfg, func(t time.Time) string { return cfg.YearURL(t.Year()) })
}

func newLatestRedirect(deps Deps, cfg LatestConfig, target func(time.Time) string) (*LatestRedirect, error) {
	if cfg.Navbar.Menu != nil {
		return nil, fmt.Errorf("generic: latest redirects do not take a menu: %w", shared.ErrImproperlyConfigured)
	}
	if cfg.Bounds == nil {
		return nil, fmt.Errorf("generic: latest redirect needs date bounds: %w", shared.ErrImproperlyConfigured)
	}
	if cfg.DateField == "" {
		cfg.DateField = defaultDateField
	}
	d, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}
	return &LatestRedirect{deps: d, cfg: cfg, target: target}, nil
}

func (v *LatestRedirect) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	latest, ok, err := v.cfg.Bounds.LatestDate(r.Context(), v.cfg.DateField)
	if err != nil {
		v.deps.Logger.Error("latest date", slog.String("field", v.cfg.DateField), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	// Stored dates carry their calendar day as is; only today depends on the time zone.
	if !ok {
		latest = v.deps.Now().In(v.deps.Location)
	}
	http.Redirect(w, r, v.target(latest), http.StatusFound)
}
