package suggest

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carenote/internal/clinical"
	"carenote/internal/metrics"
)

// ErrUnavailable reports that the backing store could not answer. It is never
// returned for a key that simply has no suggestions.
var ErrUnavailable = errors.New("suggestion source unavailable")

type Source interface {
	Suggestions(ctx context.Context, k Key) ([]string, error)
}

// StaticSource answers from the embedded catalog.
type StaticSource struct {
	Catalog *Catalog
}

func NewStaticSource() *StaticSource {
	return &StaticSource{Catalog: DefaultCatalog()}
}

func (s *StaticSource) Suggestions(ctx context.Context, k Key) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Catalog.Lookup(k), nil
}

// TreatmentSuggestion is a row of the treatment_suggestions table.
type TreatmentSuggestion struct {
	ID          uint64            `gorm:"primaryKey"`
	Section     clinical.Section  `gorm:"type:text;not null;uniqueIndex:uq_suggestion_key"`
	AgeGroup    clinical.AgeGroup `gorm:"type:text;not null;uniqueIndex:uq_suggestion_key"`
	Modality    clinical.Modality `gorm:"type:text;not null;uniqueIndex:uq_suggestion_key"`
	Suggestions pq.StringArray    `gorm:"type:text[];not null;default:'{}'"`
}

// StoreSource reads suggestions from Postgres. Identical concurrent lookups
// share one query.
type StoreSource struct {
	DB     *gorm.DB
	Logger *zap.Logger

	group singleflight.Group
}

func NewStoreSource(db *gorm.DB, logger *zap.Logger) *StoreSource {
	return &StoreSource{DB: db, Logger: logger.Named("suggest")}
}

func (s *StoreSource) Suggestions(ctx context.Context, k Key) ([]string, error) {
	sfKey := string(k.Section) + "|" + string(k.AgeGroup) + "|" + string(k.Modality)
	v, err, _ := s.group.Do(sfKey, func() (any, error) {
		var row TreatmentSuggestion
		err := s.DB.WithContext(ctx).
			Where("section=? AND age_group=? AND modality=?", k.Section, k.AgeGroup, k.Modality).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []string{}, nil
		}
		if err != nil {
			s.Logger.Warn("suggestion lookup failed",
				zap.String("section", string(k.Section)),
				zap.String("age_group", string(k.AgeGroup)),
				zap.String("modality", string(k.Modality)),
				zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return []string(row.Suggestions), nil
	})
	if err != nil {
		return nil, err
	}
	// results are shared between callers
	return append([]string{}, v.([]string)...), nil
}

// Seed loads every catalog entry into the table, leaving existing keys alone.
func (s *StoreSource) Seed(ctx context.Context, c *Catalog) error {
	rows := make([]TreatmentSuggestion, 0, len(c.suggestions))
	for k, items := range c.suggestions {
		rows = append(rows, TreatmentSuggestion{
			Section:     k.Section,
			AgeGroup:    k.AgeGroup,
			Modality:    k.Modality,
			Suggestions: pq.StringArray(items),
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

// Counted wraps src so every lookup is recorded under the given source name.
func Counted(name string, src Source) Source {
	return countedSource{name: name, src: src}
}

type countedSource struct {
	name string
	src  Source
}

func (c countedSource) Suggestions(ctx context.Context, k Key) ([]string, error) {
	out, err := c.src.Suggestions(ctx, k)
	switch {
	case err != nil:
		metrics.RecordSuggestionLookup(c.name, "error")
	case len(out) == 0:
		metrics.RecordSuggestionLookup(c.name, "empty")
	default:
		metrics.RecordSuggestionLookup(c.name, "hit")
	}
	return out, err
}
