package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/kpatap/internal/emit"
	"github.com/alfredjeanlab/kpatap/internal/kpa"
	"github.com/alfredjeanlab/kpatap/internal/model"
	"github.com/alfredjeanlab/kpatap/internal/record"
	"github.com/alfredjeanlab/kpatap/internal/schema"
	"github.com/alfredjeanlab/kpatap/internal/state"
)

// formSchema is a form's field metadata with its inferred schema and name
// resolution, computed once and reused for the process lifetime. A process
// restart is the only invalidation trigger.
type formSchema struct {
	fields     []model.Field
	schema     *schema.Schema
	resolution schema.Resolution
}

// Syncer drives stream syncs against one API client, bookmark store, and
// emitter. Streams run sequentially; each form pair keeps its own schema
// cache and dedup state, shared with no other form.
type Syncer struct {
	client  *kpa.Client
	store   state.Store
	emitter emit.Emitter
	logger  *slog.Logger

	// startMillis bounds the first sync of a stream that has no bookmark.
	startMillis int64

	// forms memoizes (fields, schema, resolution) per form id.
	forms map[model.ID]*formSchema
}

// NewSyncer creates a syncer. The logger is required; pass a start of 0 to
// sync from the beginning of time.
func NewSyncer(client *kpa.Client, store state.Store, emitter emit.Emitter, logger *slog.Logger, startMillis int64) *Syncer {
	return &Syncer{
		client:      client,
		store:       store,
		emitter:     emitter,
		logger:      logger,
		startMillis: startMillis,
		forms:       make(map[model.ID]*formSchema),
	}
}

// formSchema fetches and infers a form's schema on first use. Failure is
// fatal for that form's stream pair only.
func (s *Syncer) formSchema(ctx context.Context, formID model.ID) (*formSchema, error) {
	if fs, ok := s.forms[formID]; ok {
		return fs, nil
	}
	fields, err := s.client.FormFields(ctx, formID)
	if err != nil {
		return nil, err
	}
	inferred, resolution := schema.Infer(fields)
	fs := &formSchema{fields: fields, schema: inferred, resolution: resolution}
	s.forms[formID] = fs
	return fs, nil
}

// Run syncs every selected stream. Form pairs are driven by their list
// descriptor; detail descriptors ride along with their parent. A failing
// form aborts only its own pair; the first static-stream failure aborts the
// run since those errors are not form-scoped.
func (s *Syncer) Run(ctx context.Context, descriptors []Descriptor, selected []string) error {
	include := newFilter(selected)

	detailByParent := make(map[string]Descriptor)
	for _, d := range descriptors {
		if d.Kind == KindDetail {
			detailByParent[d.Parent] = d
		}
	}

	var failed []string
	for _, d := range descriptors {
		switch d.Kind {
		case KindStatic:
			if !include(d.Name) {
				continue
			}
			if err := s.syncStatic(ctx, d); err != nil {
				return fmt.Errorf("syncing %s: %w", d.Name, err)
			}
		case KindList:
			detail, ok := detailByParent[d.Name]
			if !ok {
				return fmt.Errorf("list stream %s has no detail stream", d.Name)
			}
			if !include(d.Name) && !include(detail.Name) {
				continue
			}
			if err := s.syncForm(ctx, d, detail); err != nil {
				if ctx.Err() != nil {
					return err
				}
				s.logger.Error("form sync failed", "stream", detail.Name, "error", err)
				failed = append(failed, detail.Name)
			}
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d form stream(s) failed: %v", len(failed), failed)
	}
	return nil
}

// syncForm runs one form's list stream and, per summary, its detail stream.
func (s *Syncer) syncForm(ctx context.Context, list, detail Descriptor) error {
	fs, err := s.formSchema(ctx, list.FormID)
	if err != nil {
		return err
	}

	if err := s.emitter.Schema(list.Name, schema.ResponseList()); err != nil {
		return err
	}
	if err := s.emitter.Schema(detail.Name, fs.schema); err != nil {
		return err
	}

	bookmark, hasBookmark, err := s.store.Bookmark(ctx, list.Name)
	if err != nil {
		return fmt.Errorf("loading bookmark for %s: %w", list.Name, err)
	}
	lowerBound := bookmark
	if !hasBookmark {
		lowerBound = s.startMillis
	}

	s.logger.Info("syncing form",
		"stream", detail.Name, "form_id", list.FormID, "updated_after", lowerBound)

	seen := record.NewSeen()
	bm := model.Bookmark{Stream: list.Name, Value: bookmark}
	emitted := 0

	err = s.client.EachResponsePage(ctx, list.FormID, lowerBound, func(page []model.ResponseSummary) error {
		for _, summary := range page {
			if err := s.emitter.Record(list.Name, model.Record{
				"id":      summary.ID,
				"created": model.TimeFromMillis(summary.Created),
				"updated": model.TimeFromMillis(summary.Updated),
			}); err != nil {
				return err
			}
			bm = bm.Advance(summary.Updated)

			payload, err := s.client.GetResponse(ctx, list.FormID, summary.ID)
			if err != nil {
				return err
			}
			rec, ok := record.Normalize(payload, fs.schema, fs.resolution, seen)
			if !ok {
				continue
			}
			if err := s.emitter.Record(detail.Name, rec); err != nil {
				return err
			}
			emitted++
		}
		return nil
	})
	if err != nil {
		return err
	}

	// The bookmark advances only on list-stream observations, never on
	// detail-stream activity.
	if bm.Value > 0 {
		if err := s.store.SetBookmark(ctx, bm); err != nil {
			return fmt.Errorf("persisting bookmark for %s: %w", list.Name, err)
		}
		if err := s.emitter.Bookmark(bm); err != nil {
			return err
		}
	}

	s.logger.Info("form synced", "stream", detail.Name, "records", emitted, "bookmark", bm.Value)
	return nil
}

// syncStatic runs one fixed single-shot stream, passing records through
// against its hand-declared schema.
func (s *Syncer) syncStatic(ctx context.Context, d Descriptor) error {
	declared, fetch := staticStream(d.Name)
	if fetch == nil {
		return fmt.Errorf("unknown static stream %q", d.Name)
	}

	if err := s.emitter.Schema(d.Name, declared); err != nil {
		return err
	}
	records, err := fetch(s.client, ctx)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := s.emitter.Record(d.Name, r); err != nil {
			return err
		}
	}
	s.logger.Info("static stream synced", "stream", d.Name, "records", len(records))
	return nil
}

// staticStream returns the declared schema and fetch function for a fixed
// stream name.
func staticStream(name string) (*schema.Schema, func(*kpa.Client, context.Context) ([]model.Record, error)) {
	switch name {
	case StreamRoles:
		return schema.Roles(), (*kpa.Client).ListRoles
	case StreamUsers:
		return schema.Users(), (*kpa.Client).ListUsers
	case StreamLinesOfBusiness:
		return schema.LinesOfBusiness(), (*kpa.Client).ListLinesOfBusiness
	}
	return nil, nil
}

// newFilter returns a predicate for the --streams selection; an empty
// selection includes everything.
func newFilter(selected []string) func(string) bool {
	if len(selected) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]bool, len(selected))
	for _, name := range selected {
		set[name] = true
	}
	return func(name string) bool { return set[name] }
}
